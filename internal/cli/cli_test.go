package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/cli"
	"github.com/devtoolshub/devtools-hub/internal/clipboard"
	"github.com/devtoolshub/devtools-hub/internal/codec"
	"github.com/devtoolshub/devtools-hub/internal/history"
	"github.com/devtoolshub/devtools-hub/internal/identity"
	_ "github.com/devtoolshub/devtools-hub/internal/imports"
	"github.com/devtoolshub/devtools-hub/internal/qr"
	"github.com/devtoolshub/devtools-hub/internal/registry"
	"github.com/devtoolshub/devtools-hub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

// lockedBuffer is written by a watching goroutine while the test reads it
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newRunner(t *testing.T, output cli.OutputFormat) (*cli.Runner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	r := cli.NewRunner(testutil.CreateTestLogger(), testutil.CreateTestCache(), output).WithOutput(&out, &errOut)
	return r, &out, &errOut
}

func TestParseOutputFormat(t *testing.T) {
	f, err := cli.ParseOutputFormat("")
	require.NoError(t, err)
	assert.Equal(t, cli.OutputText, f)

	f, err = cli.ParseOutputFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, cli.OutputJSON, f)

	_, err = cli.ParseOutputFormat("yaml")
	assert.Error(t, err)
}

func TestReadInput(t *testing.T) {
	got, err := cli.ReadInput("arg", "", strings.NewReader("stdin"))
	require.NoError(t, err)
	assert.Equal(t, "arg", got)

	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o600))
	got, err = cli.ReadInput("", path, strings.NewReader("stdin"))
	require.NoError(t, err)
	assert.Equal(t, "from file", got)

	got, err = cli.ReadInput("", "", strings.NewReader("stdin"))
	require.NoError(t, err)
	assert.Equal(t, "stdin", got)

	_, err = cli.ReadInput("", filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)

	_, err = cli.ReadInput("", "", nil)
	assert.Error(t, err)
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "Error: boom", cli.ErrorText(errors.New("boom")))
	assert.Equal(t, "Error: already prefixed", cli.ErrorText(errors.New("Error: already prefixed")))
}

func TestConvert_Text(t *testing.T) {
	r, out, _ := newRunner(t, cli.OutputText)

	err := r.Convert(context.Background(), "hi", cli.ConvertOptions{Mode: codec.ModeEncode, Target: codec.Base64})
	require.NoError(t, err)
	assert.Equal(t, "aGk=\n", out.String())
}

func TestConvert_JSON(t *testing.T) {
	r, out, _ := newRunner(t, cli.OutputJSON)

	err := r.Convert(context.Background(), "... --- ...", cli.ConvertOptions{Target: codec.Morse})
	require.NoError(t, err)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "morse", resp["format"])
	assert.Equal(t, "decode", resp["direction"])
	assert.Equal(t, "SOS", resp["output"])
}

func TestConvert_MalformedInput(t *testing.T) {
	r, out, _ := newRunner(t, cli.OutputText)

	err := r.Convert(context.Background(), "a:1:{", cli.ConvertOptions{Target: codec.PHP})
	require.Error(t, err)
	var convErr *cli.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.True(t, strings.HasPrefix(cli.ErrorText(err), "Error: Invalid PHP serialized data!"), err.Error())
	assert.Empty(t, out.String())
}

func TestConvert_Copy(t *testing.T) {
	r, _, errOut := newRunner(t, cli.OutputText)
	board := &fakeClipboard{}
	r.WithClipboard(board)

	require.NoError(t, r.Convert(context.Background(), "hi", cli.ConvertOptions{Mode: codec.ModeEncode, Target: codec.Base64, Copy: true}))
	assert.Equal(t, "aGk=", board.text)
	assert.Contains(t, errOut.String(), "Copied")
}

func TestConvert_CopyFailureIsNotFatal(t *testing.T) {
	r, out, errOut := newRunner(t, cli.OutputText)
	r.WithClipboard(&fakeClipboard{err: clipboard.ErrUnavailable})

	require.NoError(t, r.Convert(context.Background(), "hi", cli.ConvertOptions{Mode: codec.ModeEncode, Target: codec.Base64, Copy: true}))
	assert.Equal(t, "aGk=\n", out.String())
	assert.Contains(t, errOut.String(), "unavailable")
}

func TestConvert_MorseAudio(t *testing.T) {
	r, _, _ := newRunner(t, cli.OutputText)
	path := filepath.Join(t.TempDir(), "sos.wav")

	err := r.Convert(context.Background(), "SOS", cli.ConvertOptions{
		Mode:      codec.ModeEncode,
		Target:    codec.Morse,
		AudioPath: path,
		WPM:       20,
		Frequency: 600,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("RIFF")))
}

func TestConvert_CancelledContext(t *testing.T) {
	r, _, _ := newRunner(t, cli.OutputText)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Convert(ctx, "hi", cli.ConvertOptions{}), context.Canceled)
}

func TestDetect(t *testing.T) {
	r, out, _ := newRunner(t, cli.OutputText)
	require.NoError(t, r.Detect(`{"a":1}`))
	assert.Equal(t, "json\n", out.String())
}

func TestWatch_ReconvertsOnChange(t *testing.T) {
	out := &lockedBuffer{}
	r := cli.NewRunner(testutil.CreateTestLogger(), nil, cli.OutputText).WithOutput(out, &lockedBuffer{})
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Watch(ctx, path, cli.ConvertOptions{Mode: codec.ModeEncode, Target: codec.Base64})
	}()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "aGk=") }, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))
	assert.Eventually(t, func() bool { return strings.Contains(out.String(), "aGVsbG8=") }, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestQR(t *testing.T) {
	r, out, _ := newRunner(t, cli.OutputText)
	renderer := qr.NewRenderer(nil, testutil.CreateTestLogger())

	require.NoError(t, r.QR(context.Background(), renderer, qr.Options{Text: "hello", Format: qr.FormatSVG}, ""))
	assert.Contains(t, out.String(), "<svg")

	path := filepath.Join(t.TempDir(), "code.png")
	require.NoError(t, r.QR(context.Background(), renderer, qr.Options{Text: "hello", Format: qr.FormatPNG}, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	err = r.QR(context.Background(), renderer, qr.Options{Text: "hello", Style: "plaid"}, "")
	assert.ErrorIs(t, err, qr.ErrUnknownStyle)
}

func TestHistory(t *testing.T) {
	logger := testutil.CreateTestLogger()
	store, err := history.Open(history.Options{Backend: history.BackendFile, Dir: t.TempDir()}, logger)
	require.NoError(t, err)
	recorder := history.NewRecorder(store, logger)
	ctx := identity.WithIdentity(context.Background(), identity.Static("ada@example.com"))

	_, err = recorder.Record(ctx, "base64", "hi", "aGk=")
	require.NoError(t, err)

	r, out, _ := newRunner(t, cli.OutputText)
	require.NoError(t, r.History(ctx, recorder, 10))
	assert.Contains(t, out.String(), "TOOL")
	assert.Contains(t, out.String(), "aGk=")

	r, out, _ = newRunner(t, cli.OutputJSON)
	require.NoError(t, r.ClearHistory(ctx, recorder))
	assert.JSONEq(t, `{"removed": 1}`, out.String())

	r, out, _ = newRunner(t, cli.OutputText)
	require.NoError(t, r.History(ctx, recorder, 10))
	assert.Equal(t, "No saved conversions.\n", out.String())

	assert.Error(t, r.History(context.Background(), recorder, 10))
}

func TestSitemap(t *testing.T) {
	r, out, _ := newRunner(t, cli.OutputText)
	require.NoError(t, r.Sitemap("https://tools.example.org", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Contains(t, out.String(), "<loc>https://tools.example.org/jwt-decode</loc>")
}

func TestValidateConfig(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("history:\n  enabled: true\n  backend: sqlite\n"), 0o600))
	r, out, _ := newRunner(t, cli.OutputText)
	require.NoError(t, r.ValidateConfig(good))
	assert.Contains(t, out.String(), "sqlite backend")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("qr:\n  ecc: Z\nmorse:\n  wpm: 1\n"), 0o600))
	r, out, _ = newRunner(t, cli.OutputJSON)
	err := r.ValidateConfig(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 problem(s)")

	var summary map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, false, summary["valid"])
	assert.Len(t, summary["problems"], 2)

	unparsable := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(unparsable, []byte("qr: [unterminated"), 0o600))
	assert.Error(t, r.ValidateConfig(unparsable))
}

func setupRegistry(t *testing.T) {
	t.Helper()
	t.Setenv("DISABLED_TOOLS", "")
	t.Setenv("ENABLE_ADDITIONAL_TOOLS", "")
	registry.Init(testutil.CreateTestLogger())
}

func TestListTools(t *testing.T) {
	setupRegistry(t)
	r, out, _ := newRunner(t, cli.OutputText)

	require.NoError(t, r.ListTools())
	assert.Contains(t, out.String(), "base64")
	assert.Contains(t, out.String(), "morse_code")
	assert.NotContains(t, out.String(), "conversion_history")
}

func TestHelpTool(t *testing.T) {
	setupRegistry(t)
	r, out, _ := newRunner(t, cli.OutputText)

	require.NoError(t, r.HelpTool("base64"))
	assert.Contains(t, out.String(), "--url-safe")
	assert.Contains(t, out.String(), "(required)")
	assert.Contains(t, out.String(), "[auto, encode, decode]")

	assert.Error(t, r.HelpTool("nope"))
}

func TestRunTool(t *testing.T) {
	setupRegistry(t)

	tests := []struct {
		name string
		tool string
		args []string
		want string
	}{
		{name: "flags", tool: "base64", args: []string{"--input=hi", "--action", "encode"}, want: "aGk=\n"},
		{name: "kebab tool name", tool: "morse-code", args: []string{"--input", "SOS", "--mode=encode"}, want: "... --- ...\n"},
		{name: "json object", tool: "base64", args: []string{`{"input":"aGk=","action":"decode"}`}, want: "hi\n"},
		{name: "flags win over json", tool: "base64", args: []string{"--input=hi", `{"input":"ignored","action":"encode"}`}, want: "aGk=\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, out, _ := newRunner(t, cli.OutputText)
			require.NoError(t, r.RunTool(context.Background(), tt.tool, tt.args))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestRunTool_Errors(t *testing.T) {
	setupRegistry(t)
	r, _, _ := newRunner(t, cli.OutputText)

	err := r.RunTool(context.Background(), "nope", nil)
	assert.ErrorContains(t, err, "devtools-hub tools list")

	err = r.RunTool(context.Background(), "base64", []string{"positional"})
	assert.ErrorContains(t, err, "unexpected argument")

	err = r.RunTool(context.Background(), "base64", []string{"--input"})
	assert.ErrorContains(t, err, "requires a value")

	err = r.RunTool(context.Background(), "php_serialize", []string{"--input=a:1:{"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Error: "), err.Error())
}
