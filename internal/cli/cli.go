// Package cli implements the devtools-hub subcommands. Conversions run in-process
// against the codecs and the tool registry, so no server is needed.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/devtoolshub/devtools-hub/internal/clipboard"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// OutputFormat controls how results are rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts text or json; empty selects text
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q: expected text or json", s)
	}
}

// Runner executes subcommands, writing results to its output streams.
type Runner struct {
	logger    *logrus.Logger
	cache     *cache.Cache
	output    OutputFormat
	out       io.Writer
	errOut    io.Writer
	clipboard clipboard.Writer
}

// NewRunner creates a Runner writing to stdout and stderr and copying to the system
// clipboard.
func NewRunner(logger *logrus.Logger, c *cache.Cache, output OutputFormat) *Runner {
	return &Runner{
		logger:    logger,
		cache:     c,
		output:    output,
		out:       os.Stdout,
		errOut:    os.Stderr,
		clipboard: clipboard.System{},
	}
}

// WithOutput redirects the runner's output streams
func (r *Runner) WithOutput(out, errOut io.Writer) *Runner {
	r.out, r.errOut = out, errOut
	return r
}

// WithClipboard replaces the clipboard used by --copy
func (r *Runner) WithClipboard(w clipboard.Writer) *Runner {
	r.clipboard = w
	return r
}

// ReadInput returns the positional argument, else the contents of file, else all of
// stdin. Surrounding whitespace is kept; the codecs trim what they need.
func ReadInput(arg, file string, stdin io.Reader) (string, error) {
	switch {
	case arg != "":
		return arg, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	case stdin != nil:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	default:
		return "", errors.New("no input: pass it as an argument, with --file or on stdin")
	}
}

// ErrorText renders err as the single "Error: ..." line printed before exiting
func ErrorText(err error) string {
	msg := err.Error()
	if strings.HasPrefix(msg, "Error: ") {
		return msg
	}
	return "Error: " + msg
}

// PrintError writes err in red to w
func PrintError(w io.Writer, err error) {
	_, _ = color.New(color.FgRed).Fprintln(w, ErrorText(err))
}

func (r *Runner) warnf(format string, args ...any) {
	_, _ = color.New(color.FgYellow).Fprintf(r.errOut, format+"\n", args...)
}

func (r *Runner) infof(format string, args ...any) {
	_, _ = color.New(color.FgGreen).Fprintf(r.errOut, format+"\n", args...)
}

func (r *Runner) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstLine(s string) string {
	if before, _, found := strings.Cut(s, "\n"); found {
		return before
	}
	return s
}
