package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/clipboard"
	"github.com/devtoolshub/devtools-hub/internal/codec"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// watchDebounce collapses the burst of events editors emit for a single save
const watchDebounce = 150 * time.Millisecond

// ConvertOptions configure Convert and Watch
type ConvertOptions struct {
	Mode   codec.Mode
	Target codec.Format
	Indent int
	// Copy places the output on the clipboard
	Copy bool
	// AudioPath, when set and the input is Morse, receives a WAV rendering
	AudioPath string
	WPM       int
	Frequency float64
}

type convertOutput struct {
	Format    codec.Format `json:"format"`
	Direction codec.Mode   `json:"direction"`
	Output    string       `json:"output"`
	Error     string       `json:"error,omitempty"`
}

// ConversionError is a malformed-input failure. Its text is the "Error: ..." line.
type ConversionError struct {
	Text string
}

func (e *ConversionError) Error() string {
	return e.Text
}

// Convert detects and converts input, printing the result
func (r *Runner) Convert(ctx context.Context, input string, opts ConvertOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := codec.Convert(codec.Request{Input: input, Mode: opts.Mode, Target: opts.Target, Indent: opts.Indent})
	r.logger.WithFields(logrus.Fields{
		"format":    res.Format,
		"direction": res.Direction,
		"ok":        res.OK(),
	}).Debug("CLI conversion finished")

	if r.output == OutputJSON {
		out := convertOutput{Format: res.Format, Direction: res.Direction, Output: res.Output}
		if !res.OK() {
			out.Error = res.Text()
		}
		if err := r.writeJSON(out); err != nil {
			return err
		}
	} else if res.OK() {
		if _, err := fmt.Fprintln(r.out, res.Output); err != nil {
			return err
		}
	}

	if !res.OK() {
		return &ConversionError{Text: res.Text()}
	}

	if opts.Copy {
		if err := clipboard.Copy(r.clipboard, res.Output); err != nil {
			r.warnf("Warning: %v", err)
		} else {
			r.infof("Copied %s output to clipboard", res.Format)
		}
	}

	if opts.AudioPath != "" {
		r.writeMorseAudio(input, res, opts)
	}
	return nil
}

// writeMorseAudio renders the Morse side of a conversion. Failures are reported, not
// returned: the text conversion already succeeded.
func (r *Runner) writeMorseAudio(input string, res codec.Result, opts ConvertOptions) {
	if res.Format != codec.Morse {
		r.warnf("Warning: --audio only applies to Morse code, input was %s", res.Format)
		return
	}
	code := input
	if res.Direction == codec.ModeEncode {
		code = res.Output
	}

	wav, err := codec.RenderWAV(code, opts.WPM, opts.Frequency)
	if err != nil {
		r.warnf("Warning: failed to render audio: %v", err)
		return
	}
	if err := os.WriteFile(opts.AudioPath, wav, 0o644); err != nil {
		r.warnf("Warning: failed to write %s: %v", opts.AudioPath, err)
		return
	}
	r.infof("Wrote %d bytes of audio to %s", len(wav), opts.AudioPath)
}

// Detect prints the detected format of input
func (r *Runner) Detect(input string) error {
	format := codec.Detect(input)
	if r.output == OutputJSON {
		return r.writeJSON(map[string]codec.Format{"format": format})
	}
	_, err := fmt.Fprintln(r.out, format)
	return err
}

// Watch converts path now and again after every change until ctx is cancelled.
// Conversion failures are printed and watching continues.
func (r *Runner) Watch(ctx context.Context, path string, opts ConvertOptions) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors often replace the file rather than write to it
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	r.convertFile(ctx, abs, opts)
	r.infof("Watching %s for changes (Ctrl+C to stop)", path)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			r.logger.WithField("event", event.Op.String()).Debug("Watched file changed")
			debounce = time.After(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.WithError(err).Warn("File watcher error")
		case <-debounce:
			debounce = nil
			r.convertFile(ctx, abs, opts)
		}
	}
}

func (r *Runner) convertFile(ctx context.Context, path string, opts ConvertOptions) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.warnf("Warning: failed to read %s: %v", path, err)
		return
	}
	if err := r.Convert(ctx, string(data), opts); err != nil {
		PrintError(r.errOut, err)
	}
}
