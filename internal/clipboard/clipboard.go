// Package clipboard copies conversion output to the system clipboard
package clipboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
)

// ErrEmptyOutput is returned when there is nothing to copy
var ErrEmptyOutput = errors.New("nothing to copy: output is empty")

// ErrUnavailable is returned when no clipboard utility is present
var ErrUnavailable = errors.New("system clipboard is unavailable")

// Writer writes text to a clipboard
type Writer interface {
	WriteAll(text string) error
}

// System is the OS clipboard
type System struct{}

// WriteAll implements Writer
func (System) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	return clipboard.WriteAll(text)
}

// Copy writes text to w. Blank text is rejected before the clipboard is touched, and a
// failed write is returned as is.
func Copy(w Writer, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyOutput
	}
	if err := w.WriteAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}
