package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/config"
	"github.com/sirupsen/logrus"
)

const (
	// ErrorLogRetentionDays bounds how long failed calls stay in the error log
	ErrorLogRetentionDays = 60

	// ErrorLogEnvVar turns the error log on when set to "true"
	ErrorLogEnvVar = "LOG_TOOL_ERRORS"

	errorLogName    = "tool-errors.log"
	maskedValue     = "[REDACTED]"
	maxLoggedArgLen = 500
)

// Argument names containing one of these never reach the error log
var sensitiveArgs = []string{"secret", "password", "token", "key", "authorization"}

// ErrorEntry is one JSON line of the error log
type ErrorEntry struct {
	Timestamp string         `json:"timestamp"`
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Error     string         `json:"error"`
	Transport string         `json:"transport,omitempty"`
}

// ErrorLog appends failed tool calls to a JSON lines file. A nil or disabled
// ErrorLog ignores every call.
type ErrorLog struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	logger *logrus.Logger
	now    func() time.Time
}

var (
	errorLog     *ErrorLog
	errorLogOnce sync.Once
)

// InitErrorLog opens <state dir>/logs/tool-errors.log when LOG_TOOL_ERRORS=true and
// prunes expired entries in the background
func InitErrorLog(logger *logrus.Logger) error {
	var err error
	errorLogOnce.Do(func() {
		if os.Getenv(ErrorLogEnvVar) != "true" {
			return
		}
		var dir string
		if dir, err = config.StateDir(); err != nil {
			err = fmt.Errorf("locate tool error log: %w", err)
			return
		}
		if errorLog, err = OpenErrorLog(filepath.Join(dir, "logs"), logger); err != nil {
			return
		}
		go func() {
			if err := errorLog.prune(); err != nil {
				logger.WithError(err).Warn("Could not prune the tool error log")
			}
		}()
		logger.WithField("path", errorLog.path).Info("Logging failed tool calls")
	})
	return err
}

// OpenErrorLog opens an error log file in dir, creating the directory when needed
func OpenErrorLog(dir string, logger *logrus.Logger) (*ErrorLog, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	l := &ErrorLog{path: filepath.Join(dir, errorLogName), logger: logger, now: time.Now}
	if err := l.openLocked(); err != nil {
		return nil, err
	}
	return l, nil
}

// GetErrorLog returns the process error log; nil when it is disabled
func GetErrorLog() *ErrorLog {
	return errorLog
}

func (l *ErrorLog) Enabled() bool {
	return l != nil && l.path != ""
}

func (l *ErrorLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Record writes one failed call with its arguments masked
func (l *ErrorLog) Record(toolName string, args map[string]any, callErr error, transport string) {
	if !l.Enabled() || callErr == nil {
		return
	}

	line, err := json.Marshal(ErrorEntry{
		Timestamp: l.now().UTC().Format(time.RFC3339),
		ToolName:  toolName,
		Arguments: MaskArguments(args),
		Error:     callErr.Error(),
		Transport: transport,
	})
	if err != nil {
		l.logger.WithError(err).Error("Could not encode tool error entry")
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		l.logger.WithError(err).Error("Could not write tool error entry")
	}
}

// MaskArguments copies args with sensitive values replaced and long strings cut
func MaskArguments(args map[string]any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]any, len(args))
	for name, value := range args {
		switch s, isString := value.(string); {
		case isSensitiveArg(name):
			out[name] = maskedValue
		case isString && len(s) > maxLoggedArgLen:
			out[name] = s[:maxLoggedArgLen] + "...[truncated]"
		default:
			out[name] = value
		}
	}
	return out
}

func isSensitiveArg(name string) bool {
	name = strings.ToLower(name)
	for _, marker := range sensitiveArgs {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

func (l *ErrorLog) Close() error {
	if !l.Enabled() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// prune rewrites the log without entries older than ErrorLogRetentionDays. Lines that
// do not parse are kept.
func (l *ErrorLog) prune() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read tool error log: %w", err)
	}

	cutoff := l.now().AddDate(0, 0, -ErrorLogRetentionDays)
	var kept bytes.Buffer
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var entry ErrorEntry
		if json.Unmarshal(line, &entry) == nil {
			if at, err := time.Parse(time.RFC3339, entry.Timestamp); err == nil && !at.After(cutoff) {
				continue
			}
		}
		kept.Write(line)
		kept.WriteByte('\n')
	}

	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, kept.Bytes(), 0o600); err != nil {
		return errors.Join(fmt.Errorf("write pruned tool error log: %w", err), l.openLocked())
	}
	if err := os.Rename(tmp, l.path); err != nil {
		_ = os.Remove(tmp)
		return errors.Join(fmt.Errorf("replace tool error log: %w", err), l.openLocked())
	}
	return l.openLocked()
}

// openLocked opens the log for appending; the caller holds l.mu or owns l exclusively
func (l *ErrorLog) openLocked() error {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open tool error log: %w", err)
	}
	l.file = file
	return nil
}
