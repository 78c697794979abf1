// Package history persists successful conversions per user. Records are only ever
// appended; the one mutation is Clear, which removes every record of a user.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoIdentity is returned when a caller has no identity; recording is skipped
	ErrNoIdentity = errors.New("no caller identity")

	// ErrStorageFull is returned when an append would exceed the configured size limit
	ErrStorageFull = errors.New("history storage is full")

	// ErrInvalidRecord is returned for a record without a user or tool
	ErrInvalidRecord = errors.New("invalid history record")
)

const (
	// DefaultListLimit applies when List is called with a non-positive limit
	DefaultListLimit = 50

	// MaxListLimit caps a single List call
	MaxListLimit = 500

	// MaxFieldBytes caps the stored input and output of a single record
	MaxFieldBytes = 256 * 1024

	truncatedMarker = "\n…[truncated]"
)

// Record is one saved conversion
type Record struct {
	ID         string    `json:"id"`
	UserEmail  string    `json:"userEmail"`
	Tool       string    `json:"tool"`
	InputData  string    `json:"inputData"`
	OutputData string    `json:"outputData"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store is a history backend
type Store interface {
	// Append stores rec, assigning its ID and CreatedAt
	Append(ctx context.Context, rec Record) (Record, error)
	// List returns up to limit records of email, newest first
	List(ctx context.Context, email string, limit int) ([]Record, error)
	// Clear removes every record of email and returns how many were removed
	Clear(ctx context.Context, email string) (int, error)
	Close() error
}

// Backend names a Store implementation
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// Options configure Open
type Options struct {
	Backend Backend
	// Dir holds the history files; empty selects <state dir>/history
	Dir                string
	MaxSizeBytes       int64
	RetentionDays      int
	EncryptionPassword string
}

// Open creates the store selected by opts.Backend
func Open(opts Options, logger *logrus.Logger) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts, logger)
	case BackendSQLite:
		return NewSQLiteStore(opts, logger)
	default:
		return nil, fmt.Errorf("unknown history backend %q", opts.Backend)
	}
}

// prepare validates rec and fills in the fields the store owns
func prepare(rec Record, now time.Time) (Record, error) {
	rec.UserEmail = strings.ToLower(strings.TrimSpace(rec.UserEmail))
	rec.Tool = strings.TrimSpace(rec.Tool)
	if rec.UserEmail == "" {
		return rec, fmt.Errorf("%w: user email is required", ErrInvalidRecord)
	}
	if rec.Tool == "" {
		return rec, fmt.Errorf("%w: tool is required", ErrInvalidRecord)
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = now.UTC()
	rec.InputData = truncateField(rec.InputData)
	rec.OutputData = truncateField(rec.OutputData)
	return rec, nil
}

func truncateField(s string) string {
	if len(s) <= MaxFieldBytes {
		return s
	}
	cut := MaxFieldBytes - len(truncatedMarker)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncatedMarker
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

func retentionCutoff(now time.Time, days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -days)
}
