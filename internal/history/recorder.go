package history

import (
	"context"
	"errors"

	"github.com/devtoolshub/devtools-hub/internal/identity"
	"github.com/sirupsen/logrus"
)

// Recorder saves conversions for the identity found on the context
type Recorder struct {
	store  Store
	logger *logrus.Logger
}

// NewRecorder wraps store
func NewRecorder(store Store, logger *logrus.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record saves one conversion. Without an identity it returns ErrNoIdentity and does
// nothing. Store failures are logged and returned; callers treat them as non-fatal.
func (r *Recorder) Record(ctx context.Context, tool, input, output string) (Record, error) {
	if r == nil || r.store == nil {
		return Record{}, ErrNoIdentity
	}
	id, ok := identity.FromContext(ctx)
	if !ok {
		return Record{}, ErrNoIdentity
	}

	rec, err := r.store.Append(ctx, Record{
		UserEmail:  id.Email,
		Tool:       tool,
		InputData:  input,
		OutputData: output,
	})
	if err != nil {
		r.logger.WithError(err).WithField("tool", tool).Warn("Failed to save conversion history")
		return Record{}, err
	}
	r.logger.WithFields(logrus.Fields{"tool": tool, "id": rec.ID}).Debug("Saved conversion history")
	return rec, nil
}

// List returns the caller's records, newest first
func (r *Recorder) List(ctx context.Context, limit int) ([]Record, error) {
	if r == nil || r.store == nil {
		return nil, ErrNoIdentity
	}
	id, ok := identity.FromContext(ctx)
	if !ok {
		return nil, ErrNoIdentity
	}
	return r.store.List(ctx, id.Email, limit)
}

// Clear removes the caller's records
func (r *Recorder) Clear(ctx context.Context) (int, error) {
	if r == nil || r.store == nil {
		return 0, ErrNoIdentity
	}
	id, ok := identity.FromContext(ctx)
	if !ok {
		return 0, ErrNoIdentity
	}
	return r.store.Clear(ctx, id.Email)
}

// Skipped reports whether err only means there was nobody to record for
func Skipped(err error) bool {
	return errors.Is(err, ErrNoIdentity)
}
