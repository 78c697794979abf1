package history

import (
	"context"
	"testing"

	"github.com/devtoolshub/devtools-hub/internal/identity"
	"github.com/devtoolshub/devtools-hub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	store, err := Open(Options{Backend: BackendFile, Dir: t.TempDir()}, testutil.CreateTestLogger())
	require.NoError(t, err)
	return NewRecorder(store, testutil.CreateTestLogger())
}

func TestRecorder_SkipsWithoutIdentity(t *testing.T) {
	rec := newTestRecorder(t)

	_, err := rec.Record(context.Background(), "base64", "hi", "aGk=")
	assert.ErrorIs(t, err, ErrNoIdentity)
	assert.True(t, Skipped(err))

	_, err = rec.List(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestRecorder_RecordsForIdentity(t *testing.T) {
	rec := newTestRecorder(t)
	ctx := identity.WithIdentity(context.Background(), identity.Static("ada@example.com"))
	other := identity.WithIdentity(context.Background(), identity.Static("bob@example.com"))

	saved, err := rec.Record(ctx, "morse_code", "sos", "... --- ...")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", saved.UserEmail)

	records, err := rec.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "... --- ...", records[0].OutputData)

	records, err = rec.List(other, 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	n, err := rec.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var rec *Recorder
	_, err := rec.Record(context.Background(), "base64", "a", "YQ==")
	assert.ErrorIs(t, err, ErrNoIdentity)
}
