package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories returns a fresh store of each backend rooted in a temp dir, with the
// clock under test control
func storeFactories(t *testing.T) map[string]func(now *time.Time) Store {
	t.Helper()
	return map[string]func(now *time.Time) Store{
		"file": func(now *time.Time) Store {
			s, err := NewFileStore(Options{Dir: t.TempDir(), RetentionDays: 30}, testutil.CreateTestLogger())
			require.NoError(t, err)
			s.now = func() time.Time { return *now }
			return s
		},
		"sqlite": func(now *time.Time) Store {
			s, err := NewSQLiteStore(Options{Dir: t.TempDir(), RetentionDays: 30}, testutil.CreateTestLogger())
			require.NoError(t, err)
			s.now = func() time.Time { return *now }
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStore_AppendListClear(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			s := factory(&now)
			ctx := context.Background()

			for i := range 3 {
				rec, err := s.Append(ctx, Record{
					UserEmail:  "Ada@Example.com",
					Tool:       "json_format",
					InputData:  fmt.Sprintf(`{"n":%d}`, i),
					OutputData: fmt.Sprintf("{\n    \"n\": %d\n}", i),
				})
				require.NoError(t, err)
				assert.NotEmpty(t, rec.ID)
				assert.Equal(t, "ada@example.com", rec.UserEmail)
				assert.Equal(t, now, rec.CreatedAt)
				now = now.Add(time.Minute)
			}
			_, err := s.Append(ctx, Record{UserEmail: "bob@example.com", Tool: "base64", InputData: "x", OutputData: "eA=="})
			require.NoError(t, err)

			records, err := s.List(ctx, "ada@example.com", 0)
			require.NoError(t, err)
			require.Len(t, records, 3)
			assert.Equal(t, `{"n":2}`, records[0].InputData, "newest first")
			assert.Equal(t, `{"n":0}`, records[2].InputData)

			limited, err := s.List(ctx, "ada@example.com", 2)
			require.NoError(t, err)
			assert.Len(t, limited, 2)

			removed, err := s.Clear(ctx, "ada@example.com")
			require.NoError(t, err)
			assert.Equal(t, 3, removed)

			records, err = s.List(ctx, "ada@example.com", 10)
			require.NoError(t, err)
			assert.Empty(t, records)

			records, err = s.List(ctx, "bob@example.com", 10)
			require.NoError(t, err)
			assert.Len(t, records, 1)
		})
	}
}

func TestStore_RetentionPrunesOldRecords(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			s := factory(&now)
			ctx := context.Background()

			_, err := s.Append(ctx, Record{UserEmail: "a@b.co", Tool: "morse_code", InputData: "old", OutputData: "---"})
			require.NoError(t, err)

			now = now.AddDate(0, 0, 31)
			_, err = s.Append(ctx, Record{UserEmail: "a@b.co", Tool: "morse_code", InputData: "new", OutputData: "-."})
			require.NoError(t, err)

			records, err := s.List(ctx, "a@b.co", 10)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, "new", records[0].InputData)
		})
	}
}

func TestStore_RejectsInvalidRecords(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now()
			s := factory(&now)

			_, err := s.Append(context.Background(), Record{Tool: "base64"})
			assert.ErrorIs(t, err, ErrInvalidRecord)

			_, err = s.Append(context.Background(), Record{UserEmail: "a@b.co"})
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestFileStore_Encryption(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileStore(Options{Dir: dir, EncryptionPassword: "hunter2"}, testutil.CreateTestLogger())
	require.NoError(t, err)
	_, err = s.Append(ctx, Record{UserEmail: "a@b.co", Tool: "jwt", InputData: "very-secret-input", OutputData: "out"})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, historyFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "very-secret-input")

	records, err := s.List(ctx, "a@b.co", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "very-secret-input", records[0].InputData)

	wrong, err := NewFileStore(Options{Dir: dir, EncryptionPassword: "wrong"}, testutil.CreateTestLogger())
	require.NoError(t, err)
	_, err = wrong.List(ctx, "a@b.co", 10)
	assert.Error(t, err)
}

func TestFileStore_EncryptionPasswordFromEnv(t *testing.T) {
	t.Setenv(EncryptionPasswordEnvVar, "from-env")
	s, err := NewFileStore(Options{Dir: t.TempDir()}, testutil.CreateTestLogger())
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.encryptionPassword)
}

func TestFileStore_SizeLimit(t *testing.T) {
	s, err := NewFileStore(Options{Dir: t.TempDir(), MaxSizeBytes: 300}, testutil.CreateTestLogger())
	require.NoError(t, err)

	_, err = s.Append(context.Background(), Record{UserEmail: "a@b.co", Tool: "base64", InputData: "small", OutputData: "c21hbGw="})
	require.NoError(t, err)

	_, err = s.Append(context.Background(), Record{UserEmail: "a@b.co", Tool: "base64", InputData: strings.Repeat("x", 400), OutputData: "big"})
	assert.ErrorIs(t, err, ErrStorageFull)

	records, err := s.List(context.Background(), "a@b.co", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1, "a rejected append leaves the file untouched")
}

func TestFileStore_SkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(Options{Dir: dir}, testutil.CreateTestLogger())
	require.NoError(t, err)

	_, err = s.Append(context.Background(), Record{UserEmail: "a@b.co", Tool: "xml_convert", InputData: "<a/>", OutputData: "{}"})
	require.NoError(t, err)

	f, err := os.OpenFile(s.Path(), os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, err := s.List(context.Background(), "a@b.co", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestTruncateField(t *testing.T) {
	assert.Equal(t, "short", truncateField("short"))

	long := strings.Repeat("é", MaxFieldBytes)
	got := truncateField(long)
	assert.LessOrEqual(t, len(got), MaxFieldBytes)
	assert.True(t, strings.HasSuffix(got, truncatedMarker))
	assert.True(t, strings.HasPrefix(got, "éé"))
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(Options{Backend: "redis", Dir: t.TempDir()}, testutil.CreateTestLogger())
	assert.Error(t, err)
}

func TestFileStore_EscapeHeavyRecordStaysReadable(t *testing.T) {
	s, err := NewFileStore(Options{Dir: t.TempDir()}, testutil.CreateTestLogger())
	require.NoError(t, err)
	ctx := context.Background()

	quotes := strings.Repeat(`"`, 300000)
	controls := strings.Repeat("\x01", MaxFieldBytes)
	_, err = s.Append(ctx, Record{UserEmail: "heavy@example.com", Tool: "php_serialize", InputData: quotes, OutputData: controls})
	require.NoError(t, err)

	others, err := s.List(ctx, "someone@example.com", 10)
	require.NoError(t, err)
	assert.Empty(t, others)

	_, err = s.Append(ctx, Record{UserEmail: "someone@example.com", Tool: "base64", InputData: "hi", OutputData: "aGk="})
	require.NoError(t, err)

	heavy, err := s.List(ctx, "heavy@example.com", 10)
	require.NoError(t, err)
	require.Len(t, heavy, 1)
	assert.Equal(t, truncateField(quotes), heavy[0].InputData)
	assert.Equal(t, controls, heavy[0].OutputData)
}
