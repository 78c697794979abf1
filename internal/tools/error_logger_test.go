package tools

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEntries(t *testing.T, path string) []ErrorEntry {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []ErrorEntry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var e ErrorEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestErrorLog_MasksSecrets(t *testing.T) {
	l, err := OpenErrorLog(t.TempDir(), testutil.CreateTestLogger())
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	l.Record("jwt", map[string]any{
		"token":  "eyJ...",
		"secret": "hunter2",
		"action": "decode",
	}, errors.New("invalid JWT"), "stdio")

	entries := readEntries(t, l.Path())
	require.Len(t, entries, 1)
	assert.Equal(t, "jwt", entries[0].ToolName)
	assert.Equal(t, "invalid JWT", entries[0].Error)
	assert.Equal(t, "stdio", entries[0].Transport)
	assert.Equal(t, maskedValue, entries[0].Arguments["token"])
	assert.Equal(t, maskedValue, entries[0].Arguments["secret"])
	assert.Equal(t, "decode", entries[0].Arguments["action"])
}

func TestErrorLog_PruneDropsOldEntries(t *testing.T) {
	l, err := OpenErrorLog(t.TempDir(), testutil.CreateTestLogger())
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now.AddDate(0, 0, -ErrorLogRetentionDays-1) }
	l.Record("base64", nil, errors.New("old"), "http")
	l.now = func() time.Time { return now }
	l.Record("base64", nil, errors.New("new"), "http")

	require.NoError(t, l.prune())

	entries := readEntries(t, l.Path())
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Error)

	// appends again after pruning
	l.Record("base64", nil, errors.New("after"), "http")
	assert.Len(t, readEntries(t, l.Path()), 2)
}

func TestErrorLog_Disabled(t *testing.T) {
	var l *ErrorLog
	l.Record("json_format", nil, errors.New("ignored"), "stdio")
	assert.False(t, l.Enabled())
	assert.Empty(t, l.Path())
	assert.NoError(t, l.Close())
}

func TestMaskArguments(t *testing.T) {
	assert.Nil(t, MaskArguments(nil))

	long := strings.Repeat("a", maxLoggedArgLen+10)
	masked := MaskArguments(map[string]any{
		"input":              long,
		"HISTORY_PASSWORD":   "x",
		"indent":             float64(2),
		"encryption_api_key": "k",
	})
	assert.True(t, strings.HasSuffix(masked["input"].(string), "...[truncated]"))
	assert.Equal(t, maskedValue, masked["HISTORY_PASSWORD"])
	assert.Equal(t, maskedValue, masked["encryption_api_key"])
	assert.Equal(t, float64(2), masked["indent"])
}
