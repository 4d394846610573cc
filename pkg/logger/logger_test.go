package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestDailyRotatingWriter(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDailyRotatingWriter(filepath.Join(dir, "logs"), "test-%s.log")
	require.NoError(t, err)
	defer w.Close()

	day := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	w.now = func() time.Time { return day }

	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)
	firstPath := filepath.Join(dir, "logs", "test-2026-03-01.log")
	assert.Equal(t, firstPath, w.CurrentPath())

	day = day.Add(24 * time.Hour)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)
	secondPath := filepath.Join(dir, "logs", "test-2026-03-02.log")
	assert.Equal(t, secondPath, w.CurrentPath())

	first, err := os.ReadFile(firstPath)
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(first))

	second, err := os.ReadFile(secondPath)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(second))
}

func TestDailyRotatingWriterReopensAfterClose(t *testing.T) {
	w, err := NewDailyRotatingWriter(t.TempDir(), "reopen-%s.log")
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("again\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}
