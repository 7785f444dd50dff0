package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	l, err := NewLogger(LevelDebug, path)
	require.NoError(t, err)

	l.Info("hello %s", "world")
	l.Debug("debug line")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "[INFO] hello world")
	assert.Contains(t, content, "[DEBUG] debug line")
}

func TestLoggerLevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	l, err := NewLogger(LevelWarn, path)
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("kept")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestGlobalLoggerNilSafe(t *testing.T) {
	old := GlobalLogger
	GlobalLogger = nil
	defer func() { GlobalLogger = old }()

	assert.NotPanics(t, func() {
		Debug("x")
		Info("x")
		Warn("x")
		Error("x")
		Script("guild", "value")
	})
}

func TestRotationThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 100)), 0644))

	r := NewRotation(path, 1000)
	assert.False(t, r.ShouldRotate())

	r = NewRotation(path, 50)
	assert.True(t, r.ShouldRotate())
}

func TestRotateRenamesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0644))

	r := NewRotation(path, 1)
	newPath, err := r.Rotate()
	require.NoError(t, err)

	assert.NoFileExists(t, path)
	assert.FileExists(t, newPath)
	assert.True(t, strings.HasPrefix(filepath.Base(newPath), "test-"))
	assert.True(t, strings.HasSuffix(newPath, ".log"))
}
