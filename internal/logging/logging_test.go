package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("test", Options{Level: "loud"})
	assert.Error(t, err)
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.log")
	logger, err := New("test", Options{Level: "debug", File: path, MaxSize: 1})
	require.NoError(t, err)

	logger.Info("conversation taken")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "conversation taken")
	assert.Contains(t, string(data), `"service":"test"`)
}
