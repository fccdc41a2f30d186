package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf)

	logger.LogInfo("resolved %d urls", 3)
	logger.LogError("failed: %s", "boom")
	logger.SetDebug(false)
	logger.LogDebug("hidden")

	out := buf.String()
	assert.Contains(t, out, "[INFO] resolved 3 urls")
	assert.Contains(t, out, "[ERROR] failed: boom")
	assert.NotContains(t, out, "hidden")
	assert.NoError(t, logger.Close())
	assert.Equal(t, "", logger.Path())
}

func TestCrawlerLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewCrawlerLogger(dir, "SEO Audit")
	require.NoError(t, err)

	logger.LogInfo("hello %s", "file")
	require.NoError(t, logger.Close())

	path := logger.Path()
	assert.True(t, strings.HasPrefix(path, filepath.Join(dir, "seo_audit")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] hello file")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *CrawlerLogger
	assert.NotPanics(t, func() {
		logger.LogInfo("nothing")
		logger.LogDebug("nothing")
		_ = logger.Close()
	})
}
