package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(LogOption{Format: "json", LogDir: dir, Level: "debug"}))

	Infof("[LoggerTest] hello %s", "deployer")
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[LoggerTest] hello deployer")
	assert.Contains(t, string(data), `"level":"info"`)
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(LogOption{Level: "verbose"})
	assert.Error(t, err)
}

func TestLevelFilter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(LogOption{Format: "console", LogDir: dir, Level: "warn"}))

	Infof("[LoggerTest] 不应出现")
	Warnf("[LoggerTest] 应该出现")
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "不应出现")
	assert.Contains(t, string(data), "应该出现")
}
