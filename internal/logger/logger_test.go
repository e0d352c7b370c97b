package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// created at package init, before any Initialize call
var initTimeLogger = GetForComponent("init_time_component")

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func resetOutput(t *testing.T) {
	previous := zerolog.GlobalLevel()
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(previous)
		output.set(newOutput(os.Stdout))
	})
}

func TestComponentLoggerWritesToExtraWriter(t *testing.T) {
	resetOutput(t)

	var buf bytes.Buffer
	Initialize("debug", &buf)

	l := GetForComponent("test_component")
	l.Info().Str("vault", "0xabc").Msg("hello")

	require.Contains(t, buf.String(), `"component":"test_component"`)
	require.Contains(t, buf.String(), `"vault":"0xabc"`)
}

func TestPackageLevelLoggerFollowsInitialize(t *testing.T) {
	resetOutput(t)

	var buf bytes.Buffer
	Initialize("debug", &buf)

	initTimeLogger.Info().Msg("after initialize")

	require.Contains(t, buf.String(), `"component":"init_time_component"`)
	require.Contains(t, buf.String(), `"message":"after initialize"`)
}

func TestInitializeRespectsLevel(t *testing.T) {
	resetOutput(t)

	var buf bytes.Buffer
	Initialize("warn", &buf)

	initTimeLogger.Info().Msg("dropped")
	initTimeLogger.Warn().Msg("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valuator.log")

	w, err := FileWriter(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&0022, "log file must not be group or world writable")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(content))
}
