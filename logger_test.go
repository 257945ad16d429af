package wydecoder

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Printf(format string, v ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
}

func withLogger(t *testing.T, logger Logger, level LogLevel) {
	t.Helper()
	previousLogger, previousLevel := currentLogger(), currentLogLevel()
	SetLogger(logger)
	SetLogLevel(level)
	t.Cleanup(func() {
		SetLogger(previousLogger)
		SetLogLevel(previousLevel)
	})
}

func TestLogLevelFiltering(t *testing.T) {
	recorder := &recordingLogger{}
	withLogger(t, recorder, LogLevelWarn)

	logDebug("debug %d", 1)
	logInfo("info %d", 2)
	logWarn("warn %d", 3)
	Warnf("backend %s", "warning")
	logError("error %d", 4)

	assert.Equal(t, []string{"WARNING: warn 3", "WARNING: backend warning", "ERROR: error 4"}, recorder.lines)

	SetLogLevel(LogLevelQuiet)
	logError("dropped")
	assert.Len(t, recorder.lines, 3)
}

func TestLogLevelConcurrentUpdates(t *testing.T) {
	var out bytes.Buffer
	withLogger(t, NewConsoleLogger(&out), LogLevelQuiet)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				SetLogLevel(LogLevelQuiet)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				logDebug("frame %d", j)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, LogLevelQuiet, currentLogLevel())
	assert.Empty(t, out.String())
}

func TestNewSessionAppliesLogLevel(t *testing.T) {
	withLogger(t, &recordingLogger{}, LogLevelInfo)

	config := DefaultConfig()
	config.LogLevel = "error"
	session := NewSession(config, (&memOpener{frames: 1}).open)
	defer session.Close()

	assert.Equal(t, LogLevelError, currentLogLevel())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		level LogLevel
	}{
		{"debug", LogLevelDebug},
		{"INFO", LogLevelInfo},
		{"", LogLevelInfo},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"quiet", LogLevelQuiet},
	}
	for _, test := range tests {
		level, err := ParseLogLevel(test.input)
		require.NoError(t, err, test.input)
		assert.Equal(t, test.level, level, test.input)
		assert.NotEqual(t, "unknown", level.String())
	}

	_, err := ParseLogLevel("verbose")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConsoleLogger(t *testing.T) {
	var out bytes.Buffer
	logger := NewConsoleLogger(&out)
	withLogger(t, logger, LogLevelDebug)

	logInfo("[%s] probing %v", "abcd1234", "1s")
	logDebug("plain %d", 7)
	assert.Equal(t, "INFO: [abcd1234] probing 1s\nDEBUG: plain 7\n", out.String(), "no colors when not writing to a terminal")
}
