package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New("info", "json", &buf)
	require.NoError(t, err)

	logger.Info("unit-test-log", "component", "logging")
	logger.Debug("hidden")

	require.Contains(t, buf.String(), `"msg":"unit-test-log"`)
	require.Contains(t, buf.String(), `"component":"logging"`)
	require.NotContains(t, buf.String(), "hidden")
}

func TestNewTextLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New("debug", "text", &buf)
	require.NoError(t, err)

	logger.Debug("visible", "interview_id", "iv-1")
	require.Contains(t, buf.String(), "msg=visible")
	require.Contains(t, buf.String(), "interview_id=iv-1")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New("info", "xml", &bytes.Buffer{})
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for raw, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}
