package obslog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsToJSONForNonTTYOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})
	logger.Info("hello", slog.String("component", "retriever"))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "hello", parsed["msg"])
	assert.Equal(t, "retriever", parsed["component"])
}

func TestNew_ExplicitTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Format: "text"})
	logger.Info("hello")

	assert.True(t, strings.Contains(buf.String(), "msg=hello"))
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Level: "warn"})
	logger.Info("should not appear")
	logger.Warn("should appear")

	assert.False(t, strings.Contains(buf.String(), "should not appear"))
	assert.True(t, strings.Contains(buf.String(), "should appear"))
}

func TestSetupDefault_InstallsLogger(t *testing.T) {
	var buf bytes.Buffer
	SetupDefault(Config{Output: &buf, Format: "json"})
	slog.Default().Info("via default")

	assert.True(t, strings.Contains(buf.String(), "via default"))
}
