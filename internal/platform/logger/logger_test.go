package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/platform/config"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"})

	log.Info("dropped")
	log.Warn("kept", "task_id", "t-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "t-1", line["task_id"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, config.LogConfig{Level: "debug", Format: "text"})
	log.Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
