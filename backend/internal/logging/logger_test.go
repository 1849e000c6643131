package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, slog.LevelInfo)

	log.Debug("hidden")
	log.Error("save failed", "error", errors.New("boom"), "document_id", "d1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "save failed", line["msg"])
	assert.Equal(t, "boom", line["err"])
	assert.Equal(t, "d1", line["document_id"])
	assert.NotContains(t, line, "error")
}

func TestNewNop(t *testing.T) {
	assert.NotPanics(t, func() { NewNop().Info("nothing", "k", "v") })
}
