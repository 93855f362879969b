package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONWithContextFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: "json", Writer: &buf})
	require.NoError(t, err)

	ctx := ContextWithRequestID(ContextWithTraceID(context.Background(), "trace-1"), "req-1")
	FromContext(ctx, l).Info("priced", "model", "BlackScholes")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "priced", entry["msg"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "BlackScholes", entry["model"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "warn", Format: "text", Writer: &buf})
	require.NoError(t, err)

	l.Info("hidden")
	assert.Empty(t, buf.String())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestContextHelpersOnEmptyContext(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
	assert.Empty(t, RequestID(context.Background()))
}
