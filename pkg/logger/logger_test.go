package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Initialize(Config{Level: level, Format: "json", Output: &buf})
	t.Cleanup(func() {
		Initialize(Config{Level: "info", Format: "console"})
	})
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &entry))
		out = append(out, entry)
	}
	return out
}

func TestPackageLevel_WritesFieldsAndCaller(t *testing.T) {
	buf := captureJSON(t, "info")

	Info("Cart fetched", Fields{"shop_id": 5})
	Error("Cart fetch failed", errors.New("boom"), Fields{"shop_id": 5})

	entries := lines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "Cart fetched", entries[0]["message"])
	assert.Equal(t, "info", entries[0]["level"])
	assert.EqualValues(t, 5, entries[0]["shop_id"])
	assert.Equal(t, "marche241-gateway", entries[0]["service"])
	assert.Contains(t, entries[0]["caller"], "logger_test.go")
	assert.Equal(t, "boom", entries[1]["error"])
}

func TestLevelFiltering(t *testing.T) {
	buf := captureJSON(t, "warn")

	Debug("hidden")
	Info("hidden")
	Warn("shown")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["message"])
}

func TestWithContext_CarriesFields(t *testing.T) {
	buf := captureJSON(t, "debug")

	l := WithContext(Fields{"request_id": "r-1"})
	l.Debug("handled")
	l.Warn("slow", Fields{"latency_ms": 900})

	entries := lines(t, buf)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "r-1", e["request_id"])
	}
	assert.EqualValues(t, 900, entries[1]["latency_ms"])
	assert.Contains(t, entries[1]["caller"], "logger_test.go")
}
