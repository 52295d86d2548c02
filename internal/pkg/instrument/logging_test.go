package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopedHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(&scoped{
		Handler: newStdoutHandler(&buf),
		service: "notifyflow",
		mask:    map[string]struct{}{"x-cron-secret": {}},
	})

	ctx := SetCorrelationID(context.Background(), "cid-9")
	log.With("X-Cron-Secret", "s3cret").InfoContext(ctx, "cron triggered",
		slog.Group("request", slog.String("x-cron-secret", "s3cret"), slog.Int("batch", 50)),
		"event_id", 7,
	)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "cron triggered", line["msg"])
	assert.Equal(t, "INFO", line["severity"])
	assert.Contains(t, line, "ts")
	assert.Equal(t, "cid-9", line["_cID"])
	assert.Equal(t, "notifyflow", line["service"])
	assert.Equal(t, maskedValue, line["X-Cron-Secret"])
	assert.Equal(t, map[string]any{"x-cron-secret": maskedValue, "batch": float64(50)}, line["request"])
	assert.Equal(t, float64(7), line["event_id"])
	assert.Contains(t, line["file"], "internal/pkg/instrument/logging_test.go:")
}

func TestNew_DisabledIsNoop(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	ins, err := New(context.Background(), Config{ServiceName: "notifyflow"})
	require.NoError(t, err)
	assert.IsType(t, noop{}, ins)
	assert.NoError(t, ins.Shutdown(context.Background()))
}
