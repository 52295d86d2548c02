package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
app:
  name: notifyflow
  debug: true
  server:
    cors: "https://app.example.com, https://admin.example.com"
modules:
  orchestration:
    consumer_names:
      - domain_event_orchestration
    consumer_redeliveries: 5
    consumer_redelivery_delay_ms: 200
orchestration:
  scheduler:
    window_minutes: 5
    batch_size: 50
  dispatch:
    timeout_seconds: 10
    backoff_ms: 250
  idempotency:
    ttl_hours: 24
instrument:
  trace_sample_ratio: 0.5
  log_mask_fields: ""
`

func TestNewViperFromBytes(t *testing.T) {
	_, err := NewViperFromBytes(" ", nil)
	require.Error(t, err)

	_, err = NewViperFromBytes("yaml", []byte("app: [unclosed"))
	require.Error(t, err)

	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cfg.Close() })

	assert.Equal(t, "notifyflow", cfg.GetString("app.name"))
	assert.True(t, cfg.GetBool("app.debug"))
	assert.Equal(t, 50, cfg.GetInt("orchestration.scheduler.batch_size"))
	assert.Equal(t, int32(50), cfg.GetInt32("orchestration.scheduler.batch_size"))
	assert.Equal(t, int64(250), cfg.GetInt64("orchestration.dispatch.backoff_ms"))
	assert.Equal(t, uint64(5), cfg.GetUint64("modules.orchestration.consumer_redeliveries"))
	assert.InDelta(t, 0.5, cfg.GetFloat64("instrument.trace_sample_ratio"), 0.0001)

	assert.Equal(t, 250*time.Millisecond, cfg.GetMillisecond("orchestration.dispatch.backoff_ms"))
	assert.Equal(t, 10*time.Second, cfg.GetSecond("orchestration.dispatch.timeout_seconds"))
	assert.Equal(t, 5*time.Minute, cfg.GetMinute("orchestration.scheduler.window_minutes"))
	assert.Equal(t, 24*time.Hour, cfg.GetHour("orchestration.idempotency.ttl_hours"))
	assert.Equal(t, time.Duration(0), cfg.GetHour("missing"))
}

func TestViper_GetArray(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"domain_event_orchestration"}, cfg.GetArray("modules.orchestration.consumer_names"))
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.GetArray("app.server.cors"))
	assert.Empty(t, cfg.GetArray("instrument.log_mask_fields"))
	assert.Empty(t, cfg.GetArray("missing"))
}

func TestNewViper(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(sample), 0o600))

	cfg, err := NewViper(file)
	require.NoError(t, err)
	assert.Equal(t, "notifyflow", cfg.GetString("app.name"))
}
