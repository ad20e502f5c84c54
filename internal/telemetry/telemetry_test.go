package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, "grpc", cfg.Protocol)
	assert.Equal(t, "grounderd", cfg.ServiceName)
	assert.Equal(t, 30*time.Second, cfg.ExportInterval)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Enabled: true, Endpoint: "collector:4317", Protocol: "carrier-pigeon"}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.Protocol = "grpc"
	assert.NoError(t, cfg.Validate())

	disabled := Config{Enabled: false}
	assert.NoError(t, disabled.Validate())
}

func TestNewDisabledIsNoop(t *testing.T) {
	tel, err := New(context.Background(), Config{Enabled: false}, "test")
	require.NoError(t, err)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "collector:4317", stripScheme("http://collector:4317"))
	assert.Equal(t, "collector:4318", stripScheme("https://collector:4318"))
	assert.Equal(t, "collector:4317", stripScheme("collector:4317"))
}
