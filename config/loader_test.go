// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, "/lsp", cfg.Server.WebSocketPath)
	assert.Equal(t, float64(8<<20), cfg.Server.ReadBytesPerSecond)
	assert.Equal(t, 1<<20, cfg.Server.ReadBurst)
	assert.Equal(t, 32, cfg.Dispatcher.MaxWorkers)
	assert.Equal(t, 256, cfg.Dispatcher.QueueSize)
	assert.Zero(t, cfg.Dispatcher.RequestTimeout)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "schemals", cfg.Metrics.Namespace)
	assert.Equal(t, []string{"stderr"}, cfg.Log.OutputPaths, "stdout belongs to the stdio transport")
	assert.Equal(t, "schemals", cfg.Telemetry.ServiceName)

	require.NoError(t, cfg.Validate())
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  transport: tcp
  addr: "0.0.0.0:9000"
dispatcher:
  max_workers: 4
  request_timeout: 750ms
metrics:
  enabled: true
log:
  level: debug
  format: console
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, TransportTCP, cfg.Server.Transport)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Dispatcher.MaxWorkers)
	assert.Equal(t, 256, cfg.Dispatcher.QueueSize, "unset keys keep their defaults")
	assert.Equal(t, 750*time.Millisecond, cfg.Dispatcher.RequestTimeout)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("SCHEMALS_SERVER_TRANSPORT", "websocket")
	t.Setenv("SCHEMALS_SERVER_READ_BYTES_PER_SECOND", "0")
	t.Setenv("SCHEMALS_DISPATCHER_QUEUE_SIZE", "8")
	t.Setenv("SCHEMALS_DISPATCHER_REQUEST_TIMEOUT", "2s")
	t.Setenv("SCHEMALS_TELEMETRY_SAMPLE_RATE", "0.25")
	t.Setenv("SCHEMALS_TELEMETRY_ENABLED", "true")
	t.Setenv("SCHEMALS_LOG_OUTPUT_PATHS", "stderr, /tmp/schemals.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, TransportWebSocket, cfg.Server.Transport)
	assert.Zero(t, cfg.Server.ReadBytesPerSecond, "zero disables the read limit")
	assert.Equal(t, 8, cfg.Dispatcher.QueueSize)
	assert.Equal(t, 2*time.Second, cfg.Dispatcher.RequestTimeout)
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRate)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, []string{"stderr", "/tmp/schemals.log"}, cfg.Log.OutputPaths)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")
	t.Setenv("SCHEMALS_LOG_LEVEL", "error")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("LS_METRICS_NAMESPACE", "custom")

	cfg, err := NewLoader().WithEnvPrefix("LS").Load()
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Metrics.Namespace)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("SCHEMALS_DISPATCHER_MAX_WORKERS", "many")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEMALS_DISPATCHER_MAX_WORKERS")
}

func TestLoader_WithValidator(t *testing.T) {
	path := writeConfig(t, "server:\n  transport: carrier-pigeon\n")

	_, err := NewLoader().
		WithConfigPath(path).
		WithValidator((*Config).Validate).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/schemals.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, TransportStdio, cfg.Server.Transport)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")

	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"tcp without addr", func(c *Config) { c.Server.Transport = TransportTCP; c.Server.Addr = "" }, "requires server.addr"},
		{"websocket path", func(c *Config) { c.Server.Transport = TransportWebSocket; c.Server.WebSocketPath = "lsp" }, "websocket_path"},
		{"tls pair", func(c *Config) { c.Server.TLSCertFile = "server.pem" }, "tls_cert_file"},
		{"read rate", func(c *Config) { c.Server.ReadBytesPerSecond = -1 }, "read_bytes_per_second"},
		{"read burst", func(c *Config) { c.Server.ReadBurst = -1 }, "read_burst"},
		{"workers", func(c *Config) { c.Dispatcher.MaxWorkers = 0 }, "max_workers"},
		{"queue", func(c *Config) { c.Dispatcher.QueueSize = -1 }, "queue_size"},
		{"timeout", func(c *Config) { c.Dispatcher.RequestTimeout = -time.Second }, "request_timeout"},
		{"metrics addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" }, "metrics.addr"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "invalid log level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "invalid log format"},
		{"sample rate", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "sample_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
