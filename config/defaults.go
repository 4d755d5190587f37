// =============================================================================
// 📦 Schemals 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Dispatcher: DefaultDispatcherConfig(),
		Metrics:    DefaultMetricsConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认传输配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Transport:          TransportStdio,
		Addr:               "127.0.0.1:7998",
		WebSocketPath:      "/lsp",
		ShutdownTimeout:    5 * time.Second,
		ConfigPollInterval: 2 * time.Second,
		ReadBytesPerSecond: 8 << 20,
		ReadBurst:          1 << 20,
	}
}

// DefaultDispatcherConfig 返回默认分发配置
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxWorkers:     32,
		QueueSize:      256,
		RequestTimeout: 0,
		IdleTimeout:    30 * time.Second,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Addr:      "127.0.0.1:9464",
		Namespace: "schemals",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "schemals",
		SampleRate:   0.1,
	}
}
