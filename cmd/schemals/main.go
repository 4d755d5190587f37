// =============================================================================
// Schemals 主入口
// =============================================================================
// 语言服务器入口点，支持 stdio / tcp / websocket 传输与 Prometheus 指标
//
// 使用方法:
//
//	schemals serve                                   # stdio 上服务一个编辑器
//	schemals serve --config schemals.yaml            # 指定配置文件
//	schemals serve --transport tcp --addr :7998      # 监听 tcp
//	schemals ping --transport websocket --addr ...   # 握手检查
//	schemals version                                 # 显示版本信息
// =============================================================================

package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/schemals/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "schemals: %v\n", err)
			os.Exit(1)
		}
	case "ping":
		if err := runPing(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Ping failed: %v\n", err)
			os.Exit(1)
		}
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("schemals %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`schemals - language server for schema files

Usage:
  schemals <command> [options]

Commands:
  serve     Start the language server
  ping      Handshake with a running tcp/websocket server
  version   Show version information
  help      Show this help message

Options for 'serve':
  --config <path>      Path to configuration file (YAML)
  --transport <name>   stdio, tcp or websocket (overrides config)
  --addr <host:port>   Listen address for tcp/websocket (overrides config)

Options for 'ping':
  --transport <name>   tcp or websocket (default tcp)
  --addr <host:port>   Server address (default 127.0.0.1:7998)
  --path <path>        WebSocket path (default /lsp)
  --tls                Connect with TLS
  --ca <file>          CA bundle used to verify the server
  --timeout <dur>      Overall timeout (default 5s)

Examples:
  schemals serve
  schemals serve --config /etc/schemals/config.yaml
  schemals serve --transport websocket --addr 0.0.0.0:7998
  schemals ping --addr 127.0.0.1:7998
  schemals version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

// initLogger 构建 logger，返回的 AtomicLevel 供配置重载时调整级别
func initLogger(cfg config.LogConfig) (*zap.Logger, zap.AtomicLevel) {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             level,
		Development:       cfg.Format == "console",
		Encoding:          "json",
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// stdout 属于 stdio 传输，回退 logger 只能写 stderr
		logger = zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	return logger, level
}

func parseLevel(s string) zapcore.Level {
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}
