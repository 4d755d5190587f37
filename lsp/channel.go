package lsp

import (
	"context"
	"sync"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// MessageChannel 向客户端发送带严重级别的文本消息。
// 实现必须保证并发调用时每条消息作为整体送达，互不交错。
type MessageChannel interface {
	Log(severity protocol.MessageType, text string)
}

// Notifier 发送 JSON-RPC 通知，jsonrpc2.Conn 满足该接口
type Notifier interface {
	Notify(ctx context.Context, method string, params interface{}) error
}

// publishDiagnosticsParams 仅包含服务端需要填写的字段
type publishDiagnosticsParams struct {
	URI         protocol.DocumentURI  `json:"uri"`
	Version     int32                 `json:"version,omitempty"`
	Diagnostics []protocol.Diagnostic `json:"diagnostics"`
}

// ClientChannel 通过 window/logMessage 把消息发给客户端，并同步写入服务端日志。
// 它同时实现 schema.DiagnosticsPublisher。
type ClientChannel struct {
	mu       sync.Mutex
	ctx      context.Context
	notifier Notifier
	logger   *zap.Logger
}

// NewClientChannel 创建客户端消息通道
func NewClientChannel(ctx context.Context, notifier Notifier, logger *zap.Logger) *ClientChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientChannel{
		ctx:      context.WithoutCancel(ctx),
		notifier: notifier,
		logger:   logger.With(zap.String("component", "message_channel")),
	}
}

// Log 发送一条日志消息
func (c *ClientChannel) Log(severity protocol.MessageType, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mirror(c.logger, severity, text)
	err := c.notifier.Notify(c.ctx, MethodLogMessage, &protocol.LogMessageParams{
		Type:    severity,
		Message: text,
	})
	if err != nil {
		c.logger.Warn("failed to deliver log message", zap.Error(err))
	}
}

// PublishDiagnostics 发布文档诊断
func (c *ClientChannel) PublishDiagnostics(uri string, version int32, diagnostics []protocol.Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.notifier.Notify(c.ctx, MethodPublishDiagnostics, &publishDiagnosticsParams{
		URI:         protocol.DocumentURI(uri),
		Version:     version,
		Diagnostics: diagnostics,
	})
	if err != nil {
		c.logger.Warn("failed to publish diagnostics",
			zap.String("uri", uri),
			zap.Error(err))
	}
}

// LoggerChannel 只写服务端日志的消息通道，用于没有客户端连接的场景
type LoggerChannel struct {
	logger *zap.Logger
}

// NewLoggerChannel 创建仅写日志的通道
func NewLoggerChannel(logger *zap.Logger) *LoggerChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggerChannel{logger: logger}
}

// Log writes the message to the server log.
func (c *LoggerChannel) Log(severity protocol.MessageType, text string) {
	mirror(c.logger, severity, text)
}

func mirror(logger *zap.Logger, severity protocol.MessageType, text string) {
	switch severity {
	case protocol.MessageTypeError:
		logger.Error(text, zap.String("channel", "client"))
	case protocol.MessageTypeWarning:
		logger.Warn(text, zap.String("channel", "client"))
	case protocol.MessageTypeInfo:
		logger.Info(text, zap.String("channel", "client"))
	default:
		logger.Debug(text, zap.String("channel", "client"))
	}
}

// SeverityName 返回严重级别的小写名称
func SeverityName(severity protocol.MessageType) string {
	switch severity {
	case protocol.MessageTypeError:
		return "error"
	case protocol.MessageTypeWarning:
		return "warning"
	case protocol.MessageTypeInfo:
		return "info"
	default:
		return "log"
	}
}
