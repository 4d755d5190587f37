package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 请求指标
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// 文档生命周期指标
	lifecycleTotal *prometheus.CounterVec
	openDocuments  prometheus.Gauge

	// 消息通道指标
	channelMessages *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器。reg 为 nil 时注册到默认注册表。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.requestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lsp_requests_total",
			Help:      "Total number of LSP query requests by outcome",
		},
		[]string{"method", "outcome"},
	)

	c.requestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lsp_request_duration_seconds",
			Help:      "LSP query request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method"},
	)

	c.lifecycleTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_lifecycle_events_total",
			Help:      "Total number of document lifecycle notifications by result",
		},
		[]string{"event", "result"},
	)

	c.openDocuments = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_documents",
			Help:      "Number of documents currently open",
		},
	)

	c.channelMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_messages_total",
			Help:      "Total number of messages sent to the client by severity",
		},
		[]string{"severity"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 请求指标记录
// =============================================================================

// RecordRequest 记录查询请求的结果与耗时
func (c *Collector) RecordRequest(method, outcome string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(method, outcome).Inc()
	c.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// =============================================================================
// 📄 文档指标记录
// =============================================================================

// RecordLifecycle 记录生命周期通知
func (c *Collector) RecordLifecycle(event string, applied bool) {
	result := "applied"
	if !applied {
		result = "rejected"
	}
	c.lifecycleTotal.WithLabelValues(event, result).Inc()
}

// SetOpenDocuments 设置当前打开文档数
func (c *Collector) SetOpenDocuments(n int) {
	c.openDocuments.Set(float64(n))
}

// =============================================================================
// 💬 消息通道指标记录
// =============================================================================

// RecordChannelMessage 记录发往客户端的日志消息
func (c *Collector) RecordChannelMessage(severity string) {
	c.channelMessages.WithLabelValues(severity).Inc()
}
