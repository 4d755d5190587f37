// =============================================================================
// 📨 RecordingChannel - 消息通道模拟实现
// =============================================================================
// 记录每条消息，满足 lsp.MessageChannel 与 schema.DiagnosticsPublisher
//
// 使用方法:
//
//	channel := mocks.NewRecordingChannel()
//	dispatcher := lsp.NewDispatcher(scheduler, channel, routines)
//	errs := channel.BySeverity(protocol.MessageTypeError)
//
// =============================================================================
package mocks

import (
	"strings"
	"sync"

	"go.lsp.dev/protocol"
)

// Message 一条记录下来的消息
type Message struct {
	Severity protocol.MessageType
	Text     string
}

// RecordingChannel 记录全部消息的通道
type RecordingChannel struct {
	mu       sync.Mutex
	messages []Message
}

// NewRecordingChannel 创建记录通道
func NewRecordingChannel() *RecordingChannel {
	return &RecordingChannel{}
}

// Log 记录一条消息
func (c *RecordingChannel) Log(severity protocol.MessageType, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Severity: severity, Text: text})
}

// Messages 返回全部消息的副本
func (c *RecordingChannel) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len 返回消息数
func (c *RecordingChannel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// BySeverity 返回指定级别的消息
func (c *RecordingChannel) BySeverity(severity protocol.MessageType) []Message {
	var out []Message
	for _, m := range c.Messages() {
		if m.Severity == severity {
			out = append(out, m)
		}
	}
	return out
}

// Containing 返回文本包含 substr 的消息
func (c *RecordingChannel) Containing(substr string) []Message {
	var out []Message
	for _, m := range c.Messages() {
		if strings.Contains(m.Text, substr) {
			out = append(out, m)
		}
	}
	return out
}

// Reset 清空记录
func (c *RecordingChannel) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// =============================================================================
// 🩺 RecordingPublisher - 诊断发布模拟实现
// =============================================================================

// Publication 一次诊断发布
type Publication struct {
	URI         string
	Version     int32
	Diagnostics []protocol.Diagnostic
}

// RecordingPublisher 记录每次诊断发布
type RecordingPublisher struct {
	mu    sync.Mutex
	items []Publication
}

// NewRecordingPublisher 创建记录发布者
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// PublishDiagnostics 记录一次发布
func (p *RecordingPublisher) PublishDiagnostics(uri string, version int32, diagnostics []protocol.Diagnostic) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, Publication{URI: uri, Version: version, Diagnostics: diagnostics})
}

// All 返回全部发布记录
func (p *RecordingPublisher) All() []Publication {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Publication, len(p.items))
	copy(out, p.items)
	return out
}

// Last 返回 uri 最近一次发布
func (p *RecordingPublisher) Last(uri string) (Publication, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.items) - 1; i >= 0; i-- {
		if p.items[i].URI == uri {
			return p.items[i], true
		}
	}
	return Publication{}, false
}
