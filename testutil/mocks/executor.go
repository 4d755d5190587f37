// =============================================================================
// ⚙️ Executor / Recorder 模拟实现
// =============================================================================
// 用于测试分发器的调度失败与指标记录
// =============================================================================
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/schemals/internal/pool"
)

// RejectingExecutor 拒绝所有任务
type RejectingExecutor struct {
	Err error
}

// Submit 返回配置的错误
func (e RejectingExecutor) Submit(context.Context, pool.Task) error {
	if e.Err == nil {
		return pool.ErrPoolFull
	}
	return e.Err
}

// GatedExecutor 暂存任务，直到 Release 才执行
type GatedExecutor struct {
	mu      sync.Mutex
	pending []func()
}

// NewGatedExecutor 创建暂存执行器
func NewGatedExecutor() *GatedExecutor {
	return &GatedExecutor{}
}

// Submit 暂存任务
func (e *GatedExecutor) Submit(ctx context.Context, task pool.Task) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, func() { _ = task(ctx) })
	return nil
}

// Pending 返回暂存的任务数
func (e *GatedExecutor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Release 同步执行全部暂存任务
func (e *GatedExecutor) Release() {
	e.mu.Lock()
	tasks := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, run := range tasks {
		run()
	}
}

// RequestRecord 一次请求指标
type RequestRecord struct {
	Method   string
	Outcome  string
	Duration time.Duration
}

// RecordingRecorder 记录分发器指标调用
type RecordingRecorder struct {
	mu        sync.Mutex
	requests  []RequestRecord
	lifecycle map[string]int
	open      int
	messages  map[string]int
}

// NewRecordingRecorder 创建指标记录器
func NewRecordingRecorder() *RecordingRecorder {
	return &RecordingRecorder{
		lifecycle: make(map[string]int),
		messages:  make(map[string]int),
	}
}

// RecordRequest 记录请求结果
func (r *RecordingRecorder) RecordRequest(method, outcome string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, RequestRecord{Method: method, Outcome: outcome, Duration: d})
}

// RecordLifecycle 记录生命周期事件
func (r *RecordingRecorder) RecordLifecycle(event string, applied bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := event + "/rejected"
	if applied {
		key = event + "/applied"
	}
	r.lifecycle[key]++
}

// SetOpenDocuments 记录打开文档数
func (r *RecordingRecorder) SetOpenDocuments(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = n
}

// RecordChannelMessage 记录通道消息
func (r *RecordingRecorder) RecordChannelMessage(severity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[severity]++
}

// Requests 返回全部请求记录
func (r *RecordingRecorder) Requests() []RequestRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RequestRecord, len(r.requests))
	copy(out, r.requests)
	return out
}

// Lifecycle 返回 "event/applied" 或 "event/rejected" 的计数
func (r *RecordingRecorder) Lifecycle(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lifecycle[key]
}

// OpenDocuments 返回最近一次记录的打开文档数
func (r *RecordingRecorder) OpenDocuments() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

// ChannelMessages 返回指定级别的通道消息计数
func (r *RecordingRecorder) ChannelMessages(severity string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages[severity]
}
