package lsp

import (
	"context"
	"fmt"
	"sync"

	"go.lsp.dev/jsonrpc2"
)

// CodeRequestCancelled LSP 规定的请求取消错误码
const CodeRequestCancelled jsonrpc2.Code = -32800

// OutcomeKind 请求结果类别
type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota + 1
	OutcomeFailed
	OutcomeCancelled
)

// String returns the label used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// Outcome 查询请求的三态结果。
// Failed 时 Value 为该方法的安全默认值，Err 为失败原因。
type Outcome[T any] struct {
	Kind  OutcomeKind
	Value T
	Err   error
}

// Succeeded 构造成功结果
func Succeeded[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: OutcomeSucceeded, Value: v}
}

// Failed 构造失败结果
func Failed[T any](err error, fallback T) Outcome[T] {
	return Outcome[T]{Kind: OutcomeFailed, Value: fallback, Err: err}
}

// Cancelled 构造取消结果
func Cancelled[T any]() Outcome[T] {
	return Outcome[T]{Kind: OutcomeCancelled}
}

// Task 单个查询请求的异步执行单元。
//
// Task 持有派生的可取消 context，恰好完成一次。取消与完成互斥：
// Cancel 返回后不会再有结果被交付，也不会再产生任何副作用（日志、消息）。
type Task[T any] struct {
	method    string
	contained bool

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	finished bool
	outcome  Outcome[T]
	done     chan struct{}
}

func newTask[T any](parent context.Context, method string, contained bool) *Task[T] {
	ctx, cancel := context.WithCancel(parent)
	return &Task[T]{
		method:    method,
		contained: contained,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// resolvedTask 返回一个已完成的 Task，用于无需计算的方法
func resolvedTask[T any](method string, o Outcome[T]) *Task[T] {
	t := newTask[T](context.Background(), method, true)
	t.resolve(o, nil)
	return t
}

// Method 返回协议方法名
func (t *Task[T]) Method() string {
	return t.method
}

// Context 返回任务的 context，取消后即失效
func (t *Task[T]) Context() context.Context {
	return t.ctx
}

// Done 在任务完成（含取消）后关闭
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Cancel 发出取消信号。尚未完成的任务立即以 Cancelled 结束。
func (t *Task[T]) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancel()
	if !t.finished {
		t.finishLocked(Cancelled[T]())
	}
}

// Wait 阻塞直到任务完成
func (t *Task[T]) Wait() Outcome[T] {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

// resolve 交付结果。任务已结束或 context 已取消时返回 false，
// 此时 effects 不会执行；否则 effects 在交付前、持锁期间执行。
func (t *Task[T]) resolve(o Outcome[T], effects func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished {
		return false
	}
	if o.Kind != OutcomeCancelled && t.ctx.Err() != nil {
		t.finishLocked(Cancelled[T]())
		return false
	}
	if effects != nil {
		effects()
	}
	t.finishLocked(o)
	return o.Kind != OutcomeCancelled
}

func (t *Task[T]) finishLocked(o Outcome[T]) {
	t.finished = true
	t.outcome = o
	t.cancel()
	close(t.done)
}

// wireResult 把结果映射为 JSON-RPC 响应。
// 受保护方法的失败以默认值作答；其余方法的失败以 InternalError 作答。
func (t *Task[T]) wireResult() (any, error) {
	o := t.Wait()
	switch o.Kind {
	case OutcomeSucceeded:
		return o.Value, nil
	case OutcomeFailed:
		if t.contained {
			return o.Value, nil
		}
		return nil, jsonrpc2.NewError(jsonrpc2.InternalError, fmt.Sprintf("%s failed: %v", t.method, o.Err))
	default:
		return nil, jsonrpc2.NewError(CodeRequestCancelled, "request cancelled")
	}
}

// pendingRequest 是 Server 跟踪在途请求所需的最小接口
type pendingRequest interface {
	Done() <-chan struct{}
	Cancel()
	wireResult() (any, error)
}
