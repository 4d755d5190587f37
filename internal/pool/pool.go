// Package pool 提供有界的 goroutine 池，用于执行查询类请求。
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrPoolClosed = errors.New("pool is closed")
	ErrPoolFull   = errors.New("pool is full")
)

// Task 池中执行的一个工作单元
type Task func(ctx context.Context) error

// PanicError 任务发生 panic 时返回的错误
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Config 池配置
type Config struct {
	MaxWorkers   int
	QueueSize    int
	IdleTimeout  time.Duration
	PanicHandler func(*PanicError)
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxWorkers:  32,
		QueueSize:   256,
		IdleTimeout: 30 * time.Second,
	}
}

// Pool 按需启动 worker，空闲超时后回收多余的 worker。
// 队列满且 worker 已达上限时，Submit 立即返回 ErrPoolFull 而不是阻塞调用方。
type Pool struct {
	cfg   Config
	queue chan job

	// mu 保护 queue 的关闭：Submit 持读锁发送，Close 持写锁关闭
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	workers   atomic.Int32
	active    atomic.Int32
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
}

type job struct {
	ctx  context.Context
	task Task
}

// New 创建池
func New(cfg Config) *Pool {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultConfig().IdleTimeout
	}
	return &Pool{
		cfg:   cfg,
		queue: make(chan job, cfg.QueueSize),
	}
}

// Submit 提交任务，不等待其完成。
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	p.submitted.Add(1)

	select {
	case p.queue <- job{ctx: ctx, task: task}:
		p.ensureWorker()
		return nil
	default:
	}

	if p.spawnWorker() {
		select {
		case p.queue <- job{ctx: ctx, task: task}:
			return nil
		default:
		}
	}
	p.rejected.Add(1)
	return ErrPoolFull
}

func (p *Pool) ensureWorker() {
	if int(p.workers.Load()) < p.cfg.MaxWorkers {
		p.spawnWorker()
	}
}

func (p *Pool) spawnWorker() bool {
	for {
		n := p.workers.Load()
		if int(n) >= p.cfg.MaxWorkers {
			return false
		}
		if p.workers.CompareAndSwap(n, n+1) {
			p.wg.Add(1)
			go p.work()
			return true
		}
	}
}

func (p *Pool) work() {
	defer p.wg.Done()

	timer := time.NewTimer(p.cfg.IdleTimeout)
	defer timer.Stop()

	for {
		select {
		case j, ok := <-p.queue:
			if !ok {
				p.workers.Add(-1)
				return
			}
			p.active.Add(1)
			if err := p.run(j); err != nil {
				p.failed.Add(1)
			} else {
				p.completed.Add(1)
			}
			p.active.Add(-1)
			timer.Reset(p.cfg.IdleTimeout)

		case <-timer.C:
			// 至少保留一个 worker；CAS 保证并发退出时不会把数量减到零
			if n := p.workers.Load(); n > 1 && p.workers.CompareAndSwap(n, n-1) {
				return
			}
			timer.Reset(p.cfg.IdleTimeout)
		}
	}
}

func (p *Pool) run(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pe := &PanicError{Value: r, Stack: debug.Stack()}
			if p.cfg.PanicHandler != nil {
				p.cfg.PanicHandler(pe)
			}
			err = pe
		}
	}()
	return j.task(j.ctx)
}

// Close 停止接收新任务，等待已排队的任务执行完毕。
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// Stats 池统计
type Stats struct {
	Workers   int   `json:"workers"`
	Active    int   `json:"active"`
	Queued    int   `json:"queued"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
}

// Stats 返回当前统计
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   int(p.workers.Load()),
		Active:    int(p.active.Load()),
		Queued:    len(p.queue),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
	}
}
