package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// =============================================================================
// 🔌 字节流传输
// =============================================================================

// ConnHandler 处理一条双向字节流，直到对端断开或 ctx 结束
type ConnHandler func(ctx context.Context, conn io.ReadWriteCloser) error

// StreamOption 字节流传输选项
type StreamOption func(*streamOptions)

type streamOptions struct {
	readRate  rate.Limit
	readBurst int
}

// WithReadLimit 为每条连接设置独立的入站字节速率限制。
// bytesPerSecond <= 0 表示不限制；burst <= 0 时取一秒的配额。
func WithReadLimit(bytesPerSecond float64, burst int) StreamOption {
	return func(o *streamOptions) {
		o.readRate = rate.Limit(bytesPerSecond)
		o.readBurst = burst
	}
}

func buildStreamOptions(opts []StreamOption) streamOptions {
	var o streamOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// limit 按需把 conn 包装为限速读取的连接
func (o streamOptions) limit(ctx context.Context, conn io.ReadWriteCloser) io.ReadWriteCloser {
	if o.readRate <= 0 {
		return conn
	}
	burst := o.readBurst
	if burst <= 0 {
		burst = max(int(o.readRate), 1)
	}
	return &limitedConn{ReadWriteCloser: conn, ctx: ctx, limiter: rate.NewLimiter(o.readRate, burst)}
}

// limitedConn 每次读取后按读到的字节数等待令牌。
// 单次读取不超过 burst，因此 WaitN 不会因超出桶容量而失败。
type limitedConn struct {
	io.ReadWriteCloser
	ctx     context.Context
	limiter *rate.Limiter
}

func (c *limitedConn) Read(p []byte) (int, error) {
	if burst := c.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := c.ReadWriteCloser.Read(p)
	if n > 0 {
		if werr := c.limiter.WaitN(c.ctx, n); werr != nil && err == nil {
			err = werr
		}
	}
	return n, err
}

// ServeTCP 在 listener 上接受连接，每条连接交给 handle 独立处理。
// ctx 结束后关闭 listener 并等待所有连接返回。
func ServeTCP(ctx context.Context, listener net.Listener, handle ConnHandler, logger *zap.Logger, opts ...StreamOption) error {
	o := buildStreamOptions(opts)
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "tcp_transport"))

	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	logger.Info("accepting connections", zap.String("addr", listener.Addr().String()))

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			remote := conn.RemoteAddr().String()
			logger.Debug("connection opened", zap.String("remote", remote))
			if err := handle(ctx, o.limit(ctx, conn)); err != nil {
				logger.Warn("connection ended with error", zap.String("remote", remote), zap.Error(err))
			}
			conn.Close()
			logger.Debug("connection closed", zap.String("remote", remote))
		}()
	}
}

// WebSocketHandler 把每个 websocket 连接适配为字节流交给 handle。
// base 结束时所有连接随之结束，不依赖 http.Server 的关闭流程。
func WebSocketHandler(base context.Context, handle ConnHandler, logger *zap.Logger, opts ...StreamOption) http.Handler {
	o := buildStreamOptions(opts)
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "websocket_transport"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}

		ctx, cancel := context.WithCancel(base)
		defer cancel()
		stop := context.AfterFunc(r.Context(), cancel)
		defer stop()

		conn := websocket.NetConn(ctx, ws, websocket.MessageText)
		defer conn.Close()

		logger.Debug("websocket connection opened", zap.String("remote", r.RemoteAddr))
		if err := handle(ctx, o.limit(ctx, conn)); err != nil {
			logger.Warn("websocket connection ended with error", zap.String("remote", r.RemoteAddr), zap.Error(err))
		}
	})
}
