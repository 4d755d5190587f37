package lsp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/schemals/internal/ctxkeys"
	"github.com/BaSui01/schemals/schema"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CodeServerNotInitialized initialize 之前收到请求时的错误码
const CodeServerNotInitialized jsonrpc2.Code = -32002

// ServerOptions 服务器选项，除 Routines 外均可为零值
type ServerOptions struct {
	Info           protocol.ServerInfo
	Routines       Routines
	Legend         protocol.SemanticTokensLegend
	Executor       Executor
	Recorder       Recorder
	Tracer         trace.Tracer
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// Server 把 jsonrpc2 连接绑定到 Dispatcher。每个连接是一个独立会话，
// 拥有自己的调度器和符号索引。
type Server struct {
	opts   ServerOptions
	logger *zap.Logger
}

// NewServer 创建服务器
func NewServer(opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Info.Name == "" {
		opts.Info.Name = "schemals"
	}
	return &Server{
		opts:   opts,
		logger: opts.Logger.With(zap.String("component", "lsp_server")),
	}
}

// ServeConn 在 rwc 上运行一个会话，直到连接关闭或 ctx 取消
func (s *Server) ServeConn(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	sess := s.newSession(ctx, conn, conn)
	conn.Go(ctx, sess.handle)

	s.logger.Info("session started")
	select {
	case <-ctx.Done():
		_ = conn.Close()
		<-conn.Done()
	case <-conn.Done():
	}
	sess.cancelAll()
	s.logger.Info("session ended")

	if sess.exited.Load() || ctx.Err() != nil {
		return nil
	}
	if err := conn.Err(); err != nil && !isClosedErr(err) {
		return err
	}
	return nil
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}

// =============================================================================
// 🔗 会话
// =============================================================================

type requestHandler func(ctx context.Context, params json.RawMessage) (pendingRequest, error)

type notificationHandler func(ctx context.Context, params json.RawMessage) error

type session struct {
	server     *Server
	closer     io.Closer
	scheduler  *schema.Scheduler
	dispatcher *Dispatcher

	requests      map[string]requestHandler
	notifications map[string]notificationHandler

	mu       sync.Mutex
	inflight map[string]pendingRequest

	initialized  atomic.Bool
	shuttingDown atomic.Bool
	exited       atomic.Bool

	logger *zap.Logger
}

func (s *Server) newSession(ctx context.Context, notifier Notifier, closer io.Closer) *session {
	channel := NewClientChannel(ctx, notifier, s.opts.Logger)
	scheduler := schema.NewScheduler(
		schema.WithLogger(s.opts.Logger),
		schema.WithPublisher(channel),
	)

	opts := []DispatcherOption{
		WithDispatcherLogger(s.opts.Logger),
		WithRequestTimeout(s.opts.RequestTimeout),
	}
	if s.opts.Executor != nil {
		opts = append(opts, WithExecutor(s.opts.Executor))
	}
	if s.opts.Recorder != nil {
		opts = append(opts, WithRecorder(s.opts.Recorder))
	}
	if s.opts.Tracer != nil {
		opts = append(opts, WithTracer(s.opts.Tracer))
	}

	sess := &session{
		server:        s,
		closer:        closer,
		scheduler:     scheduler,
		dispatcher:    NewDispatcher(scheduler, channel, s.opts.Routines, opts...),
		requests:      make(map[string]requestHandler),
		notifications: make(map[string]notificationHandler),
		inflight:      make(map[string]pendingRequest),
		logger:        s.logger,
	}
	sess.registerHandlers()
	return sess
}

func (s *session) registerHandlers() {
	d := s.dispatcher

	s.RegisterRequest(MethodInitialize, s.handleInitialize)
	s.RegisterRequest(MethodShutdown, s.handleShutdown)

	s.RegisterRequest(MethodCompletion, query(d.Completion))
	s.RegisterRequest(MethodHover, query(d.Hover))
	s.RegisterRequest(MethodDefinition, query(d.Definition))
	s.RegisterRequest(MethodReferences, query(d.References))
	s.RegisterRequest(MethodDocumentSymbol, query(d.DocumentSymbol))
	s.RegisterRequest(MethodCodeAction, query(d.CodeAction))
	s.RegisterRequest(MethodResolveCodeAction, query(d.ResolveCodeAction))
	s.RegisterRequest(MethodPrepareRename, query(d.PrepareRename))
	s.RegisterRequest(MethodRename, query(d.Rename))
	s.RegisterRequest(MethodDocumentHighlight, query(d.DocumentHighlight))
	s.RegisterRequest(MethodSemanticTokensFull, query(d.SemanticTokensFull))

	s.RegisterNotification(MethodInitialized, func(context.Context, json.RawMessage) error { return nil })
	s.RegisterNotification(MethodExit, s.handleExit)
	s.RegisterNotification(MethodCancel, s.handleCancel)
	s.RegisterNotification(MethodDidOpen, notification(d.DidOpen))
	s.RegisterNotification(MethodDidChange, notification(d.DidChange))
	s.RegisterNotification(MethodDidClose, notification(d.DidClose))
	s.RegisterNotification(MethodDidSave, notification(d.DidSave))
}

// RegisterRequest 注册请求处理器
func (s *session) RegisterRequest(method string, h requestHandler) {
	s.requests[method] = h
}

// RegisterNotification 注册通知处理器
func (s *session) RegisterNotification(method string, h notificationHandler) {
	s.notifications[method] = h
}

func query[P, T any](fn func(context.Context, *P) *Task[T]) requestHandler {
	return func(ctx context.Context, raw json.RawMessage) (pendingRequest, error) {
		var p P
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return fn(ctx, &p), nil
	}
}

func notification[P any](fn func(context.Context, *P)) notificationHandler {
	return func(ctx context.Context, raw json.RawMessage) error {
		var p P
		if err := decodeParams(raw, &p); err != nil {
			return err
		}
		fn(ctx, &p)
		return nil
	}
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, "missing params")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
	}
	return nil
}

// handle 是 jsonrpc2 的处理函数，运行在连接的读循环上。
// 通知同步处理；请求登记为在途任务后由独立 goroutine 作答。
// 除写响应失败外不返回错误，否则连接会被关闭。
func (s *session) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	call, ok := req.(*jsonrpc2.Call)
	if !ok {
		s.handleNotification(ctx, req)
		return nil
	}

	method := req.Method()
	switch {
	case s.shuttingDown.Load():
		return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server is shutting down"))
	case method != MethodInitialize && !s.initialized.Load():
		return reply(ctx, nil, jsonrpc2.NewError(CodeServerNotInitialized, "server not initialized"))
	case IsUnsupported(method):
		s.dispatcher.Unsupported(method)
		return reply(ctx, nil, nil)
	}

	h, ok := s.requests[method]
	if !ok {
		return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.MethodNotFound, "method not found: "+method))
	}

	key := idKey(call.ID())
	reqCtx := ctxkeys.WithMethod(ctxkeys.WithRequestID(ctx, key), method)
	task, err := h(reqCtx, req.Params())
	if err != nil {
		return reply(ctx, nil, err)
	}

	s.track(key, task)
	go func() {
		defer s.untrack(key, task)
		result, err := task.wireResult()
		if err := reply(ctx, result, err); err != nil {
			s.logger.Warn("failed to write response", append(requestFields(reqCtx), zap.Error(err))...)
		}
	}()
	return nil
}

func (s *session) handleNotification(ctx context.Context, req jsonrpc2.Request) {
	h, ok := s.notifications[req.Method()]
	if !ok {
		s.logger.Debug("ignoring notification", zap.String("method", req.Method()))
		return
	}
	if err := h(ctx, req.Params()); err != nil {
		s.logger.Warn("notification failed",
			zap.String("method", req.Method()),
			zap.Error(err))
	}
}

func (s *session) handleInitialize(ctx context.Context, raw json.RawMessage) (pendingRequest, error) {
	var params protocol.InitializeParams
	if len(raw) > 0 {
		if err := decodeParams(raw, &params); err != nil {
			return nil, err
		}
	}
	if params.ClientInfo != nil {
		s.logger.Info("client connected",
			zap.String("client", params.ClientInfo.Name),
			zap.String("client_version", params.ClientInfo.Version))
	}
	s.initialized.Store(true)

	info := s.server.opts.Info
	result := &protocol.InitializeResult{
		Capabilities: Capabilities(s.server.opts.Legend),
		ServerInfo:   &info,
	}
	return resolvedTask[any](MethodInitialize, Succeeded[any](result)), nil
}

func (s *session) handleShutdown(context.Context, json.RawMessage) (pendingRequest, error) {
	s.shuttingDown.Store(true)
	s.cancelAll()
	return resolvedTask[any](MethodShutdown, Succeeded[any](nil)), nil
}

func (s *session) handleExit(context.Context, json.RawMessage) error {
	s.exited.Store(true)
	s.cancelAll()
	return s.closer.Close()
}

// cancelParams $/cancelRequest 参数，id 可以是数字或字符串
type cancelParams struct {
	ID json.RawMessage `json:"id"`
}

func (s *session) handleCancel(_ context.Context, raw json.RawMessage) error {
	var p cancelParams
	if err := decodeParams(raw, &p); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, p.ID); err != nil {
		return err
	}

	s.mu.Lock()
	task, ok := s.inflight[buf.String()]
	s.mu.Unlock()
	if ok {
		task.Cancel()
	}
	return nil
}

func (s *session) track(key string, task pendingRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight[key] = task
}

func (s *session) untrack(key string, task pendingRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[key] == task {
		delete(s.inflight, key)
	}
}

// cancelAll 取消全部在途请求
func (s *session) cancelAll() {
	s.mu.Lock()
	tasks := make([]pendingRequest, 0, len(s.inflight))
	for _, task := range s.inflight {
		tasks = append(tasks, task)
	}
	s.mu.Unlock()

	for _, task := range tasks {
		task.Cancel()
	}
}

func idKey(id jsonrpc2.ID) string {
	b, err := json.Marshal(&id)
	if err != nil {
		return ""
	}
	return string(b)
}
