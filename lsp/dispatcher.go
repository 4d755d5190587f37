package lsp

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/BaSui01/schemals/internal/ctxkeys"
	"github.com/BaSui01/schemals/internal/pool"
	"github.com/BaSui01/schemals/internal/telemetry"
	"github.com/BaSui01/schemals/schema"
	"github.com/google/uuid"
	"go.lsp.dev/protocol"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// =============================================================================
// 🔌 依赖接口
// =============================================================================

// DocumentScheduler 分发器所需的调度器能力，*schema.Scheduler 满足该接口
type DocumentScheduler interface {
	DocumentSource
	Open(item protocol.TextDocumentItem) error
	ApplyEdit(uri string, version int32, edit schema.Edit) error
	Close(uri string) error
}

// Executor 执行查询任务，*pool.Pool 满足该接口
type Executor interface {
	Submit(ctx context.Context, task pool.Task) error
}

// Recorder 记录分发器指标，*metrics.Collector 满足该接口
type Recorder interface {
	RecordRequest(method, outcome string, duration time.Duration)
	RecordLifecycle(event string, applied bool)
	SetOpenDocuments(n int)
	RecordChannelMessage(severity string)
}

type goExecutor struct{}

func (goExecutor) Submit(ctx context.Context, task pool.Task) error {
	go func() { _ = task(ctx) }()
	return nil
}

type nopRecorder struct{}

func (nopRecorder) RecordRequest(string, string, time.Duration) {}
func (nopRecorder) RecordLifecycle(string, bool)                {}
func (nopRecorder) SetOpenDocuments(int)                        {}
func (nopRecorder) RecordChannelMessage(string)                 {}

// =============================================================================
// 🎯 分发器
// =============================================================================

// DispatcherOption 分发器选项
type DispatcherOption func(*Dispatcher)

// WithExecutor 设置查询任务的执行器，默认每个任务一个 goroutine
func WithExecutor(e Executor) DispatcherOption {
	return func(d *Dispatcher) { d.exec = e }
}

// WithRecorder 设置指标记录器
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithTracer 设置 tracer
func WithTracer(t trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) { d.tracer = t }
}

// WithContextFactory 替换 RequestContext 的构造函数
func WithContextFactory(f ContextFactory) DispatcherOption {
	return func(d *Dispatcher) { d.factory = f }
}

// WithRequestTimeout 设置查询超时。超时按失败处理而不是取消。
func WithRequestTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithDispatcherLogger 设置日志
func WithDispatcherLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// Dispatcher 协议方法的唯一入口。
//
// 生命周期通知在调用方 goroutine 上同步执行，返回时变更已对之后构造的
// RequestContext 可见；查询方法立即返回 Task，计算在 Executor 中进行。
type Dispatcher struct {
	scheduler DocumentScheduler
	channel   MessageChannel
	routines  Routines

	exec     Executor
	factory  ContextFactory
	recorder Recorder
	tracer   trace.Tracer
	timeout  time.Duration
	logger   *zap.Logger
}

// NewDispatcher 创建分发器
func NewDispatcher(scheduler DocumentScheduler, channel MessageChannel, routines Routines, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		scheduler: scheduler,
		channel:   channel,
		routines:  routines,
		exec:      goExecutor{},
		factory:   BuildContext,
		recorder:  nopRecorder{},
		tracer:    otel.Tracer(telemetry.InstrumentationName),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(zap.String("component", "dispatcher"))
	return d
}

// log 经消息通道发送并计数
func (d *Dispatcher) log(severity protocol.MessageType, text string) {
	d.channel.Log(severity, text)
	d.recorder.RecordChannelMessage(SeverityName(severity))
}

// =============================================================================
// 📄 生命周期通知
// =============================================================================

// DidOpen 打开文档。仅对 Unopened/Closed 的文档生效，否则以 Warning 报告。
func (d *Dispatcher) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) {
	uri := string(params.TextDocument.URI)
	if err := d.scheduler.Open(params.TextDocument); err != nil {
		d.rejectLifecycle(schema.EventOpen, uri, err)
		return
	}
	d.recorder.RecordLifecycle(schema.EventOpen.String(), true)
	d.recorder.SetOpenDocuments(len(d.scheduler.View().URIs()))
}

// DidChange 逐个应用编辑。失败的编辑以 Error 报告并跳过，其余编辑照常应用。
func (d *Dispatcher) DidChange(ctx context.Context, params *DidChangeParams) {
	uri := string(params.TextDocument.URI)
	version := params.TextDocument.Version

	if err := d.checkTransition(uri, schema.EventChange); err != nil {
		d.rejectLifecycle(schema.EventChange, uri, err)
		return
	}

	for i, change := range params.ContentChanges {
		edit := schema.Edit{Range: change.Range, Text: change.Text}
		if err := d.scheduler.ApplyEdit(uri, version, edit); err != nil {
			d.recorder.RecordLifecycle(schema.EventChange.String(), false)
			d.logger.Warn("edit rejected",
				zap.String("uri", uri),
				zap.Int32("version", version),
				zap.Int("edit", i),
				zap.Error(err))
			d.log(protocol.MessageTypeError, fmt.Sprintf(
				"didChange: edit %d of %d (%s) for %s at version %d failed: %v",
				i+1, len(params.ContentChanges), edit, uri, version, err))
			continue
		}
		d.recorder.RecordLifecycle(schema.EventChange.String(), true)
	}
}

// DidClose 关闭文档
func (d *Dispatcher) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) {
	uri := string(params.TextDocument.URI)
	if err := d.checkTransition(uri, schema.EventClose); err != nil {
		d.rejectLifecycle(schema.EventClose, uri, err)
		return
	}
	if err := d.scheduler.Close(uri); err != nil {
		d.rejectLifecycle(schema.EventClose, uri, err)
		return
	}
	d.recorder.RecordLifecycle(schema.EventClose.String(), true)
	d.recorder.SetOpenDocuments(len(d.scheduler.View().URIs()))
}

// DidSave 保存通知在本层不做任何处理
func (d *Dispatcher) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) {
	d.logger.Debug("document saved", zap.String("uri", string(params.TextDocument.URI)))
}

func (d *Dispatcher) checkTransition(uri string, ev schema.Event) error {
	if uri == "" {
		return schema.ErrEmptyURI
	}
	_, err := schema.Transition(d.scheduler.View().State(uri), ev)
	return err
}

func (d *Dispatcher) rejectLifecycle(ev schema.Event, uri string, err error) {
	d.recorder.RecordLifecycle(ev.String(), false)
	d.logger.Warn("lifecycle notification rejected",
		zap.String("event", ev.String()),
		zap.String("uri", uri),
		zap.Error(err))
	d.log(protocol.MessageTypeWarning, fmt.Sprintf("%s rejected for %s: %v", ev, uri, err))
}

// =============================================================================
// 🔍 查询请求
// =============================================================================

func positionParams(p protocol.TextDocumentPositionParams) Params {
	pos := p.Position
	return Params{URI: string(p.TextDocument.URI), Position: &pos}
}

// Completion 补全
func (d *Dispatcher) Completion(ctx context.Context, params *protocol.CompletionParams) *Task[[]protocol.CompletionItem] {
	return submit(d, ctx, MethodCompletion, true, emptyCompletion,
		positionParams(params.TextDocumentPositionParams), d.routines.Completion)
}

// Hover 悬停信息
func (d *Dispatcher) Hover(ctx context.Context, params *protocol.HoverParams) *Task[*protocol.Hover] {
	return submit(d, ctx, MethodHover, true, noHover,
		positionParams(params.TextDocumentPositionParams), d.routines.Hover)
}

// Definition 跳转定义
func (d *Dispatcher) Definition(ctx context.Context, params *protocol.DefinitionParams) *Task[[]protocol.Location] {
	return submit(d, ctx, MethodDefinition, true, emptyLocations,
		positionParams(params.TextDocumentPositionParams), d.routines.Definition)
}

// References 查找引用。失败以 JSON-RPC 错误响应，不写消息通道。
func (d *Dispatcher) References(ctx context.Context, params *protocol.ReferenceParams) *Task[[]protocol.Location] {
	p := positionParams(params.TextDocumentPositionParams)
	p.IncludeDeclaration = params.Context.IncludeDeclaration
	return submit(d, ctx, MethodReferences, false, emptyLocations, p, d.routines.References)
}

// DocumentSymbol 文档符号
func (d *Dispatcher) DocumentSymbol(ctx context.Context, params *protocol.DocumentSymbolParams) *Task[[]protocol.DocumentSymbol] {
	return submit(d, ctx, MethodDocumentSymbol, true, emptyDocumentSymbols,
		Params{URI: string(params.TextDocument.URI)}, d.routines.DocumentSymbol)
}

// CodeAction 代码操作
func (d *Dispatcher) CodeAction(ctx context.Context, params *protocol.CodeActionParams) *Task[[]protocol.CodeAction] {
	r := params.Range
	return submit(d, ctx, MethodCodeAction, true, emptyCodeActions, Params{
		URI:         string(params.TextDocument.URI),
		Range:       &r,
		Diagnostics: params.Context.Diagnostics,
	}, d.routines.CodeAction)
}

// ResolveCodeAction 原样返回输入
func (d *Dispatcher) ResolveCodeAction(ctx context.Context, action *protocol.CodeAction) *Task[*protocol.CodeAction] {
	d.recorder.RecordRequest(MethodResolveCodeAction, OutcomeSucceeded.String(), 0)
	return resolvedTask(MethodResolveCodeAction, Succeeded(action))
}

// PrepareRename 检查位置是否可重命名，nil 表示不可重命名
func (d *Dispatcher) PrepareRename(ctx context.Context, params *protocol.PrepareRenameParams) *Task[*protocol.Range] {
	return submit(d, ctx, MethodPrepareRename, false, noRange,
		positionParams(params.TextDocumentPositionParams), d.routines.PrepareRename)
}

// Rename 重命名
func (d *Dispatcher) Rename(ctx context.Context, params *protocol.RenameParams) *Task[*protocol.WorkspaceEdit] {
	p := positionParams(params.TextDocumentPositionParams)
	p.NewName = params.NewName
	return submit(d, ctx, MethodRename, false, noWorkspaceEdit, p, d.routines.Rename)
}

// DocumentHighlight 总是返回空结果
func (d *Dispatcher) DocumentHighlight(ctx context.Context, params *protocol.DocumentHighlightParams) *Task[[]protocol.DocumentHighlight] {
	d.recorder.RecordRequest(MethodDocumentHighlight, OutcomeSucceeded.String(), 0)
	return resolvedTask(MethodDocumentHighlight, Succeeded(emptyHighlights()))
}

// SemanticTokensFull 全量语义 token
func (d *Dispatcher) SemanticTokensFull(ctx context.Context, params *protocol.SemanticTokensParams) *Task[*protocol.SemanticTokens] {
	return submit(d, ctx, MethodSemanticTokensFull, true, emptySemanticTokens,
		Params{URI: string(params.TextDocument.URI)}, d.routines.SemanticTokens)
}

// Unsupported 记录一次对不支持方法的调用，调用方以 null 作答
func (d *Dispatcher) Unsupported(method string) {
	d.recorder.RecordRequest(method, "unsupported", 0)
	d.logger.Debug("unsupported method", zap.String("method", method))
}

// =============================================================================
// ⚙️ 执行与隔离
// =============================================================================

func submit[T any](d *Dispatcher, ctx context.Context, method string, contained bool, fallback func() T, params Params, routine Routine[T]) *Task[T] {
	traceID, ok := ctxkeys.TraceID(ctx)
	if !ok {
		traceID = uuid.NewString()
		ctx = ctxkeys.WithTraceID(ctx, traceID)
	}
	ctx = ctxkeys.WithMethod(ctx, method)

	t := newTask[T](ctx, method, contained)
	routine = orDefault(routine, fallback)
	start := time.Now()

	err := d.exec.Submit(t.ctx, func(context.Context) error {
		return execute(d, t, fallback, params, routine, start)
	})
	if err != nil {
		fail(d, t, fallback, fmt.Errorf("schedule request: %w", err))
		d.recorder.RecordRequest(method, t.Wait().Kind.String(), time.Since(start))
	}
	return t
}

func execute[T any](d *Dispatcher, t *Task[T], fallback func() T, params Params, routine Routine[T], start time.Time) (err error) {
	defer func() {
		d.recorder.RecordRequest(t.method, t.Wait().Kind.String(), time.Since(start))
	}()

	if t.ctx.Err() != nil {
		t.resolve(Cancelled[T](), nil)
		return t.ctx.Err()
	}

	ctx, span := d.tracer.Start(t.ctx, t.method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(requestAttributes(t.ctx, params.URI)...))
	defer span.End()

	value, err := compute(d, ctx, params, routine)
	if err == nil {
		if t.resolve(Succeeded(value), nil) {
			span.SetStatus(codes.Ok, "")
		}
		return nil
	}

	if fail(d, t, fallback, err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Bool("lsp.cancelled", true))
	}
	return err
}

// compute 构造 RequestContext 并调用特性函数。配置了超时时，
// 超过期限的计算结果被丢弃并按失败处理。
func compute[T any](d *Dispatcher, ctx context.Context, params Params, routine Routine[T]) (T, error) {
	if d.timeout <= 0 {
		return invoke(d, ctx, params, routine)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := invoke(d, ctx, params, routine)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("timed out after %s", d.timeout)
		}
		return zero, ctx.Err()
	}
}

// invoke 在 panic 恢复保护下运行特性函数
func invoke[T any](d *Dispatcher, ctx context.Context, params Params, routine Routine[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &pool.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	rc, err := d.factory(ctx, d.scheduler, d.channel, params)
	if err != nil {
		return value, fmt.Errorf("build context: %w", err)
	}
	return routine(ctx, rc)
}

// fail 以失败结束任务。被隔离的方法额外向消息通道发送一条 Error。
// 任务已被取消时不产生任何副作用。
func fail[T any](d *Dispatcher, t *Task[T], fallback func() T, err error) bool {
	return t.resolve(Failed(err, fallback()), func() {
		fields := append(requestFields(t.ctx), zap.Error(err))
		var pe *pool.PanicError
		if errors.As(err, &pe) {
			fields = append(fields, zap.ByteString("stack", pe.Stack))
		}
		d.logger.Error("request failed", fields...)

		if t.contained {
			d.log(protocol.MessageTypeError, fmt.Sprintf("%s failed: %v", t.method, err))
		}
	})
}

// requestFields 取出 context 中的请求标识作为日志字段
func requestFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 4)
	if method, ok := ctxkeys.Method(ctx); ok {
		fields = append(fields, zap.String("method", method))
	}
	if id, ok := ctxkeys.RequestID(ctx); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	if traceID, ok := ctxkeys.TraceID(ctx); ok {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	return fields
}

func requestAttributes(ctx context.Context, uri string) []attribute.KeyValue {
	method, _ := ctxkeys.Method(ctx)
	traceID, _ := ctxkeys.TraceID(ctx)
	attrs := []attribute.KeyValue{
		attribute.String("lsp.method", method),
		attribute.String("lsp.uri", uri),
		attribute.String("lsp.trace_id", traceID),
	}
	if id, ok := ctxkeys.RequestID(ctx); ok {
		attrs = append(attrs, attribute.String("lsp.request_id", id))
	}
	return attrs
}
