package lsp

import (
	"context"

	"github.com/BaSui01/schemals/internal/ctxkeys"
	"github.com/BaSui01/schemals/schema"
	"go.lsp.dev/protocol"
)

// Params 解析后的请求参数
type Params struct {
	URI                string
	Position           *protocol.Position
	Range              *protocol.Range
	NewName            string
	IncludeDeclaration bool
	Diagnostics        []protocol.Diagnostic
}

// DocumentSource 提供文档与索引的一致视图，*schema.Scheduler 满足该接口
type DocumentSource interface {
	View() *schema.Workspace
}

// ContextFactory 构造 RequestContext
type ContextFactory func(ctx context.Context, source DocumentSource, channel MessageChannel, params Params) (*RequestContext, error)

// RequestContext 单个查询请求的不可变快照。
//
// 文档与索引来自构造瞬间的同一个 Workspace 视图，之后的编辑对它不可见。
// 未知 URI 不是错误：NotFound 返回 true，由特性函数决定如何作答。
type RequestContext struct {
	params    Params
	workspace *schema.Workspace
	document  *schema.Document
	channel   MessageChannel
	traceID   string
}

// BuildContext 基于调度器当前视图构造 RequestContext，不触发任何重新解析。
func BuildContext(ctx context.Context, source DocumentSource, channel MessageChannel, params Params) (*RequestContext, error) {
	if params.URI == "" {
		return nil, schema.ErrEmptyURI
	}
	view := source.View()
	doc, _ := view.Document(params.URI)

	rc := &RequestContext{
		params:    params,
		workspace: view,
		document:  doc,
		channel:   channel,
	}
	rc.traceID, _ = ctxkeys.TraceID(ctx)
	return rc, nil
}

// URI 请求目标文档
func (rc *RequestContext) URI() string { return rc.params.URI }

// Position 请求位置（若有）
func (rc *RequestContext) Position() (protocol.Position, bool) {
	if rc.params.Position == nil {
		return protocol.Position{}, false
	}
	return *rc.params.Position, true
}

// Range 请求范围（若有）
func (rc *RequestContext) Range() (protocol.Range, bool) {
	if rc.params.Range == nil {
		return protocol.Range{}, false
	}
	return *rc.params.Range, true
}

// NewName rename 的新名称
func (rc *RequestContext) NewName() string { return rc.params.NewName }

// IncludeDeclaration references 是否包含声明本身
func (rc *RequestContext) IncludeDeclaration() bool { return rc.params.IncludeDeclaration }

// Diagnostics codeAction 请求携带的诊断
func (rc *RequestContext) Diagnostics() []protocol.Diagnostic { return rc.params.Diagnostics }

// Document 目标文档快照，NotFound 时为 nil
func (rc *RequestContext) Document() *schema.Document { return rc.document }

// NotFound 目标文档在构造时未打开
func (rc *RequestContext) NotFound() bool { return rc.document == nil }

// Index 与文档同一时刻的符号索引快照
func (rc *RequestContext) Index() *schema.IndexSnapshot { return rc.workspace.Index() }

// Workspace 构造时的只读工作区视图
func (rc *RequestContext) Workspace() *schema.Workspace { return rc.workspace }

// Channel 消息通道
func (rc *RequestContext) Channel() MessageChannel { return rc.channel }

// TraceID 请求追踪 ID
func (rc *RequestContext) TraceID() string { return rc.traceID }
