package lsp

import (
	"context"

	"go.lsp.dev/protocol"
)

// Routine 特性函数：RequestContext 到单一协议结果的纯函数。
// 不得修改调度器或索引状态；返回的错误交由 Dispatcher 的隔离策略处理。
type Routine[T any] func(ctx context.Context, rc *RequestContext) (T, error)

// Routines 按能力划分的特性函数。为 nil 的能力以该方法的默认值作答。
type Routines struct {
	Completion     Routine[[]protocol.CompletionItem]
	Hover          Routine[*protocol.Hover]
	Definition     Routine[[]protocol.Location]
	References     Routine[[]protocol.Location]
	DocumentSymbol Routine[[]protocol.DocumentSymbol]
	CodeAction     Routine[[]protocol.CodeAction]
	PrepareRename  Routine[*protocol.Range]
	Rename         Routine[*protocol.WorkspaceEdit]
	SemanticTokens Routine[*protocol.SemanticTokens]
}

func orDefault[T any](r Routine[T], fallback func() T) Routine[T] {
	if r != nil {
		return r
	}
	return func(context.Context, *RequestContext) (T, error) {
		return fallback(), nil
	}
}

// 各方法的安全默认值。列表一律为非 nil 的空切片，编码为 []
func emptyCompletion() []protocol.CompletionItem      { return []protocol.CompletionItem{} }
func emptyLocations() []protocol.Location             { return []protocol.Location{} }
func emptyDocumentSymbols() []protocol.DocumentSymbol { return []protocol.DocumentSymbol{} }
func emptyCodeActions() []protocol.CodeAction         { return []protocol.CodeAction{} }
func emptyHighlights() []protocol.DocumentHighlight   { return []protocol.DocumentHighlight{} }
func noHover() *protocol.Hover                        { return nil }
func noRange() *protocol.Range                        { return nil }
func noWorkspaceEdit() *protocol.WorkspaceEdit        { return nil }
func emptySemanticTokens() *protocol.SemanticTokens {
	return &protocol.SemanticTokens{Data: []uint32{}}
}
