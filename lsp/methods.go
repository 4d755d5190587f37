package lsp

// 协议方法名
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "initialized"
	MethodShutdown    = "shutdown"
	MethodExit        = "exit"
	MethodCancel      = "$/cancelRequest"

	MethodDidOpen   = "textDocument/didOpen"
	MethodDidChange = "textDocument/didChange"
	MethodDidClose  = "textDocument/didClose"
	MethodDidSave   = "textDocument/didSave"

	MethodCompletion         = "textDocument/completion"
	MethodHover              = "textDocument/hover"
	MethodDefinition         = "textDocument/definition"
	MethodReferences         = "textDocument/references"
	MethodDocumentSymbol     = "textDocument/documentSymbol"
	MethodCodeAction         = "textDocument/codeAction"
	MethodResolveCodeAction  = "codeAction/resolve"
	MethodPrepareRename      = "textDocument/prepareRename"
	MethodRename             = "textDocument/rename"
	MethodDocumentHighlight  = "textDocument/documentHighlight"
	MethodSemanticTokensFull = "textDocument/semanticTokens/full"

	MethodResolveCompletionItem   = "completionItem/resolve"
	MethodCodeLens                = "textDocument/codeLens"
	MethodResolveCodeLens         = "codeLens/resolve"
	MethodFormatting              = "textDocument/formatting"
	MethodRangeFormatting         = "textDocument/rangeFormatting"
	MethodOnTypeFormatting        = "textDocument/onTypeFormatting"
	MethodSemanticTokensFullDelta = "textDocument/semanticTokens/full/delta"

	MethodLogMessage         = "window/logMessage"
	MethodPublishDiagnostics = "textDocument/publishDiagnostics"
)

// unsupportedMethods 明确不支持的方法：直接以 null 响应，不触达任何特性函数
var unsupportedMethods = map[string]struct{}{
	MethodResolveCompletionItem:   {},
	MethodCodeLens:                {},
	MethodResolveCodeLens:         {},
	MethodFormatting:              {},
	MethodRangeFormatting:         {},
	MethodOnTypeFormatting:        {},
	MethodSemanticTokensFullDelta: {},
}

// IsUnsupported 报告 method 是否属于明确不支持的方法
func IsUnsupported(method string) bool {
	_, ok := unsupportedMethods[method]
	return ok
}
