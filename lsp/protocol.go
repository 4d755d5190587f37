package lsp

import (
	"encoding/json"

	"go.lsp.dev/protocol"
)

// ContentChange didChange 中的单个编辑。Range 为 nil 表示整篇替换。
// protocol.TextDocumentContentChangeEvent 的 Range 是值类型，无法区分整篇与增量。
type ContentChange struct {
	Range       *protocol.Range `json:"range,omitempty"`
	RangeLength uint32          `json:"rangeLength,omitempty"`
	Text        string          `json:"text"`
}

// DidChangeParams textDocument/didChange 参数
type DidChangeParams struct {
	TextDocument   protocol.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []ContentChange                          `json:"contentChanges"`
}

// VersionedIdentifier 构造带版本号的文档标识
func VersionedIdentifier(uri string, version int32) protocol.VersionedTextDocumentIdentifier {
	return protocol.VersionedTextDocumentIdentifier{
		TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Version:                version,
	}
}

// Capabilities 返回服务器声明的能力，图例由特性包提供
func Capabilities(legend protocol.SemanticTokensLegend) protocol.ServerCapabilities {
	if legend.TokenModifiers == nil {
		legend.TokenModifiers = []protocol.SemanticTokenModifiers{}
	}
	return protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: true,
			Change:    protocol.TextDocumentSyncKindIncremental,
		},
		CompletionProvider:        &protocol.CompletionOptions{TriggerCharacters: []string{" ", ":"}},
		HoverProvider:             true,
		DefinitionProvider:        true,
		ReferencesProvider:        true,
		DocumentHighlightProvider: true,
		DocumentSymbolProvider:    true,
		CodeActionProvider: &protocol.CodeActionOptions{
			CodeActionKinds: []protocol.CodeActionKind{protocol.QuickFix},
			ResolveProvider: true,
		},
		RenameProvider:         &protocol.RenameOptions{PrepareProvider: true},
		SemanticTokensProvider: &protocol.SemanticTokensOptions{Legend: legend, Full: true},
	}
}

// SemanticTokensLegendOf 取出能力中的语义 token 图例。
// 服务端构造的值是 *SemanticTokensOptions，客户端解码得到的是通用 JSON 对象。
func SemanticTokensLegendOf(caps protocol.ServerCapabilities) (protocol.SemanticTokensLegend, bool) {
	switch v := caps.SemanticTokensProvider.(type) {
	case nil:
		return protocol.SemanticTokensLegend{}, false
	case *protocol.SemanticTokensOptions:
		return v.Legend, true
	case protocol.SemanticTokensOptions:
		return v.Legend, true
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return protocol.SemanticTokensLegend{}, false
		}
		var opts protocol.SemanticTokensOptions
		if err := json.Unmarshal(raw, &opts); err != nil {
			return protocol.SemanticTokensLegend{}, false
		}
		return opts.Legend, len(opts.Legend.TokenTypes) > 0
	}
}
