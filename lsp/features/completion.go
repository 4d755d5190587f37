package features

import (
	"context"
	"strings"

	"github.com/BaSui01/schemals/lsp"
	"github.com/BaSui01/schemals/schema"
	"go.lsp.dev/protocol"
)

// Completion 以光标左侧的前缀过滤关键字、内置类型和已索引的名称
func Completion(_ context.Context, rc *lsp.RequestContext) ([]protocol.CompletionItem, error) {
	items := []protocol.CompletionItem{}
	doc, pos, ok := target(rc)
	if !ok {
		return items, nil
	}
	prefix := doc.PrefixAt(pos)

	seen := make(map[string]struct{})
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if !strings.HasPrefix(label, prefix) {
			return
		}
		if _, dup := seen[label]; dup {
			return
		}
		seen[label] = struct{}{}
		items = append(items, protocol.CompletionItem{
			Label:  label,
			Kind:   kind,
			Detail: detail,
		})
	}

	for _, kw := range schema.Keywords {
		add(kw, protocol.CompletionItemKindKeyword, "keyword")
	}
	for _, typ := range schema.BuiltinTypes {
		add(typ, protocol.CompletionItemKindTypeParameter, "type")
	}
	for _, sym := range rc.Index().All() {
		add(sym.Name, completionKind(sym.Kind), sym.Kind.String())
	}
	return items, nil
}

func completionKind(k schema.SymbolKind) protocol.CompletionItemKind {
	switch k {
	case schema.SymbolField:
		return protocol.CompletionItemKindField
	case schema.SymbolStruct:
		return protocol.CompletionItemKindStruct
	case schema.SymbolFunction:
		return protocol.CompletionItemKindFunction
	case schema.SymbolSchema, schema.SymbolDocument:
		return protocol.CompletionItemKindClass
	default:
		return protocol.CompletionItemKindReference
	}
}
