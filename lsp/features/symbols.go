package features

import (
	"context"

	"github.com/BaSui01/schemals/lsp"
	"github.com/BaSui01/schemals/schema"
	"go.lsp.dev/protocol"
)

// DocumentSymbols 返回文档的层级符号树
func DocumentSymbols(_ context.Context, rc *lsp.RequestContext) ([]protocol.DocumentSymbol, error) {
	out := []protocol.DocumentSymbol{}
	if rc.NotFound() {
		return out, nil
	}
	syms := rc.Document().Symbols

	children := make([][]int, len(syms))
	var roots []int
	for i, sym := range syms {
		if sym.Parent >= 0 && sym.Parent < len(syms) {
			children[sym.Parent] = append(children[sym.Parent], i)
		} else {
			roots = append(roots, i)
		}
	}

	var build func(i int) protocol.DocumentSymbol
	build = func(i int) protocol.DocumentSymbol {
		sym := syms[i]
		node := protocol.DocumentSymbol{
			Name:           sym.Name,
			Detail:         detail(sym),
			Kind:           sym.Kind.LSP(),
			Range:          sym.Range,
			SelectionRange: sym.NameRange,
		}
		for _, c := range children[i] {
			node.Children = append(node.Children, build(c))
		}
		return node
	}
	for _, r := range roots {
		out = append(out, build(r))
	}
	return out, nil
}

func detail(sym schema.Symbol) string {
	if sym.Type != "" {
		return sym.Type
	}
	return sym.Kind.String()
}
