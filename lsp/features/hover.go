package features

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/schemals/lsp"
	"github.com/BaSui01/schemals/schema"
	"go.lsp.dev/protocol"
)

// Hover 描述位置处的声明、引用的符号、关键字或内置类型
func Hover(_ context.Context, rc *lsp.RequestContext) (*protocol.Hover, error) {
	doc, pos, ok := target(rc)
	if !ok {
		return nil, nil
	}

	if sym, ok := doc.DeclarationAt(pos); ok {
		rng := sym.Range
		return markdown(describe(sym), &rng), nil
	}

	word, rng, ok := doc.WordAt(pos)
	if !ok {
		return nil, nil
	}
	switch {
	case schema.IsKeyword(word):
		return markdown(fmt.Sprintf("`%s` keyword", word), &rng), nil
	case schema.IsBuiltinType(word):
		return markdown(fmt.Sprintf("`%s` built-in type", word), &rng), nil
	}
	if sym, ok := rc.Index().Lookup(word); ok {
		return markdown(describe(sym), &rng), nil
	}
	return nil, nil
}

func describe(sym schema.Symbol) string {
	var b strings.Builder
	fmt.Fprintf(&b, "```\n%s %s", sym.Kind, sym.Name)
	if sym.Type != "" {
		fmt.Fprintf(&b, " type %s", sym.Type)
	}
	b.WriteString("\n```\n")
	if sym.Container != "" {
		fmt.Fprintf(&b, "in `%s`, ", sym.Container)
	}
	fmt.Fprintf(&b, "declared in %s", sym.URI)
	return b.String()
}

func markdown(text string, rng *protocol.Range) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: text},
		Range:    rng,
	}
}
