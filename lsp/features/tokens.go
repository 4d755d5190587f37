package features

import (
	"context"

	"github.com/BaSui01/schemals/lsp"
	"github.com/BaSui01/schemals/schema"
	"go.lsp.dev/protocol"
)

// 语义 token 类型，下标即编码值
const (
	tokenKeyword uint32 = iota
	tokenType
	tokenClass
	tokenProperty
	tokenFunction
	tokenString
	tokenNumber
	tokenComment
)

const modifierDeclaration uint32 = 1 << 0

// Legend 返回语义 token 图例，顺序与编码值一致
func Legend() protocol.SemanticTokensLegend {
	return protocol.SemanticTokensLegend{
		TokenTypes: []protocol.SemanticTokenTypes{
			protocol.SemanticTokenKeyword, protocol.SemanticTokenType,
			protocol.SemanticTokenClass, protocol.SemanticTokenProperty,
			protocol.SemanticTokenFunction, protocol.SemanticTokenString,
			protocol.SemanticTokenNumber, protocol.SemanticTokenComment,
		},
		TokenModifiers: []protocol.SemanticTokenModifiers{protocol.SemanticTokenModifierDeclaration},
	}
}

// SemanticTokens 按 LSP 相对编码输出全文的语义 token
func SemanticTokens(_ context.Context, rc *lsp.RequestContext) (*protocol.SemanticTokens, error) {
	data := []uint32{}
	if rc.NotFound() {
		return &protocol.SemanticTokens{Data: data}, nil
	}
	doc := rc.Document()
	index := rc.Index()

	var prevLine, prevCol uint32
	for _, tok := range doc.Tokens {
		typ, mods, ok := classify(doc, index, tok)
		if !ok {
			continue
		}
		deltaLine := tok.Line - prevLine
		deltaCol := tok.Col
		if deltaLine == 0 {
			deltaCol = tok.Col - prevCol
		}
		data = append(data, deltaLine, deltaCol, tok.Len, typ, mods)
		prevLine, prevCol = tok.Line, tok.Col
	}
	return &protocol.SemanticTokens{Data: data}, nil
}

func classify(doc *schema.Document, index *schema.IndexSnapshot, tok schema.Token) (uint32, uint32, bool) {
	switch tok.Kind {
	case schema.TokenKeyword:
		return tokenKeyword, 0, true
	case schema.TokenType:
		return tokenType, 0, true
	case schema.TokenString:
		return tokenString, 0, true
	case schema.TokenNumber:
		return tokenNumber, 0, true
	case schema.TokenComment:
		return tokenComment, 0, true
	case schema.TokenWord:
		if sym, ok := doc.SymbolAt(tok.Range().Start); ok && sym.Name == tok.Text {
			return symbolTokenType(sym.Kind), modifierDeclaration, true
		}
		if sym, ok := index.Lookup(tok.Text); ok {
			return symbolTokenType(sym.Kind), 0, true
		}
	}
	return 0, 0, false
}

func symbolTokenType(k schema.SymbolKind) uint32 {
	switch k {
	case schema.SymbolField:
		return tokenProperty
	case schema.SymbolFunction:
		return tokenFunction
	default:
		return tokenClass
	}
}
