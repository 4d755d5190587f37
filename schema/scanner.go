package schema

import (
	"unicode"
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// TokenKind token 类别
type TokenKind int

const (
	TokenWord TokenKind = iota
	TokenKeyword
	TokenType
	TokenNumber
	TokenString
	TokenComment
	TokenPunct
)

// String returns the kind name.
func (k TokenKind) String() string {
	switch k {
	case TokenWord:
		return "word"
	case TokenKeyword:
		return "keyword"
	case TokenType:
		return "type"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenComment:
		return "comment"
	case TokenPunct:
		return "punct"
	default:
		return "unknown"
	}
}

// Token 单个词法单元。Col 与 Len 以 UTF-16 码元计。
type Token struct {
	Kind TokenKind
	Text string
	Line uint32
	Col  uint32
	Len  uint32
}

// Range 返回 token 的 LSP 范围
func (t Token) Range() protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: t.Line, Character: t.Col},
		End:   protocol.Position{Line: t.Line, Character: t.Col + t.Len},
	}
}

// IsWord 报告 token 是否是标识符形态（含关键字与内置类型）
func (t Token) IsWord() bool {
	return t.Kind == TokenWord || t.Kind == TokenKeyword || t.Kind == TokenType
}

// Keywords schema 语言关键字
var Keywords = []string{
	"schema", "search", "document", "struct", "field", "fieldset",
	"rank-profile", "function", "annotation", "document-summary",
	"type", "indexing", "index", "attribute", "summary", "fields",
	"inherits", "first-phase", "second-phase", "expression", "match",
	"stemming", "import", "constant", "onnx-model", "weight", "inputs",
	"sorting", "bolding", "rank", "id",
}

// BuiltinTypes 内置字段类型
var BuiltinTypes = []string{
	"string", "int", "long", "bool", "byte", "float", "double",
	"position", "predicate", "raw", "uri", "reference",
	"array", "weightedset", "map", "tensor",
}

var (
	keywordSet = toSet(Keywords)
	typeSet    = toSet(BuiltinTypes)
)

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsKeyword 判断 word 是否为关键字
func IsKeyword(word string) bool {
	_, ok := keywordSet[word]
	return ok
}

// IsBuiltinType 判断 word 是否为内置类型
func IsBuiltinType(word string) bool {
	_, ok := typeSet[word]
	return ok
}

// scan 逐行切分 token。字符串与注释不跨行。
func scan(lines []string) []Token {
	var tokens []Token
	for ln, line := range lines {
		col := 0
		i := 0
		emit := func(kind TokenKind, start, end int) {
			text := line[start:end]
			n := utf16Len(text)
			tokens = append(tokens, Token{
				Kind: kind,
				Text: text,
				Line: uint32(ln),
				Col:  uint32(col),
				Len:  uint32(n),
			})
			col += n
			i = end
		}

		for i < len(line) {
			r, size := utf8.DecodeRuneInString(line[i:])
			switch {
			case unicode.IsSpace(r):
				col += utf16RuneLen(r)
				i += size
			case r == '#':
				emit(TokenComment, i, len(line))
			case r == '"':
				emit(TokenString, i, stringEnd(line, i))
			case unicode.IsDigit(r):
				end := i + size
				for end < len(line) {
					r2, s2 := utf8.DecodeRuneInString(line[end:])
					if !(unicode.IsDigit(r2) || unicode.IsLetter(r2) || r2 == '.') {
						break
					}
					end += s2
				}
				emit(TokenNumber, i, end)
			case isWordStart(r):
				end := i + size
				for end < len(line) {
					r2, s2 := utf8.DecodeRuneInString(line[end:])
					if !isWordPart(r2) {
						break
					}
					end += s2
				}
				word := line[i:end]
				kind := TokenWord
				if IsKeyword(word) {
					kind = TokenKeyword
				} else if IsBuiltinType(word) {
					kind = TokenType
				}
				emit(kind, i, end)
			default:
				emit(TokenPunct, i, i+size)
			}
		}
	}
	return tokens
}

// stringEnd 返回从 start 处引号开始的字符串字面量结束位置（不含）。
// 未闭合的字符串延伸到行尾。
func stringEnd(line string, start int) int {
	for i := start + 1; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return len(line)
}
