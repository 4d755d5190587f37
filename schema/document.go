package schema

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// Document 文档的不可变快照。
//
// 每次被接受的变更都会生成一个新的 Document 并原子替换旧值，
// 已经拿到旧快照的读取方不受影响。调用方不得修改任何字段。
type Document struct {
	URI        string
	LanguageID string
	Version    int32
	Text       string

	Tokens      []Token
	Symbols     []Symbol
	Diagnostics []protocol.Diagnostic

	lines      []string
	lineStarts []int
}

// NewDocument 解析文本并构造快照
func NewDocument(uri, languageID string, version int32, text string) *Document {
	d := &Document{
		URI:        uri,
		LanguageID: languageID,
		Version:    version,
		Text:       text,
	}

	d.lines, d.lineStarts = splitLines(text)
	d.Tokens = scan(d.lines)
	d.Symbols, d.Diagnostics = analyze(uri, d.Tokens)
	return d
}

// splitLines 按 \r\n、\r 或 \n 切分文本，返回各行内容及其起始字节偏移
func splitLines(text string) ([]string, []int) {
	lines := make([]string, 0, strings.Count(text, "\n")+1)
	starts := make([]int, 0, cap(lines))
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				lines = append(lines, text[start:i])
				starts = append(starts, start)
				i++
				start = i + 1
				continue
			}
		default:
			continue
		}
		lines = append(lines, text[start:i])
		starts = append(starts, start)
		start = i + 1
	}
	lines = append(lines, text[start:])
	starts = append(starts, start)
	return lines, starts
}

// LineCount 返回行数
func (d *Document) LineCount() int {
	return len(d.lines)
}

// Line 返回指定行（不含换行符）
func (d *Document) Line(n int) (string, bool) {
	if n < 0 || n >= len(d.lines) {
		return "", false
	}
	return d.lines[n], true
}

// End 返回文档末尾位置
func (d *Document) End() protocol.Position {
	last := len(d.lines) - 1
	return protocol.Position{Line: uint32(last), Character: uint32(utf16Len(d.lines[last]))}
}

// Offset 将 LSP 位置转换为 Text 中的字节偏移。
// 行号越界返回 ErrInvalidPosition；列号越界按协议截断到行尾。
func (d *Document) Offset(pos protocol.Position) (int, error) {
	line := int(pos.Line)
	if line >= len(d.lines) {
		return 0, fmt.Errorf("%w: line %d out of range (%d lines)", ErrInvalidPosition, line, len(d.lines))
	}
	return d.lineStarts[line] + byteOffsetInLine(d.lines[line], int(pos.Character)), nil
}

// WordAt 返回位置处的标识符及其范围。
// 光标紧贴在标识符末尾时也视为命中。
func (d *Document) WordAt(pos protocol.Position) (string, protocol.Range, bool) {
	line, ok := d.Line(int(pos.Line))
	if !ok {
		return "", protocol.Range{}, false
	}
	cursor := byteOffsetInLine(line, int(pos.Character))

	start := cursor
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(line[:start])
		if !isWordPart(r) {
			break
		}
		start -= size
	}
	end := cursor
	for end < len(line) {
		r, size := utf8.DecodeRuneInString(line[end:])
		if !isWordPart(r) {
			break
		}
		end += size
	}
	if start == end {
		return "", protocol.Range{}, false
	}

	word := line[start:end]
	return word, protocol.Range{
		Start: protocol.Position{Line: pos.Line, Character: uint32(utf16Len(line[:start]))},
		End:   protocol.Position{Line: pos.Line, Character: uint32(utf16Len(line[:end]))},
	}, true
}

// PrefixAt 返回光标左侧的标识符前缀（用于补全）
func (d *Document) PrefixAt(pos protocol.Position) string {
	line, ok := d.Line(int(pos.Line))
	if !ok {
		return ""
	}
	cursor := byteOffsetInLine(line, int(pos.Character))
	start := cursor
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(line[:start])
		if !isWordPart(r) {
			break
		}
		start -= size
	}
	return line[start:cursor]
}

// TokenAt 返回覆盖该位置的 token
func (d *Document) TokenAt(pos protocol.Position) (Token, bool) {
	for _, tok := range d.Tokens {
		if tok.Line != pos.Line {
			continue
		}
		if pos.Character >= tok.Col && pos.Character <= tok.Col+tok.Len {
			return tok, true
		}
	}
	return Token{}, false
}

// SymbolAt 返回名称范围覆盖该位置的声明
func (d *Document) SymbolAt(pos protocol.Position) (Symbol, bool) {
	for _, sym := range d.Symbols {
		if RangeContains(sym.NameRange, pos) {
			return sym, true
		}
	}
	return Symbol{}, false
}

// DeclarationAt 返回由该位置处的声明关键字引入的符号
func (d *Document) DeclarationAt(pos protocol.Position) (Symbol, bool) {
	for _, sym := range d.Symbols {
		kw := protocol.Range{Start: sym.Range.Start, End: sym.NameRange.Start}
		if RangeContains(kw, pos) || RangeContains(sym.NameRange, pos) {
			return sym, true
		}
	}
	return Symbol{}, false
}

func isWordStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isWordPart(r rune) bool {
	return isWordStart(r) || unicode.IsDigit(r) || r == '-'
}

// IsValidName 判断 name 是否可作为 schema 标识符
func IsValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 && !isWordStart(r) {
			return false
		}
		if !isWordPart(r) {
			return false
		}
	}
	return true
}
