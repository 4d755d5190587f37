package schema

import (
	"fmt"
	"strings"

	"go.lsp.dev/protocol"
)

// SymbolKind 声明类别
type SymbolKind int

const (
	SymbolSchema SymbolKind = iota + 1
	SymbolDocument
	SymbolStruct
	SymbolField
	SymbolFieldset
	SymbolRankProfile
	SymbolFunction
	SymbolAnnotation
	SymbolDocumentSummary
)

var declKeywords = map[string]SymbolKind{
	"schema":           SymbolSchema,
	"search":           SymbolSchema,
	"document":         SymbolDocument,
	"struct":           SymbolStruct,
	"field":            SymbolField,
	"fieldset":         SymbolFieldset,
	"rank-profile":     SymbolRankProfile,
	"function":         SymbolFunction,
	"annotation":       SymbolAnnotation,
	"document-summary": SymbolDocumentSummary,
}

// String returns the keyword that introduces the declaration.
func (k SymbolKind) String() string {
	switch k {
	case SymbolSchema:
		return "schema"
	case SymbolDocument:
		return "document"
	case SymbolStruct:
		return "struct"
	case SymbolField:
		return "field"
	case SymbolFieldset:
		return "fieldset"
	case SymbolRankProfile:
		return "rank-profile"
	case SymbolFunction:
		return "function"
	case SymbolAnnotation:
		return "annotation"
	case SymbolDocumentSummary:
		return "document-summary"
	default:
		return "unknown"
	}
}

// LSP 映射到协议的 SymbolKind
func (k SymbolKind) LSP() protocol.SymbolKind {
	switch k {
	case SymbolSchema:
		return protocol.SymbolKindNamespace
	case SymbolDocument:
		return protocol.SymbolKindClass
	case SymbolStruct:
		return protocol.SymbolKindStruct
	case SymbolField:
		return protocol.SymbolKindField
	case SymbolFieldset:
		return protocol.SymbolKindArray
	case SymbolRankProfile:
		return protocol.SymbolKindModule
	case SymbolFunction:
		return protocol.SymbolKindFunction
	case SymbolAnnotation:
		return protocol.SymbolKindInterface
	case SymbolDocumentSummary:
		return protocol.SymbolKindObject
	default:
		return protocol.SymbolKindVariable
	}
}

// Symbol 一个声明。Parent 为所在声明在同一文档 Symbols 中的下标，顶层为 -1。
type Symbol struct {
	Name      string
	Kind      SymbolKind
	Type      string
	URI       string
	Range     protocol.Range
	NameRange protocol.Range
	Parent    int
	Container string
}

// Location 返回声明名称所在位置
func (s Symbol) Location() protocol.Location {
	return protocol.Location{URI: protocol.DocumentURI(s.URI), Range: s.NameRange}
}

// Diagnostic messages produced by the analyzer.
const (
	DiagnosticSource   = "schemals"
	MsgMissingBrace    = "missing closing '}'"
	MsgUnmatchedBrace  = "unmatched '}'"
	MsgUnterminatedStr = "unterminated string literal"
)

// analyze 从 token 流中提取声明并产生结构性诊断。
func analyze(uri string, tokens []Token) ([]Symbol, []protocol.Diagnostic) {
	var (
		symbols []Symbol
		diags   []protocol.Diagnostic
	)

	type frame struct {
		symbol int
		open   Token
	}
	var stack []frame
	pending := -1

	parent := func() int {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].symbol >= 0 {
				return stack[i].symbol
			}
		}
		return -1
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok.Kind == TokenString && !stringTerminated(tok.Text):
			diags = append(diags, newDiagnostic(tok.Range(), MsgUnterminatedStr))

		case tok.Kind == TokenKeyword:
			kind, ok := declKeywords[tok.Text]
			if !ok {
				if tok.Text != "inherits" {
					pending = -1
				}
				continue
			}
			if i+1 >= len(tokens) || !tokens[i+1].IsWord() || tokens[i+1].Line != tok.Line {
				diags = append(diags, newDiagnostic(tok.Range(), fmt.Sprintf("expected name after '%s'", tok.Text)))
				continue
			}
			name := tokens[i+1]
			sym := Symbol{
				Name:      name.Text,
				Kind:      kind,
				URI:       uri,
				Range:     protocol.Range{Start: tok.Range().Start, End: name.Range().End},
				NameRange: name.Range(),
				Parent:    parent(),
			}
			if sym.Parent >= 0 {
				sym.Container = symbols[sym.Parent].Name
			}
			i++
			if kind == SymbolField {
				sym.Type, i = fieldType(tokens, i)
			}
			symbols = append(symbols, sym)
			pending = len(symbols) - 1

		case tok.Kind == TokenPunct && tok.Text == "{":
			stack = append(stack, frame{symbol: pending, open: tok})
			pending = -1

		case tok.Kind == TokenPunct && tok.Text == "}":
			pending = -1
			if len(stack) == 0 {
				diags = append(diags, newDiagnostic(tok.Range(), MsgUnmatchedBrace))
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.symbol >= 0 {
				symbols[top.symbol].Range.End = tok.Range().End
			}
		}
	}

	for _, f := range stack {
		diags = append(diags, newDiagnostic(f.open.Range(), MsgMissingBrace))
	}
	return symbols, diags
}

// fieldType 读取 "type" 之后直到 '{' 或行尾的类型表达式。
// 返回类型文本与最后消费的 token 下标。
func fieldType(tokens []Token, nameIdx int) (string, int) {
	i := nameIdx + 1
	line := tokens[nameIdx].Line
	if i >= len(tokens) || tokens[i].Line != line || tokens[i].Text != "type" {
		return "", nameIdx
	}
	var b strings.Builder
	last := i
	for j := i + 1; j < len(tokens); j++ {
		t := tokens[j]
		if t.Line != line || t.Text == "{" || t.Kind == TokenComment {
			break
		}
		b.WriteString(t.Text)
		last = j
	}
	return b.String(), last
}

func stringTerminated(text string) bool {
	for i := 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '"':
			return i == len(text)-1
		}
	}
	return false
}

func newDiagnostic(r protocol.Range, msg string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    r,
		Severity: protocol.DiagnosticSeverityError,
		Source:   DiagnosticSource,
		Message:  msg,
	}
}
