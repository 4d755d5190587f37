// Package features 实现 schema 语言的特性函数。
//
// 每个函数只读取 RequestContext 中冻结的文档与索引快照，
// 不修改调度器或索引状态。文档未打开时返回该方法的空结果。
package features

import (
	"github.com/BaSui01/schemals/lsp"
	"github.com/BaSui01/schemals/schema"
	"go.lsp.dev/protocol"
)

// Default 返回全部特性函数
func Default() lsp.Routines {
	return lsp.Routines{
		Completion:     Completion,
		Hover:          Hover,
		Definition:     Definition,
		References:     References,
		DocumentSymbol: DocumentSymbols,
		CodeAction:     CodeActions,
		PrepareRename:  PrepareRename,
		Rename:         Rename,
		SemanticTokens: SemanticTokens,
	}
}

// target 返回请求的文档与位置，任一缺失时 ok 为 false
func target(rc *lsp.RequestContext) (*schema.Document, protocol.Position, bool) {
	pos, ok := rc.Position()
	if !ok || rc.NotFound() {
		return nil, protocol.Position{}, false
	}
	return rc.Document(), pos, true
}

// symbolWord 返回位置处可作为符号名的单词。关键字与内置类型不是符号。
func symbolWord(doc *schema.Document, pos protocol.Position) (string, protocol.Range, bool) {
	word, rng, ok := doc.WordAt(pos)
	if !ok || schema.IsKeyword(word) || schema.IsBuiltinType(word) {
		return "", protocol.Range{}, false
	}
	return word, rng, true
}

// occurrence 一处名称出现
type occurrence struct {
	uri         string
	rng         protocol.Range
	declaration bool
}

// occurrences 在工作区全部已打开文档中查找 name 的出现位置，按 URI 与位置排序
func occurrences(ws *schema.Workspace, name string) []occurrence {
	var out []occurrence
	for _, doc := range ws.Documents() {
		for _, tok := range doc.Tokens {
			if tok.Kind != schema.TokenWord || tok.Text != name {
				continue
			}
			rng := tok.Range()
			sym, isDecl := doc.SymbolAt(rng.Start)
			out = append(out, occurrence{
				uri:         doc.URI,
				rng:         rng,
				declaration: isDecl && sym.Name == name,
			})
		}
	}
	return out
}
