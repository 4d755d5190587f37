package features

import (
	"context"

	"github.com/BaSui01/schemals/lsp"
	"github.com/BaSui01/schemals/schema"
	"go.lsp.dev/protocol"
)

// CodeActions 为分析器产生的诊断提供快速修复
func CodeActions(_ context.Context, rc *lsp.RequestContext) ([]protocol.CodeAction, error) {
	actions := []protocol.CodeAction{}
	if rc.NotFound() {
		return actions, nil
	}
	doc := rc.Document()
	uri := protocol.DocumentURI(doc.URI)
	requested, hasRange := rc.Range()

	for _, diag := range rc.Diagnostics() {
		if diag.Source != schema.DiagnosticSource {
			continue
		}
		if hasRange && !schema.RangesOverlap(requested, diag.Range) {
			continue
		}

		var title string
		var edit protocol.TextEdit
		switch diag.Message {
		case schema.MsgMissingBrace:
			end := doc.End()
			title = "Insert missing '}'"
			edit = protocol.TextEdit{Range: protocol.Range{Start: end, End: end}, NewText: "\n}"}
		case schema.MsgUnterminatedStr:
			title = "Close string literal"
			edit = protocol.TextEdit{Range: protocol.Range{Start: diag.Range.End, End: diag.Range.End}, NewText: `"`}
		default:
			continue
		}

		actions = append(actions, protocol.CodeAction{
			Title:       title,
			Kind:        protocol.QuickFix,
			Diagnostics: []protocol.Diagnostic{diag},
			IsPreferred: true,
			Edit: &protocol.WorkspaceEdit{
				Changes: map[protocol.DocumentURI][]protocol.TextEdit{uri: {edit}},
			},
		})
	}
	return actions, nil
}
