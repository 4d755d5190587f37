package schema

import (
	"fmt"

	"go.lsp.dev/protocol"
)

// Edit 单个内容变更。Range 为 nil 表示整篇替换。
type Edit struct {
	Range *protocol.Range
	Text  string
}

// FullEdit 构造整篇替换的编辑
func FullEdit(text string) Edit {
	return Edit{Text: text}
}

// RangeEdit 构造范围编辑
func RangeEdit(r protocol.Range, text string) Edit {
	return Edit{Range: &r, Text: text}
}

// String describes the edit for diagnostics messages.
func (e Edit) String() string {
	if e.Range == nil {
		return fmt.Sprintf("full text (%d bytes)", len(e.Text))
	}
	return fmt.Sprintf("range %d:%d-%d:%d (%d bytes)",
		e.Range.Start.Line, e.Range.Start.Character,
		e.Range.End.Line, e.Range.End.Character, len(e.Text))
}

// Apply 将编辑应用到文档文本上，返回新文本。
// 编辑先被完整校验再应用：失败时原文本保持不变。
func (d *Document) Apply(e Edit) (string, error) {
	if e.Range == nil {
		return e.Text, nil
	}
	if positionLess(e.Range.End, e.Range.Start) {
		return "", fmt.Errorf("%w: start %d:%d is after end %d:%d", ErrInvalidEdit,
			e.Range.Start.Line, e.Range.Start.Character, e.Range.End.Line, e.Range.End.Character)
	}
	start, err := d.Offset(e.Range.Start)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidEdit, err)
	}
	end, err := d.Offset(e.Range.End)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidEdit, err)
	}
	return d.Text[:start] + e.Text + d.Text[end:], nil
}
