package schema

import (
	"unicode/utf16"
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// LSP 位置的 character 以 UTF-16 码元计数。

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16RuneLen(r)
	}
	return n
}

func utf16RuneLen(r rune) int {
	if l := utf16.RuneLen(r); l > 0 {
		return l
	}
	return 1
}

// byteOffsetInLine converts a UTF-16 column into a byte offset within line.
// Columns past the end of the line clamp to the line length, as the protocol
// requires. A column inside a surrogate pair resolves to the start of the rune.
func byteOffsetInLine(line string, col int) int {
	units := 0
	for i := 0; i < len(line); {
		if units >= col {
			return i
		}
		r, size := utf8.DecodeRuneInString(line[i:])
		next := units + utf16RuneLen(r)
		if next > col {
			return i
		}
		units = next
		i += size
	}
	return len(line)
}

func positionLess(a, b protocol.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}

// RangeContains 判断位置是否落在范围内（包含结束位置）
func RangeContains(r protocol.Range, pos protocol.Position) bool {
	return !positionLess(pos, r.Start) && !positionLess(r.End, pos)
}

// RangesOverlap 判断两个范围是否相交
func RangesOverlap(a, b protocol.Range) bool {
	return !positionLess(a.End, b.Start) && !positionLess(b.End, a.Start)
}
