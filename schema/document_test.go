package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func pos(line, char uint32) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

func rng(sl, sc, el, ec uint32) protocol.Range {
	return protocol.Range{Start: pos(sl, sc), End: pos(el, ec)}
}

// --- Offset ---

func TestDocument_Offset(t *testing.T) {
	doc := NewDocument("file:///a.sd", "schema", 1, "ab\r\ncd\nef")

	tests := []struct {
		name string
		pos  protocol.Position
		want int
	}{
		{"start", pos(0, 0), 0},
		{"middle of first line", pos(0, 1), 1},
		{"past end clamps before CR", pos(0, 99), 2},
		{"second line", pos(1, 1), 5},
		{"last line end", pos(2, 2), 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := doc.Offset(tt.pos)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := doc.Offset(pos(3, 0))
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestDocument_LineTerminators(t *testing.T) {
	doc := NewDocument("file:///a.sd", "schema", 1, "ab\rcd\r\nef\n")
	require.Equal(t, 4, doc.LineCount())

	for i, want := range []string{"ab", "cd", "ef", ""} {
		line, ok := doc.Line(i)
		require.True(t, ok)
		assert.Equal(t, want, line, "line %d", i)
	}

	tests := []struct {
		name string
		pos  protocol.Position
		want int
	}{
		{"after bare CR", pos(1, 0), 3},
		{"clamps before CRLF", pos(1, 9), 5},
		{"after CRLF", pos(2, 1), 8},
		{"trailing empty line", pos(3, 0), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := doc.Offset(tt.pos)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, pos(3, 0), doc.End())
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		text   string
		lines  []string
		starts []int
	}{
		{"", []string{""}, []int{0}},
		{"a", []string{"a"}, []int{0}},
		{"a\n", []string{"a", ""}, []int{0, 2}},
		{"a\r", []string{"a", ""}, []int{0, 2}},
		{"a\r\nb", []string{"a", "b"}, []int{0, 3}},
		{"\r\r\n\n", []string{"", "", "", ""}, []int{0, 1, 3, 4}},
	}
	for _, tt := range tests {
		lines, starts := splitLines(tt.text)
		assert.Equal(t, tt.lines, lines, "%q", tt.text)
		assert.Equal(t, tt.starts, starts, "%q", tt.text)
	}
}

func TestDocument_OffsetUTF16(t *testing.T) {
	// "𝄞" is one rune, four bytes and two UTF-16 code units.
	doc := NewDocument("file:///u.sd", "schema", 1, "a𝄞b")

	off, err := doc.Offset(pos(0, 3))
	require.NoError(t, err)
	assert.Equal(t, "b", doc.Text[off:])

	off, err = doc.Offset(pos(0, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, off, "column inside a surrogate pair resolves to the rune start")
}

func TestDocument_LinesAndEnd(t *testing.T) {
	doc := NewDocument("file:///a.sd", "schema", 1, "one\ntwo")
	assert.Equal(t, 2, doc.LineCount())

	line, ok := doc.Line(1)
	require.True(t, ok)
	assert.Equal(t, "two", line)

	_, ok = doc.Line(2)
	assert.False(t, ok)
	assert.Equal(t, pos(1, 3), doc.End())
}

// --- WordAt / PrefixAt ---

func TestDocument_WordAt(t *testing.T) {
	doc := NewDocument("file:///a.sd", "schema", 1, "rank-profile my_rank {}")

	word, r, ok := doc.WordAt(pos(0, 3))
	require.True(t, ok)
	assert.Equal(t, "rank-profile", word)
	assert.Equal(t, rng(0, 0, 0, 12), r)

	word, _, ok = doc.WordAt(pos(0, 20))
	require.True(t, ok, "cursor right after a word still hits it")
	assert.Equal(t, "my_rank", word)

	_, _, ok = doc.WordAt(pos(0, 22))
	assert.False(t, ok)

	_, _, ok = doc.WordAt(pos(5, 0))
	assert.False(t, ok)
}

func TestDocument_PrefixAt(t *testing.T) {
	doc := NewDocument("file:///a.sd", "schema", 1, "  field ti")
	assert.Equal(t, "ti", doc.PrefixAt(pos(0, 10)))
	assert.Equal(t, "fi", doc.PrefixAt(pos(0, 4)))
	assert.Equal(t, "", doc.PrefixAt(pos(0, 1)))
}

// --- Symbols ---

func TestDocument_SymbolAndDeclarationAt(t *testing.T) {
	doc := NewDocument("file:///a.sd", "schema", 1, "search a { field f type string {} }")

	sym, ok := doc.DeclarationAt(pos(0, 12))
	require.True(t, ok, "hovering the keyword resolves the declaration it introduces")
	assert.Equal(t, "f", sym.Name)
	assert.Equal(t, SymbolField, sym.Kind)
	assert.Equal(t, "string", sym.Type)

	sym, ok = doc.SymbolAt(pos(0, 7))
	require.True(t, ok)
	assert.Equal(t, "a", sym.Name)

	_, ok = doc.SymbolAt(pos(0, 3))
	assert.False(t, ok)
}

func TestIsValidName(t *testing.T) {
	assert.True(t, IsValidName("title"))
	assert.True(t, IsValidName("my-rank_2"))
	assert.False(t, IsValidName(""))
	assert.False(t, IsValidName("2fast"))
	assert.False(t, IsValidName("a b"))
}
