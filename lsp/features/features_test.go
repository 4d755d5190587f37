package features

import (
	"context"
	"testing"

	"github.com/BaSui01/schemals/lsp"
	"github.com/BaSui01/schemals/schema"
	"github.com/BaSui01/schemals/testutil"
	"github.com/BaSui01/schemals/testutil/fixtures"
	"github.com/BaSui01/schemals/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func workspace(t *testing.T, docs map[string]string) *schema.Scheduler {
	t.Helper()
	s := schema.NewScheduler()
	for uri, text := range docs {
		require.NoError(t, s.Open(protocol.TextDocumentItem{
			URI:        protocol.DocumentURI(uri),
			LanguageID: "schema",
			Version:    1,
			Text:       text,
		}))
	}
	return s
}

func at(t *testing.T, s *schema.Scheduler, uri string, line, char uint32) *lsp.RequestContext {
	t.Helper()
	pos := testutil.Pos(line, char)
	rc, err := lsp.BuildContext(context.Background(), s, mocks.NewRecordingChannel(), lsp.Params{URI: uri, Position: &pos})
	require.NoError(t, err)
	return rc
}

func labels(items []protocol.CompletionItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

// --- Completion ---

func TestCompletion(t *testing.T) {
	s := workspace(t, map[string]string{
		fixtures.CatalogURI: fixtures.Catalog,
		testURI:             "search a {\n    field f type st\n    al\n}",
	})

	items, err := Completion(context.Background(), at(t, s, testURI, 1, 19))
	require.NoError(t, err)
	assert.Equal(t, []string{"stemming", "string", "struct"}, sortedCopy(labels(items)))

	items, err = Completion(context.Background(), at(t, s, testURI, 2, 6))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "album", items[0].Label)
	assert.Equal(t, protocol.CompletionItemKindStruct, items[0].Kind)
	assert.Equal(t, "struct", items[0].Detail)
}

func TestCompletion_NotFound(t *testing.T) {
	items, err := Completion(context.Background(), at(t, workspace(t, nil), "file:///none.sd", 0, 0))
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

// --- Hover ---

func TestHover(t *testing.T) {
	s := workspace(t, map[string]string{
		fixtures.CatalogURI: fixtures.Catalog,
		fixtures.ArtistURI:  fixtures.Artist,
	})

	tests := []struct {
		name     string
		uri      string
		line     uint32
		char     uint32
		contains []string
	}{
		{"declaration keyword", fixtures.CatalogURI, 2, 9, []string{"field title type string", "in `album`"}},
		{"reference to struct", fixtures.ArtistURI, 3, 34, []string{"struct album", fixtures.CatalogURI}},
		{"keyword", fixtures.ArtistURI, 3, 22, []string{"`type` keyword"}},
		{"builtin type", fixtures.ArtistURI, 3, 28, []string{"`array` built-in type"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hover, err := Hover(context.Background(), at(t, s, tt.uri, tt.line, tt.char))
			require.NoError(t, err)
			require.NotNil(t, hover)
			assert.Equal(t, protocol.Markdown, hover.Contents.Kind)
			for _, want := range tt.contains {
				assert.Contains(t, hover.Contents.Value, want)
			}
		})
	}
}

func TestHover_Nothing(t *testing.T) {
	s := workspace(t, map[string]string{testURI: "search a {   }"})
	hover, err := Hover(context.Background(), at(t, s, testURI, 0, 12))
	require.NoError(t, err)
	assert.Nil(t, hover)
}

// --- Navigation ---

func TestDefinition(t *testing.T) {
	s := workspace(t, map[string]string{
		fixtures.CatalogURI: fixtures.Catalog,
		fixtures.ArtistURI:  fixtures.Artist,
	})

	locs, err := Definition(context.Background(), at(t, s, fixtures.ArtistURI, 3, 33))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, protocol.DocumentURI(fixtures.CatalogURI), locs[0].URI)

	locs, err = Definition(context.Background(), at(t, s, fixtures.ArtistURI, 3, 28))
	require.NoError(t, err)
	assert.Equal(t, []protocol.Location{}, locs)
}

func TestReferences(t *testing.T) {
	s := workspace(t, map[string]string{
		fixtures.CatalogURI: fixtures.Catalog,
		fixtures.ArtistURI:  fixtures.Artist,
	})

	pos := testutil.Pos(1, 12)
	for _, include := range []bool{true, false} {
		rc, err := lsp.BuildContext(context.Background(), s, mocks.NewRecordingChannel(), lsp.Params{
			URI:                fixtures.CatalogURI,
			Position:           &pos,
			IncludeDeclaration: include,
		})
		require.NoError(t, err)

		locs, err := References(context.Background(), rc)
		require.NoError(t, err)
		if include {
			require.Len(t, locs, 2)
			assert.Equal(t, protocol.DocumentURI(fixtures.ArtistURI), locs[0].URI)
			assert.Equal(t, protocol.DocumentURI(fixtures.CatalogURI), locs[1].URI)
		} else {
			require.Len(t, locs, 1)
			assert.Equal(t, testutil.Range(3, 32, 3, 37), locs[0].Range)
		}
	}
}

func TestPrepareRename(t *testing.T) {
	s := workspace(t, map[string]string{fixtures.MusicURI: fixtures.Music})

	rng, err := PrepareRename(context.Background(), at(t, s, fixtures.MusicURI, 2, 15))
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, testutil.Range(2, 14, 2, 19), *rng)

	rng, err = PrepareRename(context.Background(), at(t, s, fixtures.MusicURI, 2, 9))
	require.NoError(t, err)
	assert.Nil(t, rng)
}

func TestRename(t *testing.T) {
	s := workspace(t, map[string]string{
		fixtures.CatalogURI: fixtures.Catalog,
		fixtures.ArtistURI:  fixtures.Artist,
	})

	pos := testutil.Pos(3, 33)
	rc, err := lsp.BuildContext(context.Background(), s, mocks.NewRecordingChannel(), lsp.Params{
		URI: fixtures.ArtistURI, Position: &pos, NewName: "record",
	})
	require.NoError(t, err)

	edit, err := Rename(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, map[protocol.DocumentURI][]protocol.TextEdit{
		fixtures.CatalogURI: {{Range: testutil.Range(1, 11, 1, 16), NewText: "record"}},
		fixtures.ArtistURI:  {{Range: testutil.Range(3, 32, 3, 37), NewText: "record"}},
	}, edit.Changes)
}

func TestRename_Errors(t *testing.T) {
	s := workspace(t, map[string]string{fixtures.MusicURI: fixtures.Music})

	for _, tt := range []struct {
		name    string
		newName string
		line    uint32
		char    uint32
		err     error
	}{
		{"invalid name", "9lives", 2, 15, ErrInvalidName},
		{"keyword as name", "field", 2, 15, ErrInvalidName},
		{"not a symbol", "other", 2, 9, ErrNotRenamable},
	} {
		t.Run(tt.name, func(t *testing.T) {
			pos := testutil.Pos(tt.line, tt.char)
			rc, err := lsp.BuildContext(context.Background(), s, mocks.NewRecordingChannel(), lsp.Params{
				URI: fixtures.MusicURI, Position: &pos, NewName: tt.newName,
			})
			require.NoError(t, err)

			_, err = Rename(context.Background(), rc)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

// --- Document symbols ---

func TestDocumentSymbols(t *testing.T) {
	s := workspace(t, map[string]string{fixtures.MusicURI: fixtures.Music})
	rc, err := lsp.BuildContext(context.Background(), s, mocks.NewRecordingChannel(), lsp.Params{URI: fixtures.MusicURI})
	require.NoError(t, err)

	symbols, err := DocumentSymbols(context.Background(), rc)
	require.NoError(t, err)
	require.Len(t, symbols, 1)

	root := symbols[0]
	assert.Equal(t, "music", root.Name)
	assert.Equal(t, protocol.SymbolKindNamespace, root.Kind)
	require.Len(t, root.Children, 2)

	doc := root.Children[0]
	assert.Equal(t, protocol.SymbolKindClass, doc.Kind)
	require.Len(t, doc.Children, 2)
	assert.Equal(t, "title", doc.Children[0].Name)
	assert.Equal(t, "string", doc.Children[0].Detail)
	assert.Equal(t, "array<string>", doc.Children[1].Detail)

	profile := root.Children[1]
	assert.Equal(t, "fresh", profile.Name)
	require.Len(t, profile.Children, 1)
	assert.Equal(t, "boost", profile.Children[0].Name)
	assert.Equal(t, protocol.SymbolKindFunction, profile.Children[0].Kind)
}

// --- Code actions ---

func TestCodeActions(t *testing.T) {
	s := workspace(t, map[string]string{testURI: "search a {\n    field f type string {}\n    summary: \"open"})
	doc, ok := s.Snapshot(testURI)
	require.True(t, ok)
	require.Len(t, doc.Diagnostics, 2)

	rc, err := lsp.BuildContext(context.Background(), s, mocks.NewRecordingChannel(), lsp.Params{
		URI:         testURI,
		Diagnostics: doc.Diagnostics,
	})
	require.NoError(t, err)

	actions, err := CodeActions(context.Background(), rc)
	require.NoError(t, err)
	require.Len(t, actions, 2)

	byTitle := map[string]protocol.CodeAction{}
	for _, a := range actions {
		assert.Equal(t, protocol.QuickFix, a.Kind)
		byTitle[a.Title] = a
	}

	brace := byTitle["Insert missing '}'"].Edit.Changes[testURI]
	require.Len(t, brace, 1)
	assert.Equal(t, "\n}", brace[0].NewText)
	assert.Equal(t, doc.End(), brace[0].Range.Start)

	quote := byTitle["Close string literal"].Edit.Changes[testURI]
	require.Len(t, quote, 1)
	assert.Equal(t, `"`, quote[0].NewText)
	assert.Equal(t, doc.End(), quote[0].Range.Start)
}

func TestCodeActions_RangeFilter(t *testing.T) {
	s := workspace(t, map[string]string{testURI: "search a {\n    summary: \"open"})
	doc, _ := s.Snapshot(testURI)

	r := testutil.Range(5, 0, 5, 1)
	rc, err := lsp.BuildContext(context.Background(), s, mocks.NewRecordingChannel(), lsp.Params{
		URI:         testURI,
		Range:       &r,
		Diagnostics: doc.Diagnostics,
	})
	require.NoError(t, err)

	actions, err := CodeActions(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, []protocol.CodeAction{}, actions)
}

// --- Semantic tokens ---

func TestSemanticTokens(t *testing.T) {
	s := workspace(t, map[string]string{testURI: "search a {\n  field f type string {} # note\n}"})
	rc, err := lsp.BuildContext(context.Background(), s, mocks.NewRecordingChannel(), lsp.Params{URI: testURI})
	require.NoError(t, err)

	tokens, err := SemanticTokens(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, []uint32{
		0, 0, 6, tokenKeyword, 0, // search
		0, 7, 1, tokenClass, modifierDeclaration, // a
		1, 2, 5, tokenKeyword, 0, // field
		0, 6, 1, tokenProperty, modifierDeclaration, // f
		0, 2, 4, tokenKeyword, 0, // type
		0, 5, 6, tokenType, 0, // string
		0, 10, 6, tokenComment, 0, // # note
	}, tokens.Data)

	legend := Legend()
	assert.Equal(t, protocol.SemanticTokenTypes("keyword"), legend.TokenTypes[tokenKeyword])
	assert.Equal(t, protocol.SemanticTokenTypes("comment"), legend.TokenTypes[tokenComment])
	assert.Len(t, legend.TokenTypes, int(tokenComment)+1)
}

func TestDefault(t *testing.T) {
	r := Default()
	assert.NotNil(t, r.Completion)
	assert.NotNil(t, r.SemanticTokens)
}
