package schema

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"pgregory.net/rapid"
)

type published struct {
	uri     string
	version int32
	diags   []protocol.Diagnostic
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) PublishDiagnostics(uri string, version int32, diags []protocol.Diagnostic) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{uri: uri, version: version, diags: diags})
}

func (p *recordingPublisher) last() published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

func item(uri, text string) protocol.TextDocumentItem {
	return protocol.TextDocumentItem{
		URI:        protocol.DocumentURI(uri),
		LanguageID: "schema",
		Version:    1,
		Text:       text,
	}
}

// --- Lifecycle ---

func TestScheduler_Lifecycle(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewScheduler(WithPublisher(pub))
	const uri = "file:///a.sd"

	assert.Equal(t, StateUnopened, s.State(uri))
	require.NoError(t, s.Open(item(uri, "search a {}")))
	assert.Equal(t, StateOpen, s.State(uri))

	require.NoError(t, s.ApplyEdit(uri, 2, FullEdit("search a { field f type string {} }")))
	doc, ok := s.Snapshot(uri)
	require.True(t, ok)
	assert.Equal(t, int32(2), doc.Version)
	assert.Len(t, doc.Symbols, 2)

	_, ok = s.Index().Snapshot().Lookup("f")
	assert.True(t, ok)

	require.NoError(t, s.Close(uri))
	assert.Equal(t, StateUnopened, s.State(uri))
	_, ok = s.Snapshot(uri)
	assert.False(t, ok)
	_, ok = s.Index().Snapshot().Lookup("f")
	assert.False(t, ok, "close releases the document's index entries")

	last := pub.last()
	assert.Equal(t, uri, last.uri)
	assert.NotNil(t, last.diags)
	assert.Empty(t, last.diags)

	require.NoError(t, s.Open(item(uri, "search again {}")), "a closed document can be reopened")
}

func TestScheduler_CloseLeavesNoTrace(t *testing.T) {
	s := NewScheduler()
	for i := 0; i < 100; i++ {
		uri := fmt.Sprintf("file:///doc%d.sd", i)
		require.NoError(t, s.Open(item(uri, "search a {}")))
		require.NoError(t, s.Close(uri))
		assert.Equal(t, StateUnopened, s.State(uri))
	}

	view := s.View()
	assert.Empty(t, view.docs)
	assert.Empty(t, view.URIs())
	assert.Equal(t, 0, view.Index().Len())
}

func TestScheduler_InvalidTransitions(t *testing.T) {
	s := NewScheduler()
	const uri = "file:///a.sd"

	assert.ErrorIs(t, s.ApplyEdit(uri, 1, FullEdit("x")), ErrNotOpen)
	assert.ErrorIs(t, s.Close(uri), ErrNotOpen)

	require.NoError(t, s.Open(item(uri, "x")))
	assert.ErrorIs(t, s.Open(item(uri, "y")), ErrAlreadyOpen)

	doc, _ := s.Snapshot(uri)
	assert.Equal(t, "x", doc.Text, "a rejected open does not replace the document")

	assert.ErrorIs(t, s.Open(item("", "x")), ErrEmptyURI)
	assert.ErrorIs(t, s.ApplyEdit("", 1, FullEdit("x")), ErrEmptyURI)
	assert.ErrorIs(t, s.Close(""), ErrEmptyURI)
}

func TestScheduler_RejectedEditLeavesDocument(t *testing.T) {
	s := NewScheduler()
	const uri = "file:///a.sd"
	require.NoError(t, s.Open(item(uri, "abc")))

	err := s.ApplyEdit(uri, 5, RangeEdit(rng(9, 0, 9, 0), "x"))
	assert.ErrorIs(t, err, ErrInvalidEdit)

	err = s.ApplyEdit(uri, 0, FullEdit("older"))
	assert.ErrorIs(t, err, ErrStaleVersion)

	doc, _ := s.Snapshot(uri)
	assert.Equal(t, "abc", doc.Text)
	assert.Equal(t, int32(1), doc.Version)
}

func TestScheduler_ViewIsFrozen(t *testing.T) {
	s := NewScheduler()
	const uri = "file:///a.sd"
	require.NoError(t, s.Open(item(uri, "schema old {}")))

	view := s.View()
	require.NoError(t, s.ApplyEdit(uri, 2, FullEdit("schema fresh {}")))

	doc, ok := view.Document(uri)
	require.True(t, ok)
	assert.Equal(t, "schema old {}", doc.Text)
	_, ok = view.Index().Lookup("old")
	assert.True(t, ok, "the view's index belongs to the same write as its documents")
	_, ok = view.Index().Lookup("fresh")
	assert.False(t, ok)

	doc, _ = s.Snapshot(uri)
	assert.Equal(t, "schema fresh {}", doc.Text)
}

func TestScheduler_WorkspaceListing(t *testing.T) {
	s := NewScheduler()
	require.NoError(t, s.Open(item("file:///b.sd", "schema b {}")))
	require.NoError(t, s.Open(item("file:///a.sd", "schema a {}")))

	assert.Equal(t, []string{"file:///a.sd", "file:///b.sd"}, s.URIs())
	docs := s.View().Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, "file:///a.sd", docs[0].URI)
}

func TestScheduler_PublishesDiagnostics(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewScheduler(WithPublisher(pub))
	require.NoError(t, s.Open(item("file:///a.sd", "search a {")))

	last := pub.last()
	assert.Equal(t, int32(1), last.version)
	require.Len(t, last.diags, 1)
	assert.Equal(t, MsgMissingBrace, last.diags[0].Message)

	require.NoError(t, s.ApplyEdit("file:///a.sd", 2, RangeEdit(rng(0, 10, 0, 10), "}")))
	last = pub.last()
	assert.Equal(t, int32(2), last.version)
	assert.Empty(t, last.diags)
}

// --- Properties ---

// offsetToPosition converts a byte offset in ASCII text into a position.
func offsetToPosition(text string, off int) protocol.Position {
	line := strings.Count(text[:off], "\n")
	col := off - (strings.LastIndex(text[:off], "\n") + 1)
	return protocol.Position{Line: uint32(line), Character: uint32(col)}
}

func TestScheduler_EditFoldProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewScheduler()
		const uri = "file:///p.sd"
		text := rapid.StringMatching(`[a-z {}\n]{0,30}`).Draw(t, "initial")
		if err := s.Open(item(uri, text)); err != nil {
			t.Fatalf("open: %v", err)
		}

		want := text
		n := rapid.IntRange(0, 15).Draw(t, "edits")
		for i := 0; i < n; i++ {
			insert := rapid.StringMatching(`[a-z\n]{0,5}`).Draw(t, "insert")
			if rapid.Bool().Draw(t, "valid") {
				a := rapid.IntRange(0, len(want)).Draw(t, "start")
				b := rapid.IntRange(a, len(want)).Draw(t, "end")
				r := protocol.Range{Start: offsetToPosition(want, a), End: offsetToPosition(want, b)}
				if err := s.ApplyEdit(uri, 1, RangeEdit(r, insert)); err != nil {
					t.Fatalf("valid edit rejected: %v", err)
				}
				want = want[:a] + insert + want[b:]
				continue
			}
			beyond := uint32(strings.Count(want, "\n") + 1)
			r := protocol.Range{Start: protocol.Position{Line: beyond}, End: protocol.Position{Line: beyond}}
			if err := s.ApplyEdit(uri, 1, RangeEdit(r, insert)); err == nil {
				t.Fatalf("edit beyond the last line accepted")
			}
		}

		doc, ok := s.Snapshot(uri)
		if !ok {
			t.Fatalf("document vanished")
		}
		if doc.Text != want {
			t.Fatalf("text %q, want fold of valid edits %q", doc.Text, want)
		}
	})
}

func TestScheduler_LifecycleProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewScheduler()
		const uri = "file:///l.sd"
		model := StateUnopened

		events := rapid.SliceOfN(rapid.SampledFrom([]Event{EventOpen, EventChange, EventClose}), 0, 20).Draw(t, "events")
		for _, ev := range events {
			var err error
			switch ev {
			case EventOpen:
				err = s.Open(item(uri, "schema l {}"))
			case EventChange:
				err = s.ApplyEdit(uri, 1, FullEdit("schema l { field f type int {} }"))
			case EventClose:
				err = s.Close(uri)
			}
			next, want := Transition(model, ev)
			if (err == nil) != (want == nil) {
				t.Fatalf("event %s in state %s: got err %v, want %v", ev, model, err, want)
			}
			if next == StateClosed {
				next = StateUnopened
			}
			model = next
			if got := s.State(uri); got != model {
				t.Fatalf("state %s, want %s", got, model)
			}
		}

		if model == StateOpen {
			if err := s.Close(uri); err != nil {
				t.Fatalf("close: %v", err)
			}
		}
		if _, ok := s.Snapshot(uri); ok {
			t.Fatalf("closed document still queryable")
		}
		if s.Index().Snapshot().Len() != 0 {
			t.Fatalf("closed document left symbols in the index")
		}
	})
}
