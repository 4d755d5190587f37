package schema

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func symbolsOf(uri, text string) []Symbol {
	return NewDocument(uri, "schema", 1, text).Symbols
}

func TestIndex_ReplaceAndQuery(t *testing.T) {
	idx := NewIndex()
	assert.Zero(t, idx.Snapshot().Len())

	idx.Replace("file:///b.sd", symbolsOf("file:///b.sd", "schema b { field title type string {} }"))
	snap := idx.Replace("file:///a.sd", symbolsOf("file:///a.sd", "schema a { field title type int {} }"))

	assert.Equal(t, uint64(2), snap.Generation())
	assert.Equal(t, []string{"file:///a.sd", "file:///b.sd"}, snap.URIs())
	assert.Equal(t, []string{"a", "b", "title"}, snap.Names())
	assert.Equal(t, 4, snap.Len())

	defs := snap.Definitions("title")
	require.Len(t, defs, 2)
	assert.Equal(t, "file:///a.sd", defs[0].URI)
	assert.Equal(t, "int", defs[0].Type)

	sym, ok := snap.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, SymbolSchema, sym.Kind)

	_, ok = snap.Lookup("missing")
	assert.False(t, ok)
	assert.Len(t, snap.SymbolsIn("file:///a.sd"), 2)
	assert.Len(t, snap.All(), 4)
}

func TestIndex_SnapshotIsolation(t *testing.T) {
	idx := NewIndex()
	before := idx.Replace("file:///a.sd", symbolsOf("file:///a.sd", "schema a {}"))

	idx.Replace("file:///a.sd", symbolsOf("file:///a.sd", "schema renamed {}"))
	after := idx.Remove("file:///a.sd")

	_, ok := before.Lookup("a")
	assert.True(t, ok, "earlier snapshot is unaffected by later writes")
	assert.Equal(t, 1, before.Len())

	assert.Zero(t, after.Len())
	assert.Empty(t, after.URIs())
	assert.Same(t, after, idx.Snapshot())
}

func TestIndex_ReplaceEmptyKeepsEntry(t *testing.T) {
	idx := NewIndex()
	snap := idx.Replace("file:///empty.sd", nil)
	assert.Equal(t, []string{"file:///empty.sd"}, snap.URIs())
	assert.Empty(t, snap.SymbolsIn("file:///empty.sd"))
}

func TestIndex_ConcurrentReaders(t *testing.T) {
	idx := NewIndex()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			uri := fmt.Sprintf("file:///%d.sd", i%5)
			idx.Replace(uri, symbolsOf(uri, fmt.Sprintf("schema s%d { field f type int {} }", i)))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := idx.Snapshot()
				for _, uri := range snap.URIs() {
					// every document contributes exactly its schema and field
					assert.Len(t, snap.SymbolsIn(uri), 2)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(200), idx.Snapshot().Generation())
}
