package schema

import (
	"sort"
	"sync"
	"sync/atomic"
)

// IndexSnapshot 符号索引的不可变快照，可被任意多个读取方并发使用。
type IndexSnapshot struct {
	generation uint64
	byURI      map[string][]Symbol
	byName     map[string][]Symbol
}

var emptySnapshot = &IndexSnapshot{
	byURI:  map[string][]Symbol{},
	byName: map[string][]Symbol{},
}

// Generation 返回快照代数，每次写入递增
func (s *IndexSnapshot) Generation() uint64 {
	return s.generation
}

// Definitions 返回名称为 name 的全部声明，按 URI 与位置排序
func (s *IndexSnapshot) Definitions(name string) []Symbol {
	return s.byName[name]
}

// Lookup 返回 name 的第一个声明
func (s *IndexSnapshot) Lookup(name string) (Symbol, bool) {
	defs := s.byName[name]
	if len(defs) == 0 {
		return Symbol{}, false
	}
	return defs[0], true
}

// SymbolsIn 返回某个文档贡献的声明
func (s *IndexSnapshot) SymbolsIn(uri string) []Symbol {
	return s.byURI[uri]
}

// URIs 返回已索引的文档，已排序
func (s *IndexSnapshot) URIs() []string {
	uris := make([]string, 0, len(s.byURI))
	for uri := range s.byURI {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Names 返回全部已声明的名称，已排序
func (s *IndexSnapshot) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All 返回全部声明
func (s *IndexSnapshot) All() []Symbol {
	var all []Symbol
	for _, uri := range s.URIs() {
		all = append(all, s.byURI[uri]...)
	}
	return all
}

// Len 返回声明总数
func (s *IndexSnapshot) Len() int {
	n := 0
	for _, syms := range s.byURI {
		n += len(syms)
	}
	return n
}

// with 返回替换（或删除，当 symbols 为 nil）了 uri 条目的新快照。
// 未受影响的切片在新旧快照间共享，它们本身从不被修改。
func (s *IndexSnapshot) with(uri string, symbols []Symbol) *IndexSnapshot {
	next := &IndexSnapshot{
		generation: s.generation + 1,
		byURI:      make(map[string][]Symbol, len(s.byURI)+1),
	}
	for u, syms := range s.byURI {
		if u != uri {
			next.byURI[u] = syms
		}
	}
	if symbols != nil {
		next.byURI[uri] = append([]Symbol(nil), symbols...)
	}

	next.byName = make(map[string][]Symbol, len(s.byName))
	for _, u := range next.URIs() {
		for _, sym := range next.byURI[u] {
			next.byName[sym.Name] = append(next.byName[sym.Name], sym)
		}
	}
	return next
}

// Index 跨文档共享的符号索引。
//
// 写入方在互斥锁下构造新快照并原子发布；读取方通过 Snapshot 无锁获取，
// 永远不会看到部分更新的结构。
type Index struct {
	mu      sync.Mutex
	current atomic.Pointer[IndexSnapshot]
}

// NewIndex 创建空索引
func NewIndex() *Index {
	idx := &Index{}
	idx.current.Store(emptySnapshot)
	return idx
}

// Snapshot 返回当前快照
func (idx *Index) Snapshot() *IndexSnapshot {
	return idx.current.Load()
}

// Replace 用 symbols 替换 uri 的条目并返回新快照
func (idx *Index) Replace(uri string, symbols []Symbol) *IndexSnapshot {
	if symbols == nil {
		symbols = []Symbol{}
	}
	return idx.update(uri, symbols)
}

// Remove 删除 uri 的条目并返回新快照
func (idx *Index) Remove(uri string) *IndexSnapshot {
	return idx.update(uri, nil)
}

func (idx *Index) update(uri string, symbols []Symbol) *IndexSnapshot {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := idx.current.Load().with(uri, symbols)
	idx.current.Store(next)
	return next
}
