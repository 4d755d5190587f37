package schema

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// DiagnosticsPublisher 接收重新分析后的诊断结果
type DiagnosticsPublisher interface {
	PublishDiagnostics(uri string, version int32, diagnostics []protocol.Diagnostic)
}

// Workspace 调度器某一时刻的一致视图：全部已打开文档以及由同一次写入产生的索引快照。
// 视图不可变，构造后不会随后续编辑变化。
type Workspace struct {
	docs  map[string]*Document
	index *IndexSnapshot
}

// Document 返回视图中的文档快照
func (w *Workspace) Document(uri string) (*Document, bool) {
	doc, ok := w.docs[uri]
	return doc, ok
}

// State 返回视图中 uri 的生命周期状态。关闭后的文档不留痕迹，回到 Unopened。
func (w *Workspace) State(uri string) State {
	if _, ok := w.docs[uri]; ok {
		return StateOpen
	}
	return StateUnopened
}

// Index 返回与文档同一时刻的索引快照
func (w *Workspace) Index() *IndexSnapshot {
	return w.index
}

// URIs 返回已打开文档的 URI，已排序
func (w *Workspace) URIs() []string {
	uris := make([]string, 0, len(w.docs))
	for uri := range w.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Documents 返回已打开的文档，按 URI 排序
func (w *Workspace) Documents() []*Document {
	uris := w.URIs()
	docs := make([]*Document, len(uris))
	for i, uri := range uris {
		docs[i] = w.docs[uri]
	}
	return docs
}

func (w *Workspace) clone() *Workspace {
	next := &Workspace{
		docs:  make(map[string]*Document, len(w.docs)+1),
		index: w.index,
	}
	for uri, doc := range w.docs {
		next.docs[uri] = doc
	}
	return next
}

// SchedulerOption 调度器选项
type SchedulerOption func(*Scheduler)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPublisher 设置诊断发布者
func WithPublisher(p DiagnosticsPublisher) SchedulerOption {
	return func(s *Scheduler) {
		s.publisher = p
	}
}

// WithIndex 使用外部提供的符号索引
func WithIndex(idx *Index) SchedulerOption {
	return func(s *Scheduler) {
		if idx != nil {
			s.index = idx
		}
	}
}

// Scheduler 文档调度器，持有全部打开文档的权威文本与派生状态。
//
// 生命周期操作在 mu 下串行执行，每个操作完整生效（或被明确拒绝）后才会
// 处理下一个。每次生效的变更都会构造新的 Workspace 并原子发布，
// 读取方通过 View 无锁获取，永远不会观察到半个编辑。
type Scheduler struct {
	mu        sync.Mutex
	view      atomic.Pointer[Workspace]
	index     *Index
	publisher DiagnosticsPublisher
	logger    *zap.Logger
}

// NewScheduler 创建调度器
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.index == nil {
		s.index = NewIndex()
	}
	s.logger = s.logger.With(zap.String("component", "scheduler"))
	s.view.Store(&Workspace{
		docs:  map[string]*Document{},
		index: s.index.Snapshot(),
	})
	return s
}

// Index 返回调度器维护的符号索引
func (s *Scheduler) Index() *Index {
	return s.index
}

// View 返回当前一致视图
func (s *Scheduler) View() *Workspace {
	return s.view.Load()
}

// Snapshot 返回 uri 当前的文档快照
func (s *Scheduler) Snapshot(uri string) (*Document, bool) {
	return s.View().Document(uri)
}

// State 返回 uri 当前的生命周期状态
func (s *Scheduler) State(uri string) State {
	return s.View().State(uri)
}

// URIs 返回已打开文档的 URI
func (s *Scheduler) URIs() []string {
	return s.View().URIs()
}

// Open 打开文档。要求 uri 处于 Unopened 或 Closed。
func (s *Scheduler) Open(item protocol.TextDocumentItem) error {
	uri := string(item.URI)
	if uri == "" {
		return ErrEmptyURI
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.view.Load()
	if _, err := Transition(cur.State(uri), EventOpen); err != nil {
		return fmt.Errorf("open %s: %w", uri, err)
	}

	doc := NewDocument(uri, string(item.LanguageID), item.Version, item.Text)
	next := cur.clone()
	next.docs[uri] = doc
	next.index = s.index.Replace(uri, doc.Symbols)
	s.view.Store(next)

	s.logger.Debug("document opened",
		zap.String("uri", uri),
		zap.Int32("version", doc.Version),
		zap.Int("symbols", len(doc.Symbols)))
	s.publish(doc)
	return nil
}

// ApplyEdit 对已打开的文档应用单个编辑。
// 编辑被拒绝时文本与版本保持不变。
func (s *Scheduler) ApplyEdit(uri string, version int32, edit Edit) error {
	if uri == "" {
		return ErrEmptyURI
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.view.Load()
	if _, err := Transition(cur.State(uri), EventChange); err != nil {
		return fmt.Errorf("change %s: %w", uri, err)
	}
	doc := cur.docs[uri]
	if version < doc.Version {
		return fmt.Errorf("change %s: %w: got %d, have %d", uri, ErrStaleVersion, version, doc.Version)
	}

	text, err := doc.Apply(edit)
	if err != nil {
		return fmt.Errorf("change %s: %w", uri, err)
	}

	updated := NewDocument(uri, doc.LanguageID, version, text)
	next := cur.clone()
	next.docs[uri] = updated
	next.index = s.index.Replace(uri, updated.Symbols)
	s.view.Store(next)

	s.logger.Debug("document changed",
		zap.String("uri", uri),
		zap.Int32("version", version),
		zap.Stringer("edit", edit))
	s.publish(updated)
	return nil
}

// Close 关闭文档，释放其派生状态并清空已发布的诊断。
func (s *Scheduler) Close(uri string) error {
	if uri == "" {
		return ErrEmptyURI
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.view.Load()
	if _, err := Transition(cur.State(uri), EventClose); err != nil {
		return fmt.Errorf("close %s: %w", uri, err)
	}
	doc := cur.docs[uri]

	next := cur.clone()
	delete(next.docs, uri)
	next.index = s.index.Remove(uri)
	s.view.Store(next)

	s.logger.Debug("document closed", zap.String("uri", uri))
	if s.publisher != nil {
		s.publisher.PublishDiagnostics(uri, doc.Version, []protocol.Diagnostic{})
	}
	return nil
}

func (s *Scheduler) publish(doc *Document) {
	if s.publisher == nil {
		return
	}
	diags := doc.Diagnostics
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	s.publisher.PublishDiagnostics(doc.URI, doc.Version, diags)
}
