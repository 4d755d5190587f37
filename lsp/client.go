package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// Client 基于 jsonrpc2 的 LSP 客户端，用于 ping 命令和端到端测试。
// 它记录服务端发来的 window/logMessage 与 publishDiagnostics。
type Client struct {
	conn jsonrpc2.Conn

	mu          sync.RWMutex
	serverInfo  *protocol.ServerInfo
	messages    []protocol.LogMessageParams
	diagnostics map[string]publishDiagnosticsParams
	updates     chan struct{}

	logger *zap.Logger
}

// NewClient 在 rwc 上创建客户端并开始读取消息
func NewClient(ctx context.Context, rwc io.ReadWriteCloser, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		conn:        jsonrpc2.NewConn(jsonrpc2.NewStream(rwc)),
		diagnostics: make(map[string]publishDiagnosticsParams),
		updates:     make(chan struct{}, 1),
		logger:      logger.With(zap.String("component", "lsp_client")),
	}
	c.conn.Go(ctx, c.handle)
	return c
}

func (c *Client) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case MethodLogMessage:
		var p protocol.LogMessageParams
		if err := json.Unmarshal(req.Params(), &p); err != nil {
			c.logger.Warn("malformed logMessage", zap.Error(err))
			return nil
		}
		c.mu.Lock()
		c.messages = append(c.messages, p)
		c.mu.Unlock()
		c.notifyUpdate()
		return nil

	case MethodPublishDiagnostics:
		var p publishDiagnosticsParams
		if err := json.Unmarshal(req.Params(), &p); err != nil {
			c.logger.Warn("malformed publishDiagnostics", zap.Error(err))
			return nil
		}
		c.mu.Lock()
		c.diagnostics[string(p.URI)] = p
		c.mu.Unlock()
		c.notifyUpdate()
		return nil
	}

	if _, ok := req.(*jsonrpc2.Call); ok {
		return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.MethodNotFound, "method not found: "+req.Method()))
	}
	return nil
}

func (c *Client) notifyUpdate() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Updates 在收到新的日志消息或诊断后收到信号
func (c *Client) Updates() <-chan struct{} {
	return c.updates
}

// Call 发送请求并把结果解码到 result
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	if _, err := c.conn.Call(ctx, method, params, result); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// Notify 发送通知
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	return c.conn.Notify(ctx, method, params)
}

// Initialize 完成 initialize/initialized 握手
func (c *Client) Initialize(ctx context.Context, params protocol.InitializeParams) (*protocol.InitializeResult, error) {
	var result protocol.InitializeResult
	if err := c.Call(ctx, MethodInitialize, params, &result); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.serverInfo = result.ServerInfo
	c.mu.Unlock()

	if err := c.Notify(ctx, MethodInitialized, struct{}{}); err != nil {
		return nil, err
	}

	if result.ServerInfo != nil {
		c.logger.Info("LSP client initialized", zap.String("server", result.ServerInfo.Name))
	}
	return &result, nil
}

// Shutdown 发送 shutdown 与 exit
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.Call(ctx, MethodShutdown, nil, nil); err != nil {
		return err
	}
	return c.Notify(ctx, MethodExit, nil)
}

// DidOpen 打开文档
func (c *Client) DidOpen(ctx context.Context, uri, languageID string, version int32, text string) error {
	return c.Notify(ctx, MethodDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        protocol.DocumentURI(uri),
			LanguageID: protocol.LanguageIdentifier(languageID),
			Version:    version,
			Text:       text,
		},
	})
}

// DidChange 发送编辑
func (c *Client) DidChange(ctx context.Context, uri string, version int32, changes ...ContentChange) error {
	return c.Notify(ctx, MethodDidChange, &DidChangeParams{
		TextDocument:   VersionedIdentifier(uri, version),
		ContentChanges: changes,
	})
}

// DidClose 关闭文档
func (c *Client) DidClose(ctx context.Context, uri string) error {
	return c.Notify(ctx, MethodDidClose, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	})
}

// DidSave 保存文档
func (c *Client) DidSave(ctx context.Context, uri string) error {
	return c.Notify(ctx, MethodDidSave, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	})
}

func positionAt(uri string, pos protocol.Position) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Position:     pos,
	}
}

// Completion 请求补全
func (c *Client) Completion(ctx context.Context, uri string, pos protocol.Position) ([]protocol.CompletionItem, error) {
	var items []protocol.CompletionItem
	err := c.Call(ctx, MethodCompletion, &protocol.CompletionParams{TextDocumentPositionParams: positionAt(uri, pos)}, &items)
	return items, err
}

// Hover 请求悬停信息
func (c *Client) Hover(ctx context.Context, uri string, pos protocol.Position) (*protocol.Hover, error) {
	var hover *protocol.Hover
	err := c.Call(ctx, MethodHover, &protocol.HoverParams{TextDocumentPositionParams: positionAt(uri, pos)}, &hover)
	return hover, err
}

// Definition 请求定义位置
func (c *Client) Definition(ctx context.Context, uri string, pos protocol.Position) ([]protocol.Location, error) {
	var locs []protocol.Location
	err := c.Call(ctx, MethodDefinition, &protocol.DefinitionParams{TextDocumentPositionParams: positionAt(uri, pos)}, &locs)
	return locs, err
}

// References 请求引用
func (c *Client) References(ctx context.Context, uri string, pos protocol.Position, includeDeclaration bool) ([]protocol.Location, error) {
	var locs []protocol.Location
	err := c.Call(ctx, MethodReferences, &protocol.ReferenceParams{
		TextDocumentPositionParams: positionAt(uri, pos),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: includeDeclaration},
	}, &locs)
	return locs, err
}

// DocumentSymbols 请求文档符号
func (c *Client) DocumentSymbols(ctx context.Context, uri string) ([]protocol.DocumentSymbol, error) {
	var symbols []protocol.DocumentSymbol
	err := c.Call(ctx, MethodDocumentSymbol, &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	}, &symbols)
	return symbols, err
}

// CodeActions 请求代码操作
func (c *Client) CodeActions(ctx context.Context, uri string, rng protocol.Range, diagnostics []protocol.Diagnostic) ([]protocol.CodeAction, error) {
	var actions []protocol.CodeAction
	err := c.Call(ctx, MethodCodeAction, &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Range:        rng,
		Context:      protocol.CodeActionContext{Diagnostics: diagnostics},
	}, &actions)
	return actions, err
}

// PrepareRename 检查位置是否可重命名
func (c *Client) PrepareRename(ctx context.Context, uri string, pos protocol.Position) (*protocol.Range, error) {
	var rng *protocol.Range
	err := c.Call(ctx, MethodPrepareRename, &protocol.PrepareRenameParams{TextDocumentPositionParams: positionAt(uri, pos)}, &rng)
	return rng, err
}

// Rename 请求重命名
func (c *Client) Rename(ctx context.Context, uri string, pos protocol.Position, newName string) (*protocol.WorkspaceEdit, error) {
	var edit *protocol.WorkspaceEdit
	err := c.Call(ctx, MethodRename, &protocol.RenameParams{
		TextDocumentPositionParams: positionAt(uri, pos),
		NewName:                    newName,
	}, &edit)
	return edit, err
}

// SemanticTokens 请求全量语义 token
func (c *Client) SemanticTokens(ctx context.Context, uri string) (*protocol.SemanticTokens, error) {
	var tokens *protocol.SemanticTokens
	err := c.Call(ctx, MethodSemanticTokensFull, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	}, &tokens)
	return tokens, err
}

// Messages 返回迄今收到的日志消息
func (c *Client) Messages() []protocol.LogMessageParams {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]protocol.LogMessageParams, len(c.messages))
	copy(out, c.messages)
	return out
}

// Diagnostics 返回 uri 最近一次发布的诊断
func (c *Client) Diagnostics(uri string) ([]protocol.Diagnostic, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.diagnostics[uri]
	return p.Diagnostics, ok
}

// ServerInfo 返回 initialize 得到的服务器信息
func (c *Client) ServerInfo() *protocol.ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverInfo
}

// Close 关闭连接
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.conn.Done()
	return err
}
