package features

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/schemals/lsp"
	"github.com/BaSui01/schemals/schema"
	"go.lsp.dev/protocol"
)

var (
	// ErrNotRenamable 位置处没有已声明的符号
	ErrNotRenamable = errors.New("no declared symbol at position")
	// ErrInvalidName 新名称不是合法标识符
	ErrInvalidName = errors.New("invalid name")
)

// Definition 返回位置处名称的全部声明，找不到时为空列表
func Definition(_ context.Context, rc *lsp.RequestContext) ([]protocol.Location, error) {
	locs := []protocol.Location{}
	doc, pos, ok := target(rc)
	if !ok {
		return locs, nil
	}
	word, _, ok := symbolWord(doc, pos)
	if !ok {
		return locs, nil
	}
	for _, sym := range rc.Index().Definitions(word) {
		locs = append(locs, sym.Location())
	}
	return locs, nil
}

// References 返回名称在全部已打开文档中的出现位置
func References(_ context.Context, rc *lsp.RequestContext) ([]protocol.Location, error) {
	locs := []protocol.Location{}
	doc, pos, ok := target(rc)
	if !ok {
		return locs, nil
	}
	word, _, ok := symbolWord(doc, pos)
	if !ok {
		return locs, nil
	}
	for _, occ := range occurrences(rc.Workspace(), word) {
		if occ.declaration && !rc.IncludeDeclaration() {
			continue
		}
		locs = append(locs, protocol.Location{URI: protocol.DocumentURI(occ.uri), Range: occ.rng})
	}
	return locs, nil
}

// PrepareRename 返回可重命名的名称范围；不可重命名时返回 nil
func PrepareRename(_ context.Context, rc *lsp.RequestContext) (*protocol.Range, error) {
	doc, pos, ok := target(rc)
	if !ok {
		return nil, nil
	}
	if sym, ok := doc.SymbolAt(pos); ok {
		rng := sym.NameRange
		return &rng, nil
	}
	word, rng, ok := symbolWord(doc, pos)
	if !ok || len(rc.Index().Definitions(word)) == 0 {
		return nil, nil
	}
	return &rng, nil
}

// Rename 在全部已打开文档中重命名已声明的符号
func Rename(ctx context.Context, rc *lsp.RequestContext) (*protocol.WorkspaceEdit, error) {
	newName := rc.NewName()
	if !schema.IsValidName(newName) || schema.IsKeyword(newName) || schema.IsBuiltinType(newName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, newName)
	}

	rng, err := PrepareRename(ctx, rc)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, ErrNotRenamable
	}
	word, _, _ := rc.Document().WordAt(rng.Start)

	changes := make(map[protocol.DocumentURI][]protocol.TextEdit)
	for _, occ := range occurrences(rc.Workspace(), word) {
		uri := protocol.DocumentURI(occ.uri)
		changes[uri] = append(changes[uri], protocol.TextEdit{Range: occ.rng, NewText: newName})
	}
	return &protocol.WorkspaceEdit{Changes: changes}, nil
}
