package schema

import "errors"

var (
	// ErrNotOpen 文档未打开时进行 change/close
	ErrNotOpen = errors.New("document is not open")
	// ErrAlreadyOpen 对已打开的文档重复 open
	ErrAlreadyOpen = errors.New("document is already open")
	// ErrInvalidEdit 编辑范围非法（起点在终点之后等）
	ErrInvalidEdit = errors.New("invalid edit")
	// ErrInvalidPosition 位置超出文档范围
	ErrInvalidPosition = errors.New("invalid position")
	// ErrEmptyURI 缺少文档 URI
	ErrEmptyURI = errors.New("document uri is required")
)

// ErrStaleVersion 变更携带的版本低于文档当前版本
var ErrStaleVersion = errors.New("stale document version")
