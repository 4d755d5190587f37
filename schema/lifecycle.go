package schema

import "fmt"

// State 文档生命周期状态
type State int

const (
	// StateUnopened 调度器对该 URI 一无所知
	StateUnopened State = iota
	// StateOpen 文档已打开，接受有序的更新
	StateOpen
	// StateClosed 关闭事件的迁移结果。调度器随即丢弃该文档，视图中报告为 Unopened
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event 生命周期事件
type Event int

const (
	EventOpen Event = iota + 1
	EventChange
	EventClose
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventOpen:
		return "open"
	case EventChange:
		return "change"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

// Transition 计算生命周期状态机的下一个状态。
//
//	Unopened/Closed --open--> Open
//	Open --change--> Open
//	Open --close--> Closed
//
// 其余组合都是已定义的错误：open 已打开的文档返回 ErrAlreadyOpen，
// 对未打开的文档 change/close 返回 ErrNotOpen。
func Transition(from State, ev Event) (State, error) {
	switch ev {
	case EventOpen:
		if from == StateOpen {
			return from, ErrAlreadyOpen
		}
		return StateOpen, nil
	case EventChange:
		if from != StateOpen {
			return from, fmt.Errorf("%w: cannot apply change in state %s", ErrNotOpen, from)
		}
		return StateOpen, nil
	case EventClose:
		if from != StateOpen {
			return from, fmt.Errorf("%w: cannot close in state %s", ErrNotOpen, from)
		}
		return StateClosed, nil
	default:
		return from, fmt.Errorf("unknown lifecycle event %d", ev)
	}
}
