package hall

import (
	"context"
	"sync"
)

// Gate 是单槽位的挂起/恢复信号。
//
// 约定：
//   - 初始为关闭状态，Wait 阻塞直到 Open 或 ctx 取消；
//   - Open 幂等：已打开的 Gate 再次 Open 为空操作；
//   - Reset 将已打开的 Gate 重新关闭，供下一轮挂起复用；
//   - 会话进房后在 Gate 上挂起，由对局协调器（或心跳清退）Open。
type Gate struct {
	mu     sync.Mutex
	ch     chan struct{}
	opened bool
}

// NewGate 创建一个关闭状态的 Gate。
func NewGate() *Gate {
	return &Gate{
		ch: make(chan struct{}),
	}
}

// Open 打开 Gate，唤醒所有 Wait 中的调用方。幂等。
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.opened {
		return
	}
	g.opened = true
	close(g.ch)
}

// Reset 将 Gate 重新置为关闭状态。
// 对未打开的 Gate 调用为空操作。
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.opened {
		return
	}
	g.opened = false
	g.ch = make(chan struct{})
}

// Wait 阻塞直到 Gate 被打开或 ctx 取消。
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
