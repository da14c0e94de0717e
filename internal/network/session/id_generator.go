package session

import (
	uatomic "go.uber.org/atomic"
)

// IDGenerator 为会话分配进程内唯一的 ID。
type IDGenerator interface {
	Next() uint64
}

// Uint64IDGenerator 使用自增计数器实现 IDGenerator。
// 并发安全。
type Uint64IDGenerator struct {
	counter uatomic.Uint64
}

// Next 返回下一个会话 ID，从 1 开始。
func (g *Uint64IDGenerator) Next() uint64 {
	return g.counter.Add(1)
}
