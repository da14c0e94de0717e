package session

import (
	"context"
	"net"
	"time"
)

// Session 抽象了一条基于文本行协议的网络会话/连接。
//
// 约定：
//   - 每个 Session 对应一条底层 TCP 连接；
//   - Session ID 使用 64 位无符号整型，在进程内保持全局唯一；
//   - 本协议为严格的半双工请求/响应模式，同一时刻至多一个线程
//     读、至多一个线程写；Send 内部仍做互斥，避免消息交叉。
type Session interface {
	// ID 返回该会话在进程内的全局唯一标识。
	ID() uint64

	// Context 返回与该会话关联的上下文。
	// 会话关闭时触发 Context.Done()。
	Context() context.Context

	// RemoteAddr 返回远端地址（客户端地址）。
	RemoteAddr() net.Addr

	// LocalAddr 返回本端地址。
	LocalAddr() net.Addr

	// Send 向对端发送一条消息（一行文本）。
	Send(msg string) error

	// Recv 阻塞读取对端的下一条消息。
	//
	// 说明：
	//   - 拆包/粘包由内部的缓冲读取器负责，单条消息保证完整；
	//   - 会话关闭或连接出错时返回错误，不做重试。
	Recv() (string, error)

	// RecvTimeout 带超时地读取对端的下一条消息。
	// 超时后返回满足 net.Error 的超时错误。
	RecvTimeout(timeout time.Duration) (string, error)

	// Close 主动关闭该会话。
	//
	// 说明：
	//   - 关闭底层连接，并触发 Context 的取消；
	//   - 多次调用是幂等的；
	//   - 关闭会使阻塞中的 Recv 立即以错误返回。
	Close() error
}
