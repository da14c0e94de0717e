package session

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	uatomic "go.uber.org/atomic"

	network "github.com/lk2023060901/guess-hall-go/internal/network"
	"github.com/lk2023060901/guess-hall-go/internal/network/framer"
)

// LineSession 提供了 Session 接口基于 net.Conn 的实现。
//
// 设计目标：
//   - 封装最小但完整的会话能力：ID、Context、地址信息、按行收发与关闭；
//   - 读取侧使用 bufio.Reader 拼装帧，写入侧持锁串行写出，
//     保证任何情况下都不会出现两条消息的字节交叉。
type LineSession struct {
	id uint64

	ctx    context.Context
	cancel context.CancelFunc

	conn   net.Conn
	framer framer.Framer
	reader *bufio.Reader

	remoteAddr net.Addr
	localAddr  net.Addr

	// writeMu 保证同一会话上的 Send 串行执行。
	writeMu sync.Mutex

	closed    uatomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// 确保 LineSession 实现了 Session 接口。
var _ Session = (*LineSession)(nil)

// NewLineSession 创建一个基于 net.Conn 的会话实例。
//
// 参数：
//   - parent：会话所属的上层上下文（例如 Acceptor 的 Serve ctx）；若为 nil，则使用 context.Background()；
//   - id    ：会话 ID，应在调用侧保证全局唯一；
//   - conn  ：底层网络连接；
//   - f     ：用于该连接的 Framer。
func NewLineSession(parent context.Context, id uint64, conn net.Conn, f framer.Framer) *LineSession {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	return &LineSession{
		id:         id,
		ctx:        ctx,
		cancel:     cancel,
		conn:       conn,
		framer:     f,
		reader:     bufio.NewReader(conn),
		remoteAddr: conn.RemoteAddr(),
		localAddr:  conn.LocalAddr(),
	}
}

// ID 实现 Session.ID。
func (s *LineSession) ID() uint64 {
	return s.id
}

// Context 实现 Session.Context。
func (s *LineSession) Context() context.Context {
	return s.ctx
}

// RemoteAddr 实现 Session.RemoteAddr。
func (s *LineSession) RemoteAddr() net.Addr {
	return s.remoteAddr
}

// LocalAddr 实现 Session.LocalAddr。
func (s *LineSession) LocalAddr() net.Addr {
	return s.localAddr
}

// Send 实现 Session.Send。
func (s *LineSession) Send(msg string) error {
	if s.closed.Load() {
		return fmt.Errorf("session %d: %w", s.id, network.ErrSessionClosed)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.framer.WriteFrame(s.conn, msg); err != nil {
		return fmt.Errorf("session %d: %w", s.id, err)
	}
	return nil
}

// Recv 实现 Session.Recv。
func (s *LineSession) Recv() (string, error) {
	msg, err := s.framer.ReadFrame(s.reader)
	if err != nil {
		return "", fmt.Errorf("session %d: %w", s.id, err)
	}
	return msg, nil
}

// RecvTimeout 实现 Session.RecvTimeout。
func (s *LineSession) RecvTimeout(timeout time.Duration) (string, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", fmt.Errorf("session %d: set read deadline failed: %w", s.id, err)
	}
	// 读取结束后清除 deadline，避免影响后续不限时的 Recv。
	defer s.conn.SetReadDeadline(time.Time{})

	return s.Recv()
}

// Close 实现 Session.Close。
func (s *LineSession) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		// 先取消上下文，再关闭连接。
		if s.cancel != nil {
			s.cancel()
		}
		if s.conn != nil {
			s.closeErr = s.conn.Close()
		}
	})
	return s.closeErr
}
