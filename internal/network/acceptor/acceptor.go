package acceptor

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/lk2023060901/guess-hall-go/internal/network/framer"
	"github.com/lk2023060901/guess-hall-go/internal/network/session"
)

// Handler 由使用方实现，用于处理一条已建立的会话。
//
// 说明：
//   - Handle 在该连接专属的 goroutine 中被调用，可以安全地做阻塞 I/O；
//   - Handle 返回后，Acceptor 负责关闭会话。
type Handler interface {
	Handle(ctx context.Context, sess session.Session)
}

// Acceptor 抽象了服务器侧的 TCP 接入层。
//
// 职责：
//   - 在指定 listener 上循环接受连接；
//   - 为每个连接创建 LineSession 并分配唯一 ID；
//   - 每个连接使用独立的 goroutine 调用 Handler，主循环不被业务阻塞。
type Acceptor struct {
	ln     net.Listener
	framer framer.Framer
	ids    session.IDGenerator

	closeOnce sync.Once
}

// New 使用已有的 Listener 创建一个接入器。
//
// 参数：
//   - ln：已创建好的 net.Listener；
//   - f ：用于当前接入器所有连接的 Framer；
//   - ids：会话 ID 生成器，可为 nil（nil 时使用内部默认的自增生成器）。
func New(ln net.Listener, f framer.Framer, ids session.IDGenerator) (*Acceptor, error) {
	if ln == nil {
		return nil, fmt.Errorf("acceptor: listener is nil")
	}
	if f == nil {
		return nil, fmt.Errorf("acceptor: framer is nil")
	}
	if ids == nil {
		ids = &session.Uint64IDGenerator{}
	}
	return &Acceptor{
		ln:     ln,
		framer: f,
		ids:    ids,
	}, nil
}

// Serve 在给定 listener 上启动服务，阻塞直至 ctx 取消或出现致命错误。
func (a *Acceptor) Serve(ctx context.Context, h Handler) error {
	if h == nil {
		return fmt.Errorf("acceptor: handler is nil")
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := a.ln.Accept()
		if err != nil {
			// 若上层已取消，则将错误视为正常退出。
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			// 临时性错误继续接受新连接。
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}

			// 其他错误交由上层决定是否重建接入器。
			return err
		}

		wg.Add(1)
		go func(conn net.Conn) {
			defer wg.Done()
			a.handleConnection(ctx, conn, h)
		}(conn)
	}
}

// Close 关闭监听器，使 Serve 返回。
// 已建立的会话不受影响，由各自的 Handler 自行收尾。
func (a *Acceptor) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.ln != nil {
			err = a.ln.Close()
		}
	})
	return err
}

// Addr 返回监听地址。
func (a *Acceptor) Addr() net.Addr {
	return a.ln.Addr()
}

// handleConnection 处理单个连接的生命周期。
//
// 流程：
//   1. 创建带唯一 ID 的 LineSession；
//   2. 调用 Handler.Handle，期间所有协议交互由 Handler 驱动；
//   3. Handle 返回后关闭会话。
func (a *Acceptor) handleConnection(parentCtx context.Context, conn net.Conn, h Handler) {
	sess := session.NewLineSession(parentCtx, a.ids.Next(), conn, a.framer)
	defer sess.Close()

	h.Handle(sess.Context(), sess)
}
