// Package client 实现对局服务的命令行客户端。
//
// 客户端持有两条 TCP 连接：消息通道承载登录、大厅命令与对局交互，
// 心跳通道在登录成功后建立，按固定间隔与服务端交换活性消息。
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/guess-hall-go/internal/network/framer"
	"github.com/lk2023060901/guess-hall-go/internal/network/session"
	"github.com/lk2023060901/guess-hall-go/internal/protocol"
	"github.com/lk2023060901/guess-hall-go/pkg/log"
	"github.com/lk2023060901/guess-hall-go/pkg/util/retry"
)

// heartbeatInterval 为相邻两次 ping 的间隔。
const heartbeatInterval = 500 * time.Millisecond

// dialTimeout 为单次建连的超时时间。
const dialTimeout = 3 * time.Second

// ErrServerClosed 表示服务端在交互过程中断开了连接。
var ErrServerClosed = errors.New("client: server closed the connection")

// Client 为交互式客户端。
//
// 说明：
//   - in/out 为用户交互流，生产路径为 stdin/stdout，测试中注入缓冲；
//   - Run 返回 nil 表示经 /exit 正常退出，返回错误表示连接不可恢复。
type Client struct {
	addr string
	in   *bufio.Scanner
	out  io.Writer

	framer  framer.Framer
	msg     session.Session
	account string

	hbCancel context.CancelFunc
	hbDone   chan struct{}
}

// New 创建客户端。addr 为 host:port 形式的服务端地址。
func New(addr string, in io.Reader, out io.Writer) *Client {
	return &Client{
		addr:   addr,
		in:     bufio.NewScanner(in),
		out:    out,
		framer: framer.NewLineFramer(0),
	}
}

// Run 执行客户端的完整生命周期：建连、登录、大厅交互。
func (c *Client) Run(ctx context.Context) error {
	msg, err := c.dial(ctx, protocol.HeaderLogin)
	if err != nil {
		return err
	}
	c.msg = msg
	defer msg.Close()
	defer c.stopHeartbeat()

	if err := c.login(ctx); err != nil {
		return err
	}
	return c.hallLoop(ctx)
}

// dial 建立一条连接并完成 Header 握手。带指数退避重试。
func (c *Client) dial(ctx context.Context, header string) (session.Session, error) {
	var sess session.Session
	err := retry.Do(ctx, func() error {
		conn, err := net.DialTimeout("tcp", c.addr, dialTimeout)
		if err != nil {
			return err
		}
		s := session.NewLineSession(ctx, 0, conn, c.framer)
		if err := s.Send(header); err != nil {
			s.Close()
			return err
		}
		reply, err := s.Recv()
		if err != nil {
			s.Close()
			return err
		}
		if reply != protocol.HeaderReceived {
			s.Close()
			return errors.Newf("client: unexpected handshake reply %q", reply)
		}
		sess = s
		return nil
	}, retry.Attempts(3))
	if err != nil {
		return nil, errors.Wrapf(err, "client: dial %s failed", c.addr)
	}
	return sess, nil
}

// login 驱动认证交互，直至服务端确认成功。
// 成功后启动心跳通道，再等待大厅就绪信号。
func (c *Client) login(ctx context.Context) error {
	for {
		username, err := c.answerPrompt(protocol.UsernamePrefix)
		if err != nil {
			return err
		}
		if _, err := c.answerPrompt(protocol.PasswordPrefix); err != nil {
			return err
		}

		// 服务端回显 /login 行，客户端确认。
		if _, err := c.recvAndAck(); err != nil {
			return err
		}

		result, err := c.recvAndAck()
		if err != nil {
			return err
		}
		c.printf("%s\n", result)

		if strings.HasPrefix(result, protocol.StatusCode(protocol.StatusAuthSuccess)) {
			c.account = username
			if err := c.startHeartbeat(ctx); err != nil {
				return err
			}

			ready, err := c.msg.Recv()
			if err != nil {
				return errors.Wrap(ErrServerClosed, err.Error())
			}
			c.printf("%s\n", ready)
			return nil
		}
		// 认证失败，服务端会重新下发提示。
	}
}

// answerPrompt 读取服务端提示，转发给用户，并将用户输入带前缀发回。
func (c *Client) answerPrompt(prefix string) (string, error) {
	prompt, err := c.msg.Recv()
	if err != nil {
		return "", errors.Wrap(ErrServerClosed, err.Error())
	}
	c.printf("%s\n", prompt)

	input, err := c.readInput()
	if err != nil {
		return "", err
	}
	if err := c.msg.Send(prefix + input); err != nil {
		return "", errors.Wrap(ErrServerClosed, err.Error())
	}
	return input, nil
}

// recvAndAck 读取一条服务端消息并回复 ack。
func (c *Client) recvAndAck() (string, error) {
	line, err := c.msg.Recv()
	if err != nil {
		return "", errors.Wrap(ErrServerClosed, err.Error())
	}
	if err := c.msg.Send(protocol.Ack); err != nil {
		return "", errors.Wrap(ErrServerClosed, err.Error())
	}
	return line, nil
}

// startHeartbeat 建立心跳通道并启动后台 ping 循环。
// 心跳失败只记录日志并停止循环，掉线判定由服务端驱动：
// 服务端清退后消息通道随即出错，主循环自然终止。
func (c *Client) startHeartbeat(ctx context.Context) error {
	hb, err := c.dial(ctx, protocol.BuildHeartbeatHeader(c.account))
	if err != nil {
		return err
	}

	hbCtx, cancel := context.WithCancel(ctx)
	c.hbCancel = cancel
	c.hbDone = make(chan struct{})

	go func() {
		defer close(c.hbDone)
		defer hb.Close()

		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			if err := hb.Send(protocol.HeartbeatPing); err != nil {
				log.Warn("heartbeat send failed", zap.Error(err))
				return
			}
			if _, err := hb.Recv(); err != nil {
				log.Warn("heartbeat reply missing", zap.Error(err))
				return
			}
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

func (c *Client) stopHeartbeat() {
	if c.hbCancel != nil {
		c.hbCancel()
		<-c.hbDone
	}
}

// hallLoop 读取用户命令并与服务端交互，直至 /exit 或连接中断。
func (c *Client) hallLoop(ctx context.Context) error {
	for {
		c.printf("hall> ")
		input, err := c.readInput()
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if err := c.msg.Send(protocol.BuildHallCommand(input)); err != nil {
			return errors.Wrap(ErrServerClosed, err.Error())
		}

		reply, err := c.msg.Recv()
		if err != nil {
			return errors.Wrap(ErrServerClosed, err.Error())
		}

		switch protocol.StatusCode(reply) {
		case protocol.StatusRoomsPrefix:
			c.printRooms(reply)

		case protocol.StatusCode(protocol.StatusWait):
			c.printf("%s\n", reply)
			// 房间未满，阻塞等待对局开始。
			started, err := c.msg.Recv()
			if err != nil {
				return errors.Wrap(ErrServerClosed, err.Error())
			}
			c.printf("%s\n", started)
			if err := c.playGame(ctx); err != nil {
				return err
			}

		case protocol.StatusCode(protocol.StatusGameStarted):
			c.printf("%s\n", reply)
			if err := c.playGame(ctx); err != nil {
				return err
			}

		case protocol.StatusCode(protocol.StatusBye):
			c.printf("%s\n", reply)
			return nil

		default:
			c.printf("%s\n", reply)
		}
	}
}

// playGame 执行一局对局交互：提交猜测并打印结果。
// 非法输入由服务端以 4002 驳回，循环重新提交。
func (c *Client) playGame(_ context.Context) error {
	for {
		c.printf("guess (true/false)> ")
		input, err := c.readInput()
		if err != nil {
			return err
		}
		if err := c.msg.Send(strings.TrimSpace(input)); err != nil {
			return errors.Wrap(ErrServerClosed, err.Error())
		}

		result, err := c.msg.Recv()
		if err != nil {
			return errors.Wrap(ErrServerClosed, err.Error())
		}
		c.printf("%s\n", result)

		if protocol.StatusCode(result) != protocol.StatusCode(protocol.StatusUnrecognized) {
			return nil
		}
	}
}

// printRooms 将 3001 响应渲染为逐行的房间占用表。
func (c *Client) printRooms(reply string) {
	occupancies, err := protocol.ParseRoomsStatus(reply)
	if err != nil {
		c.printf("%s\n", reply)
		return
	}
	c.printf("rooms: %d\n", len(occupancies))
	for i, occ := range occupancies {
		c.printf("  room %d: %d/2\n", i, occ)
	}
}

func (c *Client) readInput() (string, error) {
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return c.in.Text(), nil
}

func (c *Client) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
