package server

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/guess-hall-go/internal/credential"
	"github.com/lk2023060901/guess-hall-go/internal/hall"
	"github.com/lk2023060901/guess-hall-go/internal/network/acceptor"
	"github.com/lk2023060901/guess-hall-go/internal/network/framer"
	"github.com/lk2023060901/guess-hall-go/internal/network/session"
	"github.com/lk2023060901/guess-hall-go/internal/protocol"
)

// ServerSuite 通过回环 TCP 对服务端做端到端验证，
// 客户端侧直接驱动线协议，不经过 internal/client。
type ServerSuite struct {
	suite.Suite

	cfg    Config
	srv    *Server
	acc    *acceptor.Acceptor
	cancel context.CancelFunc
}

func (s *ServerSuite) SetupTest() {
	credPath := filepath.Join(s.T().TempDir(), "credentials.txt")
	s.Require().NoError(os.WriteFile(credPath, []byte("alice:secret1\nbob:secret2\ncarol:secret3\n"), 0o600))

	creds, err := credential.Load(credPath)
	s.Require().NoError(err)

	s.cfg = DefaultConfig()
	s.cfg.MetricsAddr = ""
	s.cfg.HeartbeatTimeout = 300 * time.Millisecond
	s.cfg.AttachTimeout = 2 * time.Second
	s.srv = New(s.cfg, creds)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	s.acc, err = acceptor.New(ln, framer.NewLineFramer(0), nil)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.acc.Serve(ctx, s.srv)
}

func (s *ServerSuite) TearDownTest() {
	s.cancel()
	s.acc.Close()
	s.srv.Close()
}

// testClient 是直接说协议的测试客户端。
type testClient struct {
	s      *ServerSuite
	msg    session.Session
	hbStop chan struct{}
	hbDone chan struct{}
}

func (s *ServerSuite) dial(header string) session.Session {
	conn, err := net.Dial("tcp", s.acc.Addr().String())
	s.Require().NoError(err)
	sess := session.NewLineSession(context.Background(), 0, conn, framer.NewLineFramer(0))
	s.T().Cleanup(func() { sess.Close() })

	s.Require().NoError(sess.Send(header))
	reply, err := sess.Recv()
	s.Require().NoError(err)
	s.Require().Equal(protocol.HeaderReceived, reply)
	return sess
}

func (s *ServerSuite) newClient() *testClient {
	return &testClient{
		s:   s,
		msg: s.dial(protocol.HeaderLogin),
	}
}

// loginAttempt 执行一轮认证交互，返回服务端的认证结果行。
func (c *testClient) loginAttempt(username, password string) string {
	r := c.s.Require()

	prompt, err := c.msg.Recv()
	r.NoError(err)
	r.Equal(protocol.PromptUsername, prompt)
	r.NoError(c.msg.Send(protocol.UsernamePrefix + username))

	prompt, err = c.msg.Recv()
	r.NoError(err)
	r.Equal(protocol.PromptPassword, prompt)
	r.NoError(c.msg.Send(protocol.PasswordPrefix + password))

	echo, err := c.msg.Recv()
	r.NoError(err)
	r.Equal(protocol.BuildLoginEcho(username, password), echo)
	r.NoError(c.msg.Send(protocol.Ack))

	result, err := c.msg.Recv()
	r.NoError(err)
	r.NoError(c.msg.Send(protocol.Ack))
	return result
}

// startHeartbeat 建立心跳通道并按固定间隔 ping。
func (c *testClient) startHeartbeat(account string) {
	hb := c.s.dial(protocol.BuildHeartbeatHeader(account))
	c.hbStop = make(chan struct{})
	c.hbDone = make(chan struct{})

	go func() {
		defer close(c.hbDone)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			if err := hb.Send(protocol.HeartbeatPing); err != nil {
				return
			}
			if _, err := hb.Recv(); err != nil {
				return
			}
			select {
			case <-c.hbStop:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (c *testClient) stopHeartbeat() {
	if c.hbStop != nil {
		close(c.hbStop)
		<-c.hbDone
		c.hbStop = nil
	}
}

// enterHall 完成登录并确认大厅就绪信号。
func (c *testClient) enterHall(username, password string) {
	r := c.s.Require()
	r.Equal(protocol.StatusAuthSuccess, c.loginAttempt(username, password))

	c.startHeartbeat(username)

	ready, err := c.msg.Recv()
	r.NoError(err)
	r.Equal(protocol.StatusHallReady, ready)
}

// command 发送一条大厅命令并返回首条响应。
func (c *testClient) command(cmd string) string {
	r := c.s.Require()
	r.NoError(c.msg.Send(protocol.BuildHallCommand(cmd)))
	reply, err := c.msg.Recv()
	r.NoError(err)
	return reply
}

func (c *testClient) recv() string {
	line, err := c.msg.Recv()
	c.s.Require().NoError(err)
	return line
}

func (s *ServerSuite) TestLoginRetryAfterFailure() {
	c := s.newClient()
	defer c.stopHeartbeat()

	s.Equal(protocol.StatusAuthFailed, c.loginAttempt("alice", "wrong"))
	s.Equal(protocol.StatusAuthFailed, c.loginAttempt("nobody", "secret1"))
	c.enterHall("alice", "secret1")

	s.Equal(protocol.StatusBye, c.command(protocol.CmdExit))
}

func (s *ServerSuite) TestDuplicateLoginRejected() {
	first := s.newClient()
	defer first.stopHeartbeat()
	first.enterHall("alice", "secret1")

	second := s.newClient()
	defer second.stopHeartbeat()
	s.Equal(protocol.StatusAuthFailed, second.loginAttempt("alice", "secret1"))

	// 换一个账号可以继续登录。
	second.enterHall("bob", "secret2")
}

func (s *ServerSuite) TestUnrecognizedHandshake() {
	conn, err := net.Dial("tcp", s.acc.Addr().String())
	s.Require().NoError(err)
	sess := session.NewLineSession(context.Background(), 0, conn, framer.NewLineFramer(0))
	defer sess.Close()

	s.Require().NoError(sess.Send("Header:unknown"))
	reply, err := sess.Recv()
	s.NoError(err)
	s.Equal(protocol.StatusUnrecognized, reply)
}

func (s *ServerSuite) TestHallCommands() {
	c := s.newClient()
	defer c.stopHeartbeat()
	c.enterHall("alice", "secret1")

	reply := c.command(protocol.CmdList)
	occ, err := protocol.ParseRoomsStatus(reply)
	s.NoError(err)
	s.Len(occ, s.cfg.RoomCount)
	for _, o := range occ {
		s.Zero(o)
	}

	s.Equal(protocol.StatusUnrecognized, c.command("/fly"))
	s.Equal(protocol.StatusUnrecognized, c.command("/enter 99"))
	s.Equal(protocol.StatusUnrecognized, c.command("/enter x"))

	s.Equal(protocol.StatusWait, c.command("/enter 0"))
}

func (s *ServerSuite) TestEndToEndTieScenario() {
	a := s.newClient()
	defer a.stopHeartbeat()
	a.enterHall("alice", "secret1")

	b := s.newClient()
	defer b.stopHeartbeat()
	b.enterHall("bob", "secret2")

	// 双方各自确认空大厅。
	for _, c := range []*testClient{a, b} {
		occ, err := protocol.ParseRoomsStatus(c.command(protocol.CmdList))
		s.NoError(err)
		for _, o := range occ {
			s.Zero(o)
		}
	}

	// 先进者等待，补位者直接触发开局。
	s.Equal(protocol.StatusWait, a.command("/enter 0"))
	s.Equal(protocol.StatusGameStarted, b.command("/enter 0"))
	s.Equal(protocol.StatusGameStarted, a.recv())

	s.Require().NoError(a.msg.Send("true"))
	s.Require().NoError(b.msg.Send("true"))

	// 同猜必平，与答案无关。
	s.Equal(protocol.StatusTie, a.recv())
	s.Equal(protocol.StatusTie, b.recv())

	// 对局结束后房间已清空，双方均可正常退出。
	occ, err := protocol.ParseRoomsStatus(a.command(protocol.CmdList))
	s.NoError(err)
	s.Zero(occ[0])

	s.Equal(protocol.StatusBye, a.command(protocol.CmdExit))
	s.Equal(protocol.StatusBye, b.command(protocol.CmdExit))
}

func (s *ServerSuite) TestRoomFullDuringGame() {
	a := s.newClient()
	defer a.stopHeartbeat()
	a.enterHall("alice", "secret1")

	b := s.newClient()
	defer b.stopHeartbeat()
	b.enterHall("bob", "secret2")

	third := s.newClient()
	defer third.stopHeartbeat()
	third.enterHall("carol", "secret3")

	s.Equal(protocol.StatusWait, a.command("/enter 0"))
	s.Equal(protocol.StatusGameStarted, b.command("/enter 0"))
	s.Equal(protocol.StatusGameStarted, a.recv())

	// 对局进行中的房间拒绝加入。
	s.Equal(protocol.StatusRoomFull, third.command("/enter 0"))

	s.Require().NoError(a.msg.Send("true"))
	s.Require().NoError(b.msg.Send("true"))
	a.recv()
	b.recv()
}

func (s *ServerSuite) TestHeartbeatEvictionForfeitsGame() {
	a := s.newClient()
	a.enterHall("alice", "secret1")

	b := s.newClient()
	defer b.stopHeartbeat()
	b.enterHall("bob", "secret2")

	s.Equal(protocol.StatusWait, a.command("/enter 0"))
	s.Equal(protocol.StatusGameStarted, b.command("/enter 0"))
	s.Equal(protocol.StatusGameStarted, a.recv())

	// B 先提交猜测，随后 A 的心跳停止。
	s.Require().NoError(b.msg.Send("true"))
	a.stopHeartbeat()

	// 心跳超时后 A 被清退，B 收到弃权胜。
	s.Equal(protocol.StatusForfeitWin, b.recv())

	// 房间已清空，B 可再次进入。
	s.Equal(protocol.StatusWait, b.command("/enter 0"))
}

func (s *ServerSuite) TestGamePoolSizing() {
	// 每场对局占用 RoomCapacity 个阻塞读取任务，配置过小的协程池
	// 会在全部房间同时开局时停摆，创建时按下限扩大。
	cfg := DefaultConfig()
	cfg.RoomCount = 10
	cfg.GamePoolSize = 4
	small := New(cfg, s.srv.creds)
	defer small.Close()
	s.GreaterOrEqual(small.games.Cap(), hall.RoomCapacity*cfg.RoomCount)

	// 大于下限的配置原样生效。
	cfg.GamePoolSize = 64
	large := New(cfg, s.srv.creds)
	defer large.Close()
	s.Equal(64, large.games.Cap())
}

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}
