package hall

import (
	"context"
	"sync"
	"time"

	"github.com/lk2023060901/guess-hall-go/internal/network/session"
	"github.com/lk2023060901/guess-hall-go/pkg/util/merr"
)

// Status 表示玩家所处的状态。
//
// 状态机：
//
//	OutOfHall → InHall → WaitingInRoom → PlayingGame → InHall（循环）
//	任意状态 → OutOfHall（注销/清退）
type Status int8

const (
	StatusOutOfHall Status = iota
	StatusInHall
	StatusWaitingInRoom
	StatusPlayingGame
)

var statusNames = map[Status]string{
	StatusOutOfHall:     "out_of_hall",
	StatusInHall:        "in_hall",
	StatusWaitingInRoom: "waiting_in_room",
	StatusPlayingGame:   "playing_game",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// legalTransitions 定义合法的状态迁移。
// 任意状态都可以迁移到 OutOfHall（注销路径），不在表中单独列出。
var legalTransitions = map[Status][]Status{
	StatusOutOfHall:     {StatusInHall},
	StatusInHall:        {StatusWaitingInRoom},
	StatusWaitingInRoom: {StatusPlayingGame, StatusInHall},
	StatusPlayingGame:   {StatusInHall},
}

// Player 表示一名已认证的玩家。
//
// 并发约定：
//   - name、resume、attached 创建后只读（attached 仅经 attachOnce 关闭）；
//   - status、room、heartbeat 只在 GameHall 的互斥锁内读写，
//     会话线程、心跳线程与对局协调器均通过 GameHall 的方法访问。
type Player struct {
	name string

	status    Status
	msg       session.Session
	heartbeat session.Session
	room      *Room

	// resume 为会话挂起/恢复信号，由对局协调器或心跳清退打开。
	resume *Gate

	// attached 在心跳通道绑定后关闭，用于登录流程等待心跳就位。
	attached   chan struct{}
	attachOnce sync.Once
}

// NewPlayer 创建一名玩家，初始状态为 OutOfHall。
// 进入大厅（InHall）由 GameHall.AddPlayer 完成。
func NewPlayer(name string, msg session.Session) *Player {
	return &Player{
		name:     name,
		status:   StatusOutOfHall,
		msg:      msg,
		resume:   NewGate(),
		attached: make(chan struct{}),
	}
}

// Name 返回玩家的账号名。创建后不可变。
func (p *Player) Name() string {
	return p.name
}

// MessageSession 返回玩家的消息通道会话。
func (p *Player) MessageSession() session.Session {
	return p.msg
}

// ResumeGate 返回玩家的挂起/恢复信号。
func (p *Player) ResumeGate() *Gate {
	return p.resume
}

// AwaitHeartbeat 阻塞等待心跳通道绑定完成。
//
// 返回：
//   - nil：心跳已就位；
//   - ErrHeartbeatAttachFailed：超时；
//   - ctx.Err()：上层取消。
func (p *Player) AwaitHeartbeat(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.attached:
		return nil
	case <-timer.C:
		return merr.WrapErrHeartbeatAttachFailed(p.name)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// setStatus 执行一次状态迁移，非法迁移返回 ErrPlayerStateTransition。
// 必须在 GameHall 的锁内调用。
func (p *Player) setStatus(to Status) error {
	if to == StatusOutOfHall {
		p.status = to
		return nil
	}
	for _, allowed := range legalTransitions[p.status] {
		if allowed == to {
			p.status = to
			return nil
		}
	}
	return merr.WrapErrPlayerStateTransition(p.status.String(), to.String())
}

// bindHeartbeat 绑定心跳通道并解除 AwaitHeartbeat 的等待。
// 必须在 GameHall 的锁内调用。
func (p *Player) bindHeartbeat(hb session.Session) {
	p.heartbeat = hb
	p.attachOnce.Do(func() {
		close(p.attached)
	})
}
