// Package game 实现两人布尔竞猜对局的协调器。
//
// 一场对局由满员房间触发，经历固定的阶段序列：
//
//	Starting → AwaitingGuesses → Resolving → Notifying → Done
//
// 协调器在满员侧会话的 goroutine 中运行，另一侧会话挂起在自己的
// 恢复 Gate 上，对局结束后由 FinishGame 统一唤醒。
package game

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/lk2023060901/guess-hall-go/internal/hall"
	network "github.com/lk2023060901/guess-hall-go/internal/network"
	"github.com/lk2023060901/guess-hall-go/internal/protocol"
	"github.com/lk2023060901/guess-hall-go/pkg/log"
	"github.com/lk2023060901/guess-hall-go/pkg/metrics"
	"github.com/lk2023060901/guess-hall-go/pkg/util/conc"
	"github.com/lk2023060901/guess-hall-go/pkg/util/merr"
)

// Phase 表示对局所处的阶段。
type Phase int8

const (
	PhaseStarting Phase = iota
	PhaseAwaitingGuesses
	PhaseResolving
	PhaseNotifying
	PhaseDone
)

var phaseNames = map[Phase]string{
	PhaseStarting:        "starting",
	PhaseAwaitingGuesses: "awaiting_guesses",
	PhaseResolving:       "resolving",
	PhaseNotifying:       "notifying",
	PhaseDone:            "done",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Coordinator 驱动一个房间内的对局。
type Coordinator struct {
	hall *hall.GameHall
	pool *conc.Pool[bool]

	// coin 产生对局答案。测试中经 WithCoin 注入固定值。
	coin func() bool
}

// NewCoordinator 创建对局协调器。pool 供读取双方猜测的并发任务使用。
func NewCoordinator(h *hall.GameHall, pool *conc.Pool[bool]) *Coordinator {
	return &Coordinator{
		hall: h,
		pool: pool,
		coin: func() bool { return rand.IntN(2) == 0 },
	}
}

// WithCoin 替换答案生成函数，返回协调器自身。测试专用。
func (c *Coordinator) WithCoin(coin func() bool) *Coordinator {
	c.coin = coin
	return c
}

// memberState 记录一名成员在本局中的读取结果。
type memberState struct {
	player  *hall.Player
	guess   bool
	dropped bool
}

// Run 在给定的满员房间上执行一场完整对局。
//
// 行为：
//   - 向双方广播对局开始，并发读取双方猜测；
//   - 任一成员的连接中断视为弃权，存活方按弃权胜处理；
//   - 结果通知尽力而为，发送失败只记录日志；
//   - 无论对局如何结束，都清空房间并唤醒双方会话。
func (c *Coordinator) Run(ctx context.Context, room *hall.Room) {
	logger := log.Ctx(ctx).With(zap.Int("room", room.Index()))

	members, err := c.hall.BeginGame(room)
	if err != nil {
		logger.Warn("game failed to start", zap.Error(err))
		// 开局失败同样要清房并唤醒已挂起的成员，
		// 成员名单需另行快照，BeginGame 失败时不返回名单。
		c.hall.FinishGame(room, c.hall.RoomMembers(room))
		return
	}
	logger.Info("game starting",
		zap.String("phase", PhaseStarting.String()),
		zap.Int("members", len(members)))

	states := make([]*memberState, len(members))
	for i, member := range members {
		states[i] = &memberState{player: member}
		if err := member.MessageSession().Send(protocol.StatusGameStarted); err != nil {
			states[i].dropped = true
			logger.Warn("member unreachable at game start",
				zap.String("account", member.Name()), zap.Error(err))
		}
	}

	c.collectGuesses(logger, states)

	answer := c.coin()
	logger.Info("game resolving",
		zap.String("phase", PhaseResolving.String()),
		zap.Bool("answer", answer))

	outcome := c.notify(logger, states, answer)
	metrics.GamesTotal.WithLabelValues(outcome).Inc()

	c.hall.FinishGame(room, members)
	logger.Info("game finished",
		zap.String("phase", PhaseDone.String()),
		zap.String("outcome", outcome))
}

// collectGuesses 并发读取所有未掉线成员的猜测。
//
// 边界情况：
//   - 非法猜测回复 4002 并继续等待下一条；
//   - 读取出错将该成员标记为掉线。
func (c *Coordinator) collectGuesses(logger *log.MLogger, states []*memberState) {
	logger.Info("awaiting guesses", zap.String("phase", PhaseAwaitingGuesses.String()))

	futures := make([]*conc.Future[bool], len(states))
	for i, st := range states {
		if st.dropped {
			continue
		}
		player := st.player
		futures[i] = c.pool.Submit(func() (bool, error) {
			return readGuess(player)
		})
	}

	for i, future := range futures {
		if future == nil {
			continue
		}
		guess, err := future.Await()
		if err != nil {
			states[i].dropped = true
			logger.Warn("member dropped during game",
				zap.String("stage", string(network.StageGame)),
				zap.String("account", states[i].player.Name()),
				zap.Error(err))
			continue
		}
		states[i].guess = guess
	}
}

// readGuess 阻塞读取一名玩家的猜测，直到收到合法值或连接中断。
func readGuess(p *hall.Player) (bool, error) {
	sess := p.MessageSession()
	for {
		line, err := sess.Recv()
		if err != nil {
			return false, merr.WrapErrConnectionLost(p.Name(), err)
		}
		guess, err := protocol.ParseGuess(line)
		if err != nil {
			if sendErr := sess.Send(protocol.StatusUnrecognized); sendErr != nil {
				return false, merr.WrapErrConnectionLost(p.Name(), sendErr)
			}
			continue
		}
		return guess, nil
	}
}

// notify 按判定结果通知各存活成员，返回本局结局类型。
//
// 判定规则：
//   - 双方同对或同错为平局；
//   - 恰一方猜中，则猜中方胜；
//   - 对方掉线时存活方按弃权胜通知。
func (c *Coordinator) notify(logger *log.MLogger, states []*memberState, answer bool) string {
	logger.Info("notifying results", zap.String("phase", PhaseNotifying.String()))

	alive := make([]*memberState, 0, len(states))
	for _, st := range states {
		if !st.dropped {
			alive = append(alive, st)
		}
	}

	switch len(alive) {
	case 0:
		return metrics.OutcomeForfeit

	case 1:
		c.send(logger, alive[0], protocol.StatusForfeitWin)
		return metrics.OutcomeForfeit

	default:
		a, b := alive[0], alive[1]
		aRight := a.guess == answer
		bRight := b.guess == answer

		if aRight == bRight {
			c.send(logger, a, protocol.StatusTie)
			c.send(logger, b, protocol.StatusTie)
			return metrics.OutcomeTie
		}
		if aRight {
			c.send(logger, a, protocol.StatusWin)
			c.send(logger, b, protocol.StatusLose)
		} else {
			c.send(logger, a, protocol.StatusLose)
			c.send(logger, b, protocol.StatusWin)
		}
		return metrics.OutcomeDecided
	}
}

func (c *Coordinator) send(logger *log.MLogger, st *memberState, msg string) {
	if err := st.player.MessageSession().Send(msg); err != nil {
		logger.Warn("result notification failed",
			zap.String("account", st.player.Name()), zap.Error(err))
	}
}
