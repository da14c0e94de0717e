package server

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/guess-hall-go/internal/hall"
	network "github.com/lk2023060901/guess-hall-go/internal/network"
	"github.com/lk2023060901/guess-hall-go/internal/network/session"
	"github.com/lk2023060901/guess-hall-go/internal/protocol"
	"github.com/lk2023060901/guess-hall-go/pkg/log"
	"github.com/lk2023060901/guess-hall-go/pkg/metrics"
	"github.com/lk2023060901/guess-hall-go/pkg/util/merr"
)

// connectionSession 驱动消息通道的协议状态机：
// 登录认证 → 大厅命令循环 → 进房挂起/恢复 → 终结。
type connectionSession struct {
	srv    *Server
	sess   session.Session
	logger *log.MLogger

	player *hall.Player
}

func newConnectionSession(srv *Server, sess session.Session, logger *log.MLogger) *connectionSession {
	return &connectionSession{
		srv:    srv,
		sess:   sess,
		logger: logger,
	}
}

// run 执行会话的完整生命周期。返回时由接入层关闭连接，
// 此处只负责注销玩家。
func (cs *connectionSession) run(ctx context.Context) {
	if err := cs.authenticate(ctx); err != nil {
		cs.logger.Warn("session closed before hall entry",
			zap.String("stage", string(network.StageAuth)), zap.Error(err))
		cs.deregister()
		return
	}

	if err := cs.hallLoop(ctx); err != nil {
		cs.logger.Warn("hall loop terminated",
			zap.String("stage", string(network.StageDispatch)), zap.Error(err))
	}
	cs.deregister()
}

func (cs *connectionSession) deregister() {
	if cs.player != nil {
		cs.srv.hall.RemovePlayer(cs.player.Name())
	}
}

// authenticate 循环执行认证，直到凭据匹配且玩家注册成功。
//
// 一轮交互：
//
//	S→C 用户名提示      C→S username:<v>
//	S→C 口令提示        C→S password:<v>
//	S→C /login <u> <p>  C→S ack
//	S→C 1001/1002       C→S ack
//
// 认证通过后阻塞等待心跳通道绑定，心跳未在限期内就位视为致命错误。
func (cs *connectionSession) authenticate(ctx context.Context) error {
	for {
		username, err := cs.promptFor(protocol.PromptUsername, protocol.UsernamePrefix)
		if err != nil {
			return err
		}
		password, err := cs.promptFor(protocol.PromptPassword, protocol.PasswordPrefix)
		if err != nil {
			return err
		}

		if err := cs.sendAndAwaitAck(protocol.BuildLoginEcho(username, password)); err != nil {
			return err
		}

		if err := cs.register(username, password); err != nil {
			if !merr.IsRetryableErr(err) {
				return err
			}
			metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
			cs.logger.Info("authentication attempt rejected",
				zap.String("account", username), zap.Error(err))
			if err := cs.sendAndAwaitAck(protocol.StatusAuthFailed); err != nil {
				return err
			}
			continue
		}

		metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
		if err := cs.sendAndAwaitAck(protocol.StatusAuthSuccess); err != nil {
			return err
		}

		// 玩家必须先具备活性检测才能进入大厅。
		if err := cs.player.AwaitHeartbeat(ctx, cs.srv.cfg.AttachTimeout); err != nil {
			return err
		}

		cs.logger = cs.logger.With(zap.String("account", username))
		cs.logger.Info("player authenticated")
		return nil
	}
}

// register 校验凭据并将玩家注册进大厅。
// 凭据不匹配与重复登录均为可重试错误，由调用方驱动下一轮认证。
func (cs *connectionSession) register(username, password string) error {
	if !cs.srv.creds.Check(username, password) {
		return merr.WrapErrAuthenticationFailed(username)
	}

	player := hall.NewPlayer(username, cs.sess)
	if err := cs.srv.hall.AddPlayer(player); err != nil {
		return err
	}
	cs.player = player
	return nil
}

// promptFor 发送提示并读取一条带指定前缀的回复。
func (cs *connectionSession) promptFor(prompt, prefix string) (string, error) {
	if err := cs.sess.Send(prompt); err != nil {
		return "", err
	}
	line, err := cs.sess.Recv()
	if err != nil {
		return "", err
	}
	val, ok := protocol.ParsePrefixed(line, prefix)
	if !ok {
		return "", merr.WrapErrCommandUnrecognized(line)
	}
	return val, nil
}

// sendAndAwaitAck 发送一条消息并读取客户端的确认。
// 确认内容不做校验，协议只要求一次读写配对。
func (cs *connectionSession) sendAndAwaitAck(msg string) error {
	if err := cs.sess.Send(msg); err != nil {
		return err
	}
	_, err := cs.sess.Recv()
	return err
}

// hallLoop 接收并处理大厅命令，直至 /exit 或连接中断。
//
// 失败语义：
//   - 协议层错误（未知命令、房间越界、房间已满）回复状态码后继续；
//   - 传输层错误直接终止会话，不做重试。
func (cs *connectionSession) hallLoop(ctx context.Context) error {
	if err := cs.sess.Send(protocol.StatusHallReady); err != nil {
		return err
	}

	for {
		line, err := cs.sess.Recv()
		if err != nil {
			return merr.WrapErrConnectionLost(cs.player.Name(), err)
		}

		cmd, err := protocol.ParseHallCommand(line)
		if err != nil {
			if sendErr := cs.sess.Send(protocol.StatusUnrecognized); sendErr != nil {
				return sendErr
			}
			continue
		}

		switch cmd.Name {
		case protocol.CmdList:
			if err := cs.sess.Send(protocol.BuildRoomsStatus(cs.srv.hall.ListRoomsStatus())); err != nil {
				return err
			}

		case protocol.CmdEnter:
			if err := cs.enterRoom(ctx, cmd.Arg); err != nil {
				return err
			}

		case protocol.CmdExit:
			cs.logger.Info("player quit normally")
			_ = cs.sess.Send(protocol.StatusBye)
			return nil
		}
	}
}

// enterRoom 处理一次进房请求。
//
// 行为：
//   - 进房失败回复对应状态码（3013/4002），会话继续；
//   - 进房后房间未满：等待响应在大厅锁内写出，随后在恢复 Gate 上
//     挂起，待对局结束（或心跳清退）后被唤醒。补位方的进房与开局
//     广播都需先取得同一把锁，等待响应因此先于开局消息上线；
//   - 本次进房使房间满员：在当前 goroutine 内运行对局协调器，
//     对局开始消息由协调器广播。
func (cs *connectionSession) enterRoom(ctx context.Context, index int) error {
	room, filled, err := cs.srv.hall.EnterRoom(cs.player.Name(), index, func() error {
		return cs.sess.Send(protocol.StatusWait)
	})
	if err != nil {
		// 等待响应写出失败说明连接已断，终止会话。
		if errors.Is(err, merr.ErrConnectionLost) {
			return err
		}
		cs.logger.Info("room entry rejected", zap.Int("room", index), zap.Error(err))
		return cs.sess.Send(protocol.StatusFor(err))
	}

	if filled {
		cs.srv.coord.Run(ctx, room)
		return nil
	}

	if err := cs.player.ResumeGate().Wait(ctx); err != nil {
		return err
	}

	// 唤醒可能来自对局结束，也可能来自心跳清退。
	if _, online := cs.srv.hall.FindPlayerByName(cs.player.Name()); !online {
		return merr.WrapErrConnectionLost(cs.player.Name(), nil, "evicted while waiting in room")
	}
	return nil
}
