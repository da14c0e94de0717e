package server

import (
	"context"

	"go.uber.org/zap"

	network "github.com/lk2023060901/guess-hall-go/internal/network"
	"github.com/lk2023060901/guess-hall-go/internal/network/session"
	"github.com/lk2023060901/guess-hall-go/internal/protocol"
	"github.com/lk2023060901/guess-hall-go/pkg/log"
	"github.com/lk2023060901/guess-hall-go/pkg/metrics"
)

// heartbeatMonitor 在心跳通道上监测单个玩家的活性。
//
// 约定：
//   - 客户端定期发送 ping，服务端以 pong 应答；
//   - 单次等待超时或连接出错即判定掉线，不做重试；
//   - 判定掉线后清退玩家并关闭其消息通道，对局中的对手由
//     协调器按弃权胜收尾。
type heartbeatMonitor struct {
	srv     *Server
	account string
	sess    session.Session
	logger  *log.MLogger
}

func newHeartbeatMonitor(srv *Server, account string, sess session.Session, logger *log.MLogger) *heartbeatMonitor {
	return &heartbeatMonitor{
		srv:     srv,
		account: account,
		sess:    sess,
		logger:  logger.With(zap.String("account", account)).WithRateGroup("heartbeat", 1, 60),
	}
}

// run 执行心跳循环，阻塞直至判定掉线或 ctx 取消。
func (m *heartbeatMonitor) run(ctx context.Context) {
	bound := m.srv.hall.AttachHeartbeat(m.account, m.sess)
	defer m.srv.hall.DropPendingHeartbeat(m.account, m.sess)
	m.logger.Info("heartbeat channel attached", zap.Bool("player_registered", bound))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := m.sess.RecvTimeout(m.srv.cfg.HeartbeatTimeout)
		if err != nil {
			m.evict(err)
			return
		}
		if line != protocol.HeartbeatPing {
			m.logger.RatedWarn(1, "unexpected heartbeat message", zap.String("line", line))
			continue
		}
		if err := m.sess.Send(protocol.HeartbeatPong); err != nil {
			m.evict(err)
			return
		}
		m.logger.RatedDebug(0.2, "heartbeat exchanged")
	}
}

// evict 判定玩家掉线：从大厅清退并关闭其消息通道。
// 消息通道关闭会使其阻塞中的读写立即出错，驱动会话 goroutine 收尾。
func (m *heartbeatMonitor) evict(cause error) {
	m.logger.Warn("heartbeat lost, evicting player",
		zap.String("stage", string(network.StageHeartbeat)), zap.Error(cause))
	metrics.HeartbeatFailuresTotal.Inc()

	msg, _, ok := m.srv.hall.EvictPlayer(m.account)
	if !ok {
		return
	}
	if msg != nil {
		_ = msg.Close()
	}
}
