// Package server 组装对局服务的接入层与业务处理：
// 握手分流、登录认证、大厅命令循环、心跳监测，以及指标/调试 HTTP 端点。
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lk2023060901/guess-hall-go/internal/credential"
	"github.com/lk2023060901/guess-hall-go/internal/game"
	"github.com/lk2023060901/guess-hall-go/internal/hall"
	network "github.com/lk2023060901/guess-hall-go/internal/network"
	"github.com/lk2023060901/guess-hall-go/internal/network/session"
	"github.com/lk2023060901/guess-hall-go/internal/protocol"
	"github.com/lk2023060901/guess-hall-go/pkg/log"
	"github.com/lk2023060901/guess-hall-go/pkg/metrics"
	"github.com/lk2023060901/guess-hall-go/pkg/util/conc"
)

// handshakeTimeout 为等待连接首条 Header 消息的超时时间。
const handshakeTimeout = 10 * time.Second

// Server 为对局服务的连接处理器，实现 acceptor.Handler。
type Server struct {
	cfg   Config
	creds *credential.Store
	hall  *hall.GameHall
	games *conc.Pool[bool]
	coord *game.Coordinator
}

// New 创建服务端处理器。
//
// 约定：每场对局最多占用 RoomCapacity 个阻塞读取任务，协程池容量
// 不足 RoomCapacity×房间数 时按该下限扩大，保证全部房间同时开局
// 也不会因池耗尽而停摆。
func New(cfg Config, creds *credential.Store) *Server {
	h := hall.NewGameHall(cfg.RoomCount)
	poolSize := cfg.GamePoolSize
	if min := hall.RoomCapacity * h.RoomCount(); poolSize < min {
		poolSize = min
	}
	pool := conc.NewPool[bool](poolSize)
	return &Server{
		cfg:   cfg,
		creds: creds,
		hall:  h,
		games: pool,
		coord: game.NewCoordinator(h, pool),
	}
}

// Hall 返回服务端持有的大厅注册表。
func (s *Server) Hall() *hall.GameHall {
	return s.hall
}

// Coordinator 返回对局协调器。
func (s *Server) Coordinator() *game.Coordinator {
	return s.coord
}

// Close 释放服务端持有的资源。
func (s *Server) Close() {
	s.games.Release()
}

// Handle 处理一条新建立的连接：读取首条 Header 消息并分流。
//
// 分流规则：
//   - Header:login → 消息通道，进入登录与大厅循环；
//   - Header:heartbeat:<account>:client → 心跳通道，进入心跳监测；
//   - 其他 → 回复 4002 并关闭连接。
func (s *Server) Handle(ctx context.Context, sess session.Session) {
	logger := log.Ctx(ctx).With(
		zap.Uint64("session", sess.ID()),
		zap.String("remote", sess.RemoteAddr().String()))

	header, err := sess.RecvTimeout(handshakeTimeout)
	if err != nil {
		logger.Warn("handshake read failed",
			zap.String("stage", string(network.StageHandshake)), zap.Error(err))
		return
	}

	switch {
	case header == protocol.HeaderLogin:
		if err := sess.Send(protocol.HeaderReceived); err != nil {
			logger.Warn("handshake ack failed", zap.Error(err))
			return
		}
		metrics.ActiveSessions.WithLabelValues(metrics.ChannelMessage).Inc()
		defer metrics.ActiveSessions.WithLabelValues(metrics.ChannelMessage).Dec()
		newConnectionSession(s, sess, logger).run(ctx)

	default:
		account, ok := protocol.ParseHeartbeatHeader(header)
		if !ok {
			logger.Warn("unrecognized handshake header",
				zap.String("stage", string(network.StageHandshake)),
				zap.String("header", header))
			_ = sess.Send(protocol.StatusUnrecognized)
			return
		}
		if err := sess.Send(protocol.HeaderReceived); err != nil {
			logger.Warn("handshake ack failed", zap.Error(err))
			return
		}
		metrics.ActiveSessions.WithLabelValues(metrics.ChannelHeartbeat).Inc()
		defer metrics.ActiveSessions.WithLabelValues(metrics.ChannelHeartbeat).Dec()
		newHeartbeatMonitor(s, account, sess, logger).run(ctx)
	}
}

// ServeMetrics 启动指标与调试 HTTP 服务，阻塞直至 ctx 取消。
// cfg.MetricsAddr 为空时立即返回 nil。
func (s *Server) ServeMetrics(ctx context.Context) error {
	if s.cfg.MetricsAddr == "" {
		return nil
	}

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/hall", func(w http.ResponseWriter, _ *http.Request) {
		body, err := sonic.Marshal(s.hall.Snapshot())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	srv := &http.Server{
		Addr:    s.cfg.MetricsAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
