package network

import "errors"

// Stage 表示网络收发链路中的处理阶段。
//
// 主要用于在日志中标记错误发生的位置，便于监控与排查。
type Stage string

const (
	StageHandshake Stage = "handshake" // 连接首条 Header 消息的识别
	StageAuth      Stage = "auth"      // 登录认证阶段
	StageDispatch  Stage = "dispatch"  // 大厅命令分发
	StageHeartbeat Stage = "heartbeat" // 心跳收发
	StageGame      Stage = "game"      // 对局协调
)

var (
	// ErrFrameTooLarge 表示单条消息超出允许的最大长度。
	ErrFrameTooLarge = errors.New("network: frame too large")

	// ErrSessionClosed 表示会话已关闭，无法继续收发。
	ErrSessionClosed = errors.New("network: session closed")
)
