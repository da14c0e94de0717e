// Package protocol 定义大厅/对局服务的文本线协议。
//
// 协议为严格的半双工请求/响应模式：一条消息占一行，客户端发送后
// 阻塞等待服务端响应。消息分为带状态码的响应（如 "3011 Wait"）和
// 带前缀的请求（如 "hall_command:/list"）。状态码在一个协议版本内
// 保持稳定，客户端按码前缀匹配。
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/lk2023060901/guess-hall-go/pkg/util/merr"
)

// 连接首条消息（Header）与应答。
const (
	HeaderLogin           = "Header:login"
	HeaderHeartbeatPrefix = "Header:heartbeat:"
	HeaderHeartbeatSuffix = ":client"
	HeaderReceived        = "Received"
)

// 登录阶段消息。
const (
	PromptUsername = "Please input your user name:"
	PromptPassword = "Please input your password:"
	UsernamePrefix = "username:"
	PasswordPrefix = "password:"
	LoginPrefix    = "/login "
	Ack            = "ack"
)

// 大厅命令。
const (
	HallCommandPrefix = "hall_command:"
	CmdList           = "/list"
	CmdEnter          = "/enter"
	CmdExit           = "/exit"
)

// 心跳消息。
const (
	HeartbeatPing = "heartbeat:ping"
	HeartbeatPong = "heartbeat:pong"
)

// 状态码消息。数字段沿用既有的协议版本：
// 1xxx 认证，2xxx 大厅就绪，3xxx 房间与对局，4xxx 终结与错误。
const (
	StatusAuthSuccess  = "1001 Authentication successful"
	StatusAuthFailed   = "1002 Authentication failed"
	StatusHallReady    = "2001 In the hall"
	StatusRoomsPrefix  = "3001"
	StatusWait         = "3011 Wait"
	StatusGameStarted  = "3012 Game started. Please guess true or false"
	StatusRoomFull     = "3013 The room is full"
	StatusWin          = "3021 You are the winner"
	StatusLose         = "3022 You lost this game"
	StatusTie          = "3023 The result is a tie"
	StatusForfeitWin   = "3024 You win. Your opponent left the game"
	StatusBye          = "4001 Bye bye"
	StatusUnrecognized = "4002 Unrecognized message"
)

// ParseHeartbeatHeader 解析心跳通道的 Header 消息，返回其中的账号名。
// 格式：Header:heartbeat:<account>:client
func ParseHeartbeatHeader(line string) (string, bool) {
	if !strings.HasPrefix(line, HeaderHeartbeatPrefix) || !strings.HasSuffix(line, HeaderHeartbeatSuffix) {
		return "", false
	}
	account := strings.TrimSuffix(strings.TrimPrefix(line, HeaderHeartbeatPrefix), HeaderHeartbeatSuffix)
	if account == "" {
		return "", false
	}
	return account, true
}

// BuildHeartbeatHeader 构造心跳通道的 Header 消息。
func BuildHeartbeatHeader(account string) string {
	return HeaderHeartbeatPrefix + account + HeaderHeartbeatSuffix
}

// ParsePrefixed 剥掉给定前缀并返回剩余内容。
// 前缀不匹配时返回 false。
func ParsePrefixed(line, prefix string) (string, bool) {
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	return strings.TrimPrefix(line, prefix), true
}

// BuildLoginEcho 构造登录回显消息：/login <user> <pass>
func BuildLoginEcho(username, password string) string {
	return fmt.Sprintf("%s%s %s", LoginPrefix, username, password)
}

// HallCommand 为一条已解析的大厅命令。
type HallCommand struct {
	Name string // CmdList、CmdEnter 或 CmdExit
	Arg  int    // 仅 CmdEnter 使用：目标房间序号
}

// ParseHallCommand 解析 hall_command:<cmd> 消息。
//
// 边界情况：
//   - 未知命令、缺失或非数字的房间序号均返回 ErrCommandUnrecognized；
//   - 命令与参数之间允许多个空格。
func ParseHallCommand(line string) (HallCommand, error) {
	body, ok := ParsePrefixed(line, HallCommandPrefix)
	if !ok {
		return HallCommand{}, merr.WrapErrCommandUnrecognized(line)
	}

	fields := strings.Fields(body)
	if len(fields) == 0 {
		return HallCommand{}, merr.WrapErrCommandUnrecognized(line)
	}

	switch fields[0] {
	case CmdList:
		return HallCommand{Name: CmdList}, nil
	case CmdExit:
		return HallCommand{Name: CmdExit}, nil
	case CmdEnter:
		if len(fields) != 2 {
			return HallCommand{}, merr.WrapErrCommandUnrecognized(line)
		}
		idx, err := strconv.Atoi(fields[1])
		if err != nil {
			return HallCommand{}, merr.WrapErrCommandUnrecognized(line)
		}
		return HallCommand{Name: CmdEnter, Arg: idx}, nil
	default:
		return HallCommand{}, merr.WrapErrCommandUnrecognized(line)
	}
}

// BuildHallCommand 构造 hall_command:<cmd> 消息。
func BuildHallCommand(cmd string) string {
	return HallCommandPrefix + cmd
}

// BuildRoomsStatus 构造房间列表响应：3001 <roomCount> <occ0> <occ1> ...
func BuildRoomsStatus(occupancies []int) string {
	parts := append(
		[]string{StatusRoomsPrefix, strconv.Itoa(len(occupancies))},
		lo.Map(occupancies, func(occ int, _ int) string { return strconv.Itoa(occ) })...,
	)
	return strings.Join(parts, " ")
}

// ParseRoomsStatus 解析房间列表响应，返回各房间占用人数。
func ParseRoomsStatus(line string) ([]int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != StatusRoomsPrefix {
		return nil, merr.WrapErrCommandUnrecognized(line)
	}
	count, err := strconv.Atoi(fields[1])
	if err != nil || count != len(fields)-2 {
		return nil, merr.WrapErrCommandUnrecognized(line)
	}
	occupancies := make([]int, 0, count)
	for _, f := range fields[2:] {
		occ, err := strconv.Atoi(f)
		if err != nil {
			return nil, merr.WrapErrCommandUnrecognized(line)
		}
		occupancies = append(occupancies, occ)
	}
	return occupancies, nil
}

// ParseGuess 解析对局中的猜测消息，大小写不敏感。
func ParseGuess(line string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, merr.WrapErrGuessMalformed(line)
	}
}

// StatusCode 返回一条响应消息的状态码前缀（如 "3011"）。
// 消息没有数字前缀时返回空字符串。
func StatusCode(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return ""
	}
	return fields[0]
}

// StatusFor 将一个可恢复的业务错误映射为发送给客户端的状态行。
//
// 约定：
//   - 房间已满 -> 3013；
//   - 认证失败/重复登录 -> 1002；
//   - 房间序号越界、未知命令、非法猜测 -> 4002；
//   - 其余错误不属于协议层，统一按 4002 报告。
func StatusFor(err error) string {
	switch {
	case errors.Is(err, merr.ErrRoomFull):
		return StatusRoomFull
	case errors.Is(err, merr.ErrAuthenticationFailed), errors.Is(err, merr.ErrPlayerDuplicated):
		return StatusAuthFailed
	default:
		return StatusUnrecognized
	}
}
