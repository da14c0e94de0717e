// Package hall 实现大厅域模型：玩家注册表、固定容量的房间，以及
// 会话挂起/恢复使用的 Gate 信号。
//
// 并发模型：GameHall 持有唯一的互斥锁，玩家与房间的全部可变状态
// 都在该锁内读写。会话 goroutine、心跳 goroutine 和对局协调器只
// 通过 GameHall 的导出方法交互。锁内原则上不做网络 I/O，唯一的
// 例外是 EnterRoom 的 onWait 回调：等待响应必须在补位方进房之前
// 写出，否则开局广播可能抢先上线。
package hall

import (
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/lk2023060901/guess-hall-go/internal/network/session"
	"github.com/lk2023060901/guess-hall-go/pkg/log"
	"github.com/lk2023060901/guess-hall-go/pkg/metrics"
	"github.com/lk2023060901/guess-hall-go/pkg/util/merr"
)

// DefaultRoomCount 为未配置时的房间数量。
const DefaultRoomCount = 10

// GameHall 是玩家与房间的注册表。
type GameHall struct {
	mu      sync.Mutex
	rooms   []*Room
	players map[string]*Player

	// pendingHeartbeat 暂存先于登录完成到达的心跳会话，
	// 玩家注册时补绑，解除两条连接到达次序的约束。
	pendingHeartbeat map[string]session.Session
}

// NewGameHall 创建含 roomCount 个空房间的大厅。
// roomCount 非正时使用 DefaultRoomCount。
func NewGameHall(roomCount int) *GameHall {
	if roomCount <= 0 {
		roomCount = DefaultRoomCount
	}
	rooms := make([]*Room, roomCount)
	for i := range rooms {
		rooms[i] = newRoom(i)
	}
	return &GameHall{
		rooms:            rooms,
		players:          make(map[string]*Player),
		pendingHeartbeat: make(map[string]session.Session),
	}
}

// RoomCount 返回房间数量。
func (h *GameHall) RoomCount() int {
	return len(h.rooms)
}

// AddPlayer 将玩家注册进大厅，状态迁移为 InHall。
//
// 边界情况：
//   - 同名玩家已在线返回 ErrPlayerDuplicated；
//   - 若该账号的心跳会话先行到达（暂存于 pendingHeartbeat），注册时补绑。
func (h *GameHall) AddPlayer(p *Player) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.players[p.name]; ok {
		return merr.WrapErrPlayerDuplicated(p.name)
	}
	if err := p.setStatus(StatusInHall); err != nil {
		return err
	}

	h.players[p.name] = p
	if hb, ok := h.pendingHeartbeat[p.name]; ok {
		delete(h.pendingHeartbeat, p.name)
		p.bindHeartbeat(hb)
	}

	metrics.OnlinePlayers.Inc()
	log.Info("player joined hall", zap.String("account", p.name))
	return nil
}

// RemovePlayer 将玩家从大厅注销。幂等：未注册的账号为空操作。
// 玩家若在房间内，同时将其移出房间。
func (h *GameHall) RemovePlayer(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.players[name]
	if !ok {
		return
	}
	h.removePlayerLocked(p)
	log.Info("player left hall", zap.String("account", name))
}

// EvictPlayer 因心跳失效清退玩家。
//
// 行为：
//   - 注销玩家并打开其恢复 Gate，使挂起中的会话 goroutine 退出；
//   - 返回该玩家的两条会话供调用方关闭，关闭动作在锁外进行。
func (h *GameHall) EvictPlayer(name string) (msg, heartbeat session.Session, ok bool) {
	h.mu.Lock()
	p, registered := h.players[name]
	if !registered {
		h.mu.Unlock()
		return nil, nil, false
	}
	msg = p.msg
	heartbeat = p.heartbeat
	h.removePlayerLocked(p)
	h.mu.Unlock()

	p.resume.Open()
	log.Warn("player evicted for heartbeat failure", zap.String("account", name))
	return msg, heartbeat, true
}

// removePlayerLocked 必须在锁内调用。
func (h *GameHall) removePlayerLocked(p *Player) {
	if p.room != nil {
		p.room.removeMember(p)
	}
	_ = p.setStatus(StatusOutOfHall)
	delete(h.players, p.name)
	metrics.OnlinePlayers.Dec()
}

// EnterRoom 将玩家加入指定序号的房间。
//
// 返回：
//   - room：加入的房间；
//   - filled：本次加入后房间是否恰好满员（满员侧负责发起对局）。
//
// onWait 在本次加入后房间仍未满时于锁内调用。补位方的 EnterRoom 与
// 随后的开局广播都要先取得同一把锁，因此 onWait 中写出的等待响应
// 一定先于对局开始消息到达线路。onWait 失败时回滚本次加入。
//
// 边界情况：
//   - 序号越界返回 ErrRoomIndexInvalid；
//   - 玩家未注册返回 ErrPlayerNotRegistered；
//   - 房间满员或对局中返回 ErrRoomFull。
func (h *GameHall) EnterRoom(name string, index int, onWait func() error) (room *Room, filled bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if index < 0 || index >= len(h.rooms) {
		return nil, false, merr.WrapErrRoomIndexInvalid(index, len(h.rooms))
	}
	p, ok := h.players[name]
	if !ok {
		return nil, false, merr.WrapErrPlayerNotRegistered(name)
	}
	r := h.rooms[index]
	if r.isFull() || r.inGame {
		return nil, false, merr.WrapErrRoomFull(index)
	}

	if err := p.setStatus(StatusWaitingInRoom); err != nil {
		return nil, false, err
	}

	// 进房即进入挂起周期，Gate 须在锁内复位，
	// 保证随后的 Wait 不会撞上上一轮遗留的打开状态。
	p.resume.Reset()
	r.addMember(p)

	if !r.isFull() && onWait != nil {
		if err := onWait(); err != nil {
			r.removeMember(p)
			_ = p.setStatus(StatusInHall)
			return nil, false, merr.WrapErrConnectionLost(name, err)
		}
	}

	log.Info("player entered room",
		zap.String("account", name),
		zap.Int("room", index),
		zap.Int("occupancy", r.Occupancy()))
	return r, r.isFull(), nil
}

// LeaveRoom 将玩家移出所在房间并恢复为 InHall。
// 玩家不在房间内时为空操作。对局中的房间不允许离开。
func (h *GameHall) LeaveRoom(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.players[name]
	if !ok || p.room == nil {
		return nil
	}
	if p.room.inGame {
		return merr.WrapErrRoomNotCleared(p.room.index)
	}
	p.room.removeMember(p)
	return p.setStatus(StatusInHall)
}

// ListRoomsStatus 返回按房间序号排列的占用人数。
func (h *GameHall) ListRoomsStatus() []int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return lo.Map(h.rooms, func(r *Room, _ int) int {
		return r.Occupancy()
	})
}

// AttachHeartbeat 绑定一条心跳会话到对应账号。
//
// 行为：
//   - 账号已注册：直接绑定并唤醒 AwaitHeartbeat，返回 true；
//   - 账号未注册：暂存到 pendingHeartbeat 等待注册时补绑，返回 false。
func (h *GameHall) AttachHeartbeat(account string, sess session.Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p, ok := h.players[account]; ok {
		p.bindHeartbeat(sess)
		return true
	}
	h.pendingHeartbeat[account] = sess
	return false
}

// DropPendingHeartbeat 丢弃未被补绑的暂存心跳会话。
// 心跳 goroutine 退出时调用，避免残留。
func (h *GameHall) DropPendingHeartbeat(account string, sess session.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if pending, ok := h.pendingHeartbeat[account]; ok && pending == sess {
		delete(h.pendingHeartbeat, account)
	}
}

// FindPlayerByName 按账号名查找玩家。
func (h *GameHall) FindPlayerByName(name string) (*Player, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.players[name]
	return p, ok
}

// RoomMembers 返回房间当前成员的快照。
func (h *GameHall) RoomMembers(r *Room) []*Player {
	h.mu.Lock()
	defer h.mu.Unlock()

	return r.Members()
}

// BeginGame 将房间置为对局中，所有成员迁移为 PlayingGame。
// 返回成员快照供协调器使用。
func (h *GameHall) BeginGame(r *Room) ([]*Player, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r.inGame {
		return nil, merr.WrapErrRoomNotCleared(r.index)
	}
	for _, member := range r.members {
		if err := member.setStatus(StatusPlayingGame); err != nil {
			return nil, err
		}
	}
	r.inGame = true
	return r.Members(), nil
}

// FinishGame 结束一场对局：清空房间，仍在线的成员恢复为 InHall，
// 并打开各成员的恢复 Gate 唤醒挂起的会话 goroutine。
func (h *GameHall) FinishGame(r *Room, members []*Player) {
	h.mu.Lock()
	r.clear()
	for _, member := range members {
		if _, online := h.players[member.name]; online {
			_ = member.setStatus(StatusInHall)
		}
	}
	h.mu.Unlock()

	// Gate 的打开放在锁外，唤醒的 goroutine 可能立刻回调大厅方法。
	for _, member := range members {
		member.resume.Open()
	}
}

// PlayerSnapshot 与 RoomSnapshot 是调试端点使用的只读视图。
type PlayerSnapshot struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type RoomSnapshot struct {
	Index     int      `json:"index"`
	Occupancy int      `json:"occupancy"`
	InGame    bool     `json:"in_game"`
	Members   []string `json:"members"`
}

type HallSnapshot struct {
	Players []PlayerSnapshot `json:"players"`
	Rooms   []RoomSnapshot   `json:"rooms"`
}

// Snapshot 返回大厅当前状态的一致快照。
func (h *GameHall) Snapshot() HallSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := HallSnapshot{
		Players: make([]PlayerSnapshot, 0, len(h.players)),
		Rooms:   make([]RoomSnapshot, 0, len(h.rooms)),
	}
	for _, p := range h.players {
		snap.Players = append(snap.Players, PlayerSnapshot{
			Name:   p.name,
			Status: p.status.String(),
		})
	}
	for _, r := range h.rooms {
		snap.Rooms = append(snap.Rooms, RoomSnapshot{
			Index:     r.index,
			Occupancy: r.Occupancy(),
			InGame:    r.inGame,
			Members: lo.Map(r.members, func(m *Player, _ int) string {
				return m.name
			}),
		})
	}
	return snap
}
