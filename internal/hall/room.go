package hall

import (
	"strconv"

	"github.com/lk2023060901/guess-hall-go/pkg/metrics"
)

// RoomCapacity 为每个房间的固定容量。
const RoomCapacity = 2

// Room 表示一个固定容量的对局房间。
// 所有字段均由 GameHall 的互斥锁保护。
type Room struct {
	index   int
	members []*Player
	inGame  bool
}

func newRoom(index int) *Room {
	return &Room{
		index:   index,
		members: make([]*Player, 0, RoomCapacity),
	}
}

// Index 返回房间序号。创建后不可变。
func (r *Room) Index() int {
	return r.index
}

// Occupancy 返回当前占用人数。必须在 GameHall 的锁内调用。
func (r *Room) Occupancy() int {
	return len(r.members)
}

// Members 返回当前成员的快照。必须在 GameHall 的锁内调用。
func (r *Room) Members() []*Player {
	out := make([]*Player, len(r.members))
	copy(out, r.members)
	return out
}

// isFull 必须在 GameHall 的锁内调用。
func (r *Room) isFull() bool {
	return len(r.members) >= RoomCapacity
}

// addMember 必须在 GameHall 的锁内调用，调用前需确认未满。
func (r *Room) addMember(p *Player) {
	r.members = append(r.members, p)
	p.room = r
	metrics.RoomOccupancy.WithLabelValues(strconv.Itoa(r.index)).Set(float64(len(r.members)))
}

// removeMember 必须在 GameHall 的锁内调用。成员不在房间内时为空操作。
func (r *Room) removeMember(p *Player) {
	for i, member := range r.members {
		if member == p {
			r.members = append(r.members[:i], r.members[i+1:]...)
			p.room = nil
			break
		}
	}
	metrics.RoomOccupancy.WithLabelValues(strconv.Itoa(r.index)).Set(float64(len(r.members)))
}

// clear 清空房间。必须在 GameHall 的锁内调用。
func (r *Room) clear() {
	for _, member := range r.members {
		member.room = nil
	}
	r.members = r.members[:0]
	r.inGame = false
	metrics.RoomOccupancy.WithLabelValues(strconv.Itoa(r.index)).Set(0)
}
