// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// hallNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	hallNamespace = "guesshall"

	// 以下为当前使用的通用标签名。
	channelLabelName = "channel"
	outcomeLabelName = "outcome"
	roomLabelName    = "room"
	resultLabelName  = "result"
)

// channel 标签取值。
const (
	ChannelMessage   = "message"
	ChannelHeartbeat = "heartbeat"
)

// outcome 标签取值。
const (
	OutcomeTie     = "tie"
	OutcomeDecided = "decided"
	OutcomeForfeit = "forfeit"
)

var (
	// OnlinePlayers 为当前在大厅注册的玩家数。
	OnlinePlayers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: hallNamespace,
			Name:      "online_players",
			Help:      "number of players currently registered in the hall",
		})

	// ActiveSessions 为当前活跃的 TCP 会话数，按通道类型区分。
	ActiveSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: hallNamespace,
			Name:      "active_sessions",
			Help:      "number of active TCP sessions by channel type",
		}, []string{channelLabelName})

	// RoomOccupancy 为每个房间的当前占用人数。
	RoomOccupancy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: hallNamespace,
			Name:      "room_occupancy",
			Help:      "current occupancy of each game room",
		}, []string{roomLabelName})

	// GamesTotal 为已结束的对局总数，按结局类型区分。
	GamesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: hallNamespace,
			Name:      "games_total",
			Help:      "total number of finished games by outcome",
		}, []string{outcomeLabelName})

	// AuthAttemptsTotal 为认证尝试总数，按结果区分。
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: hallNamespace,
			Name:      "auth_attempts_total",
			Help:      "total number of authentication attempts by result",
		}, []string{resultLabelName})

	// HeartbeatFailuresTotal 为心跳失效导致的玩家清退总数。
	HeartbeatFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: hallNamespace,
			Name:      "heartbeat_failures_total",
			Help:      "total number of players evicted due to heartbeat failure",
		})
)

// Register 将所有指标注册到给定 Registry。
func Register(r prometheus.Registerer) {
	r.MustRegister(OnlinePlayers)
	r.MustRegister(ActiveSessions)
	r.MustRegister(RoomOccupancy)
	r.MustRegister(GamesTotal)
	r.MustRegister(AuthAttemptsTotal)
	r.MustRegister(HeartbeatFailuresTotal)
}
