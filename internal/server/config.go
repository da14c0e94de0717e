package server

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/guess-hall-go/internal/hall"
	"github.com/lk2023060901/guess-hall-go/pkg/log"
	"github.com/lk2023060901/guess-hall-go/pkg/util/viper"
)

// EnvConfigPath 指定配置文件路径的环境变量名。
const EnvConfigPath = "GUESSHALL_CONFIG"

// Config 为服务端的全部可配置项。
type Config struct {
	// ListenAddr 为对局服务的 TCP 监听地址。
	ListenAddr string `mapstructure:"listen-addr"`
	// MetricsAddr 为指标与调试 HTTP 服务的监听地址，留空表示关闭。
	MetricsAddr string `mapstructure:"metrics-addr"`

	// CredentialPath 为凭据文件路径。
	CredentialPath string `mapstructure:"credential-path"`

	// RoomCount 为大厅房间数量。
	RoomCount int `mapstructure:"room-count"`

	// HeartbeatTimeout 为服务端等待一次心跳的超时时间。
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat-timeout"`
	// AttachTimeout 为登录流程等待心跳通道绑定的超时时间。
	AttachTimeout time.Duration `mapstructure:"attach-timeout"`

	// GamePoolSize 为对局协调器使用的协程池容量。
	GamePoolSize int `mapstructure:"game-pool-size"`

	// Log 为日志配置。
	Log log.Config `mapstructure:"log"`
}

// DefaultConfig 返回内置默认配置。
func DefaultConfig() Config {
	return Config{
		ListenAddr:       ":7777",
		MetricsAddr:      ":9091",
		CredentialPath:   "credentials.txt",
		RoomCount:        hall.DefaultRoomCount,
		HeartbeatTimeout: time.Second,
		AttachTimeout:    5 * time.Second,
		GamePoolSize:     64,
		Log: log.Config{
			Level:  "info",
			Format: "console",
			Stdout: true,
		},
	}
}

// LoadConfig 加载服务端配置。
//
// 行为：
//   - path 为空时读取 GUESSHALL_CONFIG 环境变量；
//   - 默认值经 SetDefault 注册，文件中的同名项覆盖默认值；
//   - 两者均为空时返回默认配置。
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	defaults := DefaultConfig()
	v := viper.New()
	v.SetDefault("listen-addr", defaults.ListenAddr)
	v.SetDefault("metrics-addr", defaults.MetricsAddr)
	v.SetDefault("credential-path", defaults.CredentialPath)
	v.SetDefault("room-count", defaults.RoomCount)
	v.SetDefault("heartbeat-timeout", defaults.HeartbeatTimeout)
	v.SetDefault("attach-timeout", defaults.AttachTimeout)
	v.SetDefault("game-pool-size", defaults.GamePoolSize)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("log.stdout", defaults.Log.Stdout)

	if path != "" {
		if err := v.LoadFile(path); err != nil {
			return defaults, errors.Wrapf(err, "server: load config %s failed", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return defaults, errors.Wrapf(err, "server: parse config %s failed", path)
	}
	return cfg, nil
}
