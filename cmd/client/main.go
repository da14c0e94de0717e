// guess-hall-client 是对局服务的交互式客户端入口。
//
// 用法：guess-hall-client <server-host> <server-port>
// 正常退出（/exit）返回 0，连接不可恢复或参数错误返回 1。
package main

import (
	"context"
	"fmt"
	"net"
	"os"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/lk2023060901/guess-hall-go/internal/client"
	"github.com/lk2023060901/guess-hall-go/pkg/log"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <server-host> <server-port>\n", os.Args[0])
		os.Exit(1)
	}

	logger, props, err := log.InitLogger(&log.Config{
		Level:  "warn",
		Format: "console",
		Stdout: true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.ReplaceGlobals(logger, props)
	defer log.Sync()

	addr := net.JoinHostPort(os.Args[1], os.Args[2])
	c := client.New(addr, os.Stdin, os.Stdout)
	if err := c.Run(context.Background()); err != nil {
		log.Error("client exited with error", zap.Error(err))
		os.Exit(1)
	}
}
