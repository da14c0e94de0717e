// guess-hall-server 是对局服务的入口。
//
// 用法：guess-hall-server <listen-port> <credential-file-path>
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/guess-hall-go/internal/credential"
	"github.com/lk2023060901/guess-hall-go/internal/network/acceptor"
	"github.com/lk2023060901/guess-hall-go/internal/network/framer"
	"github.com/lk2023060901/guess-hall-go/internal/server"
	"github.com/lk2023060901/guess-hall-go/pkg/log"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <listen-port> <credential-file-path>\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := server.LoadConfig("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.ListenAddr = ":" + os.Args[1]
	cfg.CredentialPath = os.Args[2]

	logger, props, err := log.InitLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.ReplaceGlobals(logger, props)
	defer log.Sync()

	if err := run(cfg); err != nil && err != context.Canceled {
		log.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg server.Config) error {
	creds, err := credential.Load(cfg.CredentialPath)
	if err != nil {
		return err
	}
	log.Info("credential store loaded",
		zap.String("path", cfg.CredentialPath),
		zap.Int("accounts", creds.Count()))

	srv := server.New(cfg, creds)
	defer srv.Close()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return err
	}
	acc, err := acceptor.New(ln, framer.NewLineFramer(0), nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", zap.String("addr", acc.Addr().String()))
		return acc.Serve(ctx, srv)
	})
	group.Go(func() error {
		return srv.ServeMetrics(ctx)
	})
	group.Go(func() error {
		<-ctx.Done()
		return acc.Close()
	})

	return group.Wait()
}
