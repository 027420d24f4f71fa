package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/dhakaflix/internal/logging"
	"github.com/John-Robertt/dhakaflix/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 addon HTTP 服务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", a.eff.Addr)
			if err != nil {
				return fmt.Errorf("监听 %s 失败：%w", a.eff.Addr, err)
			}
			return serve(sigCtx, a, ln)
		},
	}
}

// serve 阻塞直到 ctx 取消或服务异常退出；退出前优雅关闭并停止缓存清理。
func serve(ctx context.Context, a *app, ln net.Listener) error {
	handler := server.New(server.Options{
		Registry: a.registry,
		Service:  a.assembler,
		Logger:   a.logger,
		Version:  version,
	})
	hs := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go a.store.RunSweeper(sweepCtx, a.eff.SweepDelay, a.eff.SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- hs.Serve(ln)
	}()

	a.logger.Info("addon server started",
		logging.String("addr", ln.Addr().String()),
		logging.String("manifest", "http://"+ln.Addr().String()+"/manifest.json"),
		logging.Int("sources", a.registry.Len()),
		logging.String("proxy", formatProxy(a.eff.ProxyURL)),
		logging.String("cache_dir", a.eff.CacheDir),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down addon server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭 HTTP 服务失败：%w", err)
	}
	return nil
}
