package cache

import (
	"context"
	"time"

	"github.com/John-Robertt/dhakaflix/internal/logging"
)

const (
	DefaultSweepDelay    = 30 * time.Minute
	DefaultSweepInterval = 6 * time.Hour
)

// RunSweeper 在后台周期性调用 Sweep：首次在 initialDelay 后执行，之后每 interval 一次。
// 阻塞直到 ctx 取消；请求路径从不调用 Sweep。
func (s *Store) RunSweeper(ctx context.Context, initialDelay, interval time.Duration) {
	if initialDelay <= 0 {
		initialDelay = DefaultSweepDelay
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := s.Sweep(); err != nil {
				s.logger.Warn("cache sweep failed", logging.Error(err))
			}
			timer.Reset(interval)
		}
	}
}
