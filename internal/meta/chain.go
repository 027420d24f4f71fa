package meta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/John-Robertt/dhakaflix/internal/domain"
	"github.com/John-Robertt/dhakaflix/internal/logging"
)

// Attempt 记录一次 provider 尝试（用于解释回退原因）。
type Attempt struct {
	Provider string
	Stage    string // "fetch" / "decode" / "ok"
	Err      error
}

// Chain 按配置顺序依次尝试 provider，第一个成功的结果胜出。
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain 校验 provider 名称唯一且非空；顺序即尝试顺序。
func NewChain(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	seen := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("meta provider 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(p.Name()))
		if name == "" {
			return nil, fmt.Errorf("meta provider.Name 不能为空")
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("重复的 meta provider：%q", name)
		}
		seen[name] = struct{}{}
	}
	return &Chain{
		providers: append([]Provider(nil), providers...),
		logger:    logging.NewComponentLogger(logger, "meta"),
	}, nil
}

// Lookup 与 LookupTrace 相同，但不返回尝试链路。
func (c *Chain) Lookup(ctx context.Context, kind domain.Kind, id string) (domain.CanonicalMeta, error) {
	m, _, err := c.LookupTrace(ctx, kind, id)
	return m, err
}

// LookupTrace 依次尝试每个 provider，并返回尝试链路。
func (c *Chain) LookupTrace(ctx context.Context, kind domain.Kind, id string) (domain.CanonicalMeta, []Attempt, error) {
	if strings.TrimSpace(id) == "" {
		return domain.CanonicalMeta{}, nil, fmt.Errorf("id 不能为空")
	}

	var (
		attempts []Attempt
		lastErr  error
	)
	for _, p := range c.providers {
		m, err := p.Lookup(ctx, kind, id)
		if err != nil {
			stage := "fetch"
			var pe *Error
			if errors.As(err, &pe) && pe.Stage != "" {
				stage = pe.Stage
			}
			attempts = append(attempts, Attempt{Provider: p.Name(), Stage: stage, Err: err})
			lastErr = err
			c.logger.Debug("meta provider failed",
				logging.String("provider", p.Name()),
				logging.String("id", id),
				logging.Error(err),
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		attempts = append(attempts, Attempt{Provider: p.Name(), Stage: "ok"})
		return m, attempts, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("无可用 meta provider")
	}
	return domain.CanonicalMeta{}, attempts, lastErr
}
