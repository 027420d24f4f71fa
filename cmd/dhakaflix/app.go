package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/John-Robertt/dhakaflix/internal/app/stream"
	"github.com/John-Robertt/dhakaflix/internal/config"
	"github.com/John-Robertt/dhakaflix/internal/infra/cache"
	"github.com/John-Robertt/dhakaflix/internal/infra/httpx"
	"github.com/John-Robertt/dhakaflix/internal/listing"
	"github.com/John-Robertt/dhakaflix/internal/logging"
	"github.com/John-Robertt/dhakaflix/internal/meta"
	"github.com/John-Robertt/dhakaflix/internal/resolve"
	"github.com/John-Robertt/dhakaflix/internal/search"
	"github.com/John-Robertt/dhakaflix/internal/source"
)

// app 是一次进程生命周期内装配好的组件集合。
type app struct {
	eff       config.EffectiveConfig
	logger    *slog.Logger
	registry  source.Registry
	store     *cache.Store
	meta      *meta.Chain
	assembler *stream.Assembler
}

func newApp(eff config.EffectiveConfig, logOut io.Writer, obs search.Observer) (*app, error) {
	logger, err := logging.New(logging.Options{Level: eff.LogLevel, Format: eff.LogFormat, Output: logOut})
	if err != nil {
		return nil, err
	}

	reg, err := source.NewRegistry(eff.Sources...)
	if err != nil {
		return nil, fmt.Errorf("初始化来源注册表失败：%w", err)
	}

	client, err := httpx.NewClient(httpx.Options{ProxyURL: eff.ProxyURL, UserAgent: eff.UserAgent})
	if err != nil {
		return nil, err
	}

	backend := cache.NewMemoryBackend()
	if eff.CacheDir != "" {
		backend, err = cache.OpenBadgerBackend(eff.CacheDir, logger)
		if err != nil {
			return nil, fmt.Errorf("打开缓存目录失败：%w", err)
		}
	}
	store := cache.New(cache.Options{
		Backend: backend,
		Logger:  logger,
		TTL: map[cache.Namespace]time.Duration{
			cache.NamespaceSearch: eff.SearchTTL,
			cache.NamespaceStream: eff.StreamTTL,
		},
	})

	chain, err := newMetaChain(eff, client, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	fetcher := listing.NewFetcher(client, logger)
	agg := search.New(search.Options{
		Registry: reg,
		Lister:   fetcher,
		Cache:    store,
		Logger:   logger,
		Observer: obs,
	})

	return &app{
		eff:      eff,
		logger:   logger,
		registry: reg,
		store:    store,
		meta:     chain,
		assembler: stream.New(stream.Options{
			Registry: reg,
			Search:   agg,
			Resolver: resolve.New(fetcher, logger),
			Meta:     chain,
			Cache:    store,
			Logger:   logger,
		}),
	}, nil
}

// newMetaChain 按 MetaOrder 构造 provider 链；未配置 api key 的 tmdb 被跳过。
func newMetaChain(eff config.EffectiveConfig, client *http.Client, logger *slog.Logger) (*meta.Chain, error) {
	var providers []meta.Provider
	for _, name := range eff.MetaOrder {
		switch name {
		case "cinemeta":
			providers = append(providers, meta.Cinemeta{BaseURL: eff.CinemetaURL, Client: client})
		case "tmdb":
			if eff.TMDBAPIKey == "" {
				logger.Debug("tmdb api key not set, provider skipped")
				continue
			}
			t, err := meta.NewTMDB(eff.TMDBAPIKey, client)
			if err != nil {
				return nil, fmt.Errorf("初始化 tmdb 失败：%w", err)
			}
			providers = append(providers, t)
		default:
			return nil, fmt.Errorf("未知的 meta provider：%q", name)
		}
	}
	if len(providers) == 0 {
		return nil, errors.New("没有可用的 meta provider")
	}
	return meta.NewChain(logger, providers...)
}

func (a *app) Close() error {
	return a.store.Close()
}
