package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/dhakaflix/internal/domain"
	"github.com/John-Robertt/dhakaflix/internal/infra/cache"
	"github.com/John-Robertt/dhakaflix/internal/logging"
	"github.com/John-Robertt/dhakaflix/internal/source"
)

// CategoryLimit 是空查询（分类浏览）时单个来源合并后的最大条目数。
const CategoryLimit = 40

// Lister 是 Aggregator 依赖的抓取能力（listing.Fetcher 实现了它）。
type Lister interface {
	Category(ctx context.Context, src source.Descriptor, pagePath string) ([]domain.Listing, error)
	Query(ctx context.Context, src source.Descriptor, query string) ([]domain.Listing, error)
}

// Options 描述 Aggregator 的依赖；Observer/Logger 可为空。
type Options struct {
	Registry source.Registry
	Lister   Lister
	Cache    *cache.Store
	Logger   *slog.Logger
	Observer Observer
}

// Aggregator 把一个查询并发分发到所有支持该类型的来源，并合并结果。
//
// 约束：
// - 每个来源独立的失败边界：一个来源超时/失败不影响其它来源
// - 合并顺序 = Registry 顺序（与完成先后无关）
// - 标准阶段结果为空且查询非空时，恰好再跑一次扩展阶段；扩展阶段在标准阶段之后串行执行
type Aggregator struct {
	reg      source.Registry
	lister   Lister
	cache    cache.Typed[[]domain.Listing]
	logger   *slog.Logger
	observer Observer
}

func New(opts Options) *Aggregator {
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Aggregator{
		reg:      opts.Registry,
		lister:   opts.Lister,
		cache:    cache.NewTyped[[]domain.Listing](opts.Cache, cache.NamespaceSearch),
		logger:   logging.NewComponentLogger(opts.Logger, "search"),
		observer: obs,
	}
}

// SearchAll 返回所有支持 kind 的来源上的候选（附带 SourceID）。
// 失败的来源贡献空结果；整体不返回错误。
func (a *Aggregator) SearchAll(ctx context.Context, query string, kind domain.Kind) []domain.Listing {
	query = strings.TrimSpace(query)
	sources := a.reg.Supporting(kind)
	if len(sources) == 0 {
		return []domain.Listing{}
	}

	out := a.runPass(ctx, PassStandard, query, sources)
	if len(out) > 0 || query == "" || ctx.Err() != nil {
		return out
	}

	a.logger.Info("standard pass empty, running extended pass",
		logging.String("query", query),
		logging.String("kind", string(kind)),
	)
	return a.runPass(ctx, PassExtended, query, sources)
}

// runPass 并发执行一轮；所有分支结束后按来源顺序合并。
func (a *Aggregator) runPass(ctx context.Context, pass Pass, query string, sources []source.Descriptor) []domain.Listing {
	a.observer.OnPassStart(pass, query, len(sources))

	results := make([][]domain.Listing, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src source.Descriptor) {
			defer wg.Done()
			results[i] = a.searchSource(ctx, pass, query, src)
		}(i, src)
	}
	wg.Wait()

	out := make([]domain.Listing, 0)
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func (a *Aggregator) searchSource(ctx context.Context, pass Pass, query string, src source.Descriptor) []domain.Listing {
	start := time.Now()
	key := cacheKey(src.ID, query)
	ev := Event{Pass: pass, SourceID: src.ID, Query: query}
	defer func() {
		ev.Duration = time.Since(start)
		a.observer.OnSourceDone(ev)
	}()

	cached, fresh, found := a.cache.Get(key)
	// 扩展阶段：新鲜但为空的缓存条目视为未命中，重新抓取。
	if found && fresh && (pass == PassStandard || len(cached) > 0) {
		ev.Cache, ev.Count = CacheFresh, len(cached)
		return withSource(cached, src.ID)
	}

	budget := src.SearchBudget()
	if pass == PassExtended {
		budget = src.ExtendedBudget()
	}
	fctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var (
		got []domain.Listing
		err error
	)
	if query == "" {
		got, err = a.browse(fctx, src)
	} else {
		got, err = a.lister.Query(fctx, src, query)
	}

	if err != nil {
		ev.Err = err
		a.logger.Warn("source search failed",
			logging.String(logging.FieldSource, src.ID),
			logging.String("pass", string(pass)),
			logging.String("query", query),
			logging.Bool("stale_available", found),
			logging.Error(err),
		)
		if found {
			ev.Cache, ev.Count = CacheStale, len(cached)
			return withSource(cached, src.ID)
		}
		ev.Cache = CacheNone
		return nil
	}

	if got == nil {
		got = []domain.Listing{}
	}
	if perr := a.cache.Put(key, got); perr != nil {
		a.logger.Warn("search cache write failed",
			logging.String(logging.FieldSource, src.ID),
			logging.Error(perr),
		)
	}
	ev.Cache, ev.Count = CacheMiss, len(got)
	return withSource(got, src.ID)
}

// browse 对每个分类页并发抓取，按分类顺序合并并截断；只有全部分类都失败才算失败。
func (a *Aggregator) browse(ctx context.Context, src source.Descriptor) ([]domain.Listing, error) {
	if len(src.MainPages) == 0 {
		return []domain.Listing{}, nil
	}

	pages := make([][]domain.Listing, len(src.MainPages))
	errs := make([]error, len(src.MainPages))
	var wg sync.WaitGroup
	for i, p := range src.MainPages {
		wg.Add(1)
		go func(i int, p source.MainPage) {
			defer wg.Done()
			pages[i], errs[i] = a.lister.Category(ctx, src, p.Path)
			if errs[i] != nil {
				a.logger.Debug("category page failed",
					logging.String(logging.FieldSource, src.ID),
					logging.String("page", p.Label),
					logging.Error(errs[i]),
				)
			}
		}(i, p)
	}
	wg.Wait()

	out := make([]domain.Listing, 0, CategoryLimit)
	failed := 0
	for i := range pages {
		if errs[i] != nil {
			failed++
			continue
		}
		out = append(out, pages[i]...)
	}
	if failed == len(pages) {
		return nil, errors.Join(errs...)
	}
	if len(out) > CategoryLimit {
		out = out[:CategoryLimit]
	}
	return out, nil
}

// cacheKey 与来源 id + 查询串一一对应。
func cacheKey(sourceID, query string) string {
	return sourceID + ":" + query
}

func withSource(in []domain.Listing, sourceID string) []domain.Listing {
	out := make([]domain.Listing, len(in))
	for i, l := range in {
		l.SourceID = sourceID
		out[i] = l
	}
	return out
}
