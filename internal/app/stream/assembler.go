package stream

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/John-Robertt/dhakaflix/internal/domain"
	"github.com/John-Robertt/dhakaflix/internal/infra/cache"
	"github.com/John-Robertt/dhakaflix/internal/logging"
	"github.com/John-Robertt/dhakaflix/internal/match"
	"github.com/John-Robertt/dhakaflix/internal/source"
)

// Searcher 是多来源搜索能力（search.Aggregator 实现了它）。
type Searcher interface {
	SearchAll(ctx context.Context, query string, kind domain.Kind) []domain.Listing
}

// ContentResolver 是候选 URL → 可播放内容的能力（resolve.Resolver 实现了它）。
type ContentResolver interface {
	Resolve(ctx context.Context, targetURL string, src source.Descriptor) *domain.ResolvedContent
}

// MetaLookup 是外部元数据查询能力（meta.Chain 实现了它）。
type MetaLookup interface {
	Lookup(ctx context.Context, kind domain.Kind, id string) (domain.CanonicalMeta, error)
}

type Options struct {
	Registry source.Registry
	Search   Searcher
	Resolver ContentResolver
	Meta     MetaLookup
	Cache    *cache.Store
	Logger   *slog.Logger
}

// Assembler 是对外的核心入口：GetStreams / Search / Resolve / GetMeta。
//
// 约束：
// - 任何失败路径都返回空切片或 nil，从不向调用方返回错误
// - 非空的 stream 结果按外部 id 写入 stream 缓存；新鲜命中时不发起任何请求
type Assembler struct {
	reg      source.Registry
	search   Searcher
	resolver ContentResolver
	meta     MetaLookup
	streams  cache.Typed[[]domain.Stream]
	logger   *slog.Logger
}

func New(opts Options) *Assembler {
	return &Assembler{
		reg:      opts.Registry,
		search:   opts.Search,
		resolver: opts.Resolver,
		meta:     opts.Meta,
		streams:  cache.NewTyped[[]domain.Stream](opts.Cache, cache.NamespaceStream),
		logger:   logging.NewComponentLogger(opts.Logger, "stream"),
	}
}

// GetStreams 返回外部 id 对应的可播放地址列表（从不为 nil）。
func (a *Assembler) GetStreams(ctx context.Context, rawID string, kind domain.Kind) []domain.Stream {
	logger := logging.WithContext(ctx, a.logger)
	id, err := domain.ParseExternalID(rawID)
	if err != nil {
		logger.Info("unrecognized id", logging.String("id", rawID), logging.Error(err))
		return []domain.Stream{}
	}

	var src source.Descriptor
	if id.Form == domain.IDSource {
		src, err = a.reg.Lookup(id.SourceID)
		if err != nil {
			logger.Warn("unknown source in id", logging.String("id", rawID), logging.Error(err))
			return []domain.Stream{}
		}
	}

	cached, fresh, found := a.streams.Get(id.Raw)
	if found && fresh {
		logger.Debug("stream cache hit", logging.String("id", id.Raw), logging.Int("count", len(cached)))
		return cached
	}

	var out []domain.Stream
	switch id.Form {
	case domain.IDSource:
		out = a.sourceStreams(ctx, id.URL, src)
	default:
		out = a.canonicalStreams(ctx, id, kind)
	}

	if len(out) == 0 {
		if found && len(cached) > 0 {
			logger.Info("no fresh streams, serving stale cache", logging.String("id", id.Raw), logging.Int("count", len(cached)))
			return cached
		}
		return []domain.Stream{}
	}
	if err := a.streams.Put(id.Raw, out); err != nil {
		logger.Warn("stream cache write failed", logging.String("id", id.Raw), logging.Error(err))
	}
	return out
}

func (a *Assembler) sourceStreams(ctx context.Context, u string, src source.Descriptor) []domain.Stream {
	return toStreams(a.resolver.Resolve(ctx, u, src), src)
}

func (a *Assembler) canonicalStreams(ctx context.Context, id domain.ExternalID, kind domain.Kind) []domain.Stream {
	logger := logging.WithContext(ctx, a.logger)
	cm, err := a.meta.Lookup(ctx, kind, id.Canonical)
	if err != nil {
		logger.Info("canonical meta unavailable", logging.String("id", id.Canonical), logging.Error(err))
		return nil
	}

	out := a.matchStreams(ctx, id, kind, cm.Name, cm.Year)
	if len(out) > 0 {
		return out
	}
	simplified, ok := match.Simplify(cm.Name)
	if !ok {
		return nil
	}
	logger.Info("retrying with simplified title",
		logging.String("id", id.Raw),
		logging.String("title", cm.Name),
		logging.String("simplified", simplified),
	)
	return a.matchStreams(ctx, id, kind, simplified, cm.Year)
}

func (a *Assembler) matchStreams(ctx context.Context, id domain.ExternalID, kind domain.Kind, title string, year int) []domain.Stream {
	listings := a.search.SearchAll(ctx, title, kind)
	if id.Form == domain.IDEpisode {
		return a.episodeStream(ctx, id, a.rank(listings, seriesOnly(kind), title, year))
	}
	return a.movieStreams(ctx, a.rank(listings, kind.Accepts, title, year))
}

// movieStreams 取每个来源的最佳候选并发解析；输出顺序 = 分数降序，同分按来源注册顺序。
func (a *Assembler) movieStreams(ctx context.Context, ranked []domain.MatchCandidate) []domain.Stream {
	best := make([]domain.MatchCandidate, 0, a.reg.Len())
	seen := make(map[string]struct{})
	for _, c := range ranked {
		if _, ok := seen[c.SourceID]; ok {
			continue
		}
		seen[c.SourceID] = struct{}{}
		best = append(best, c)
	}

	perCandidate := make([][]domain.Stream, len(best))
	var wg sync.WaitGroup
	for i, c := range best {
		src, ok := a.reg.Get(c.SourceID)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(i int, c domain.MatchCandidate, src source.Descriptor) {
			defer wg.Done()
			perCandidate[i] = toStreams(a.resolver.Resolve(ctx, c.TargetURL, src), src)
		}(i, c, src)
	}
	wg.Wait()

	var out []domain.Stream
	for _, s := range perCandidate {
		out = append(out, s...)
	}
	return out
}

// episodeStream 按排名依次解析剧集候选，直到找到 SxxEyy。
func (a *Assembler) episodeStream(ctx context.Context, id domain.ExternalID, ranked []domain.MatchCandidate) []domain.Stream {
	for _, c := range ranked {
		if ctx.Err() != nil {
			return nil
		}
		src, ok := a.reg.Get(c.SourceID)
		if !ok {
			continue
		}
		rc := a.resolver.Resolve(ctx, c.TargetURL, src)
		ep, ok := rc.FindEpisode(id.Season, id.Episode)
		if !ok {
			continue
		}
		return []domain.Stream{{Name: src.DisplayName, Title: ep.Name, URL: ep.URL}}
	}
	return nil
}

func (a *Assembler) rank(listings []domain.Listing, accept func(domain.Kind) bool, title string, year int) []domain.MatchCandidate {
	filtered := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if accept(l.Kind) {
			filtered = append(filtered, l)
		}
	}
	return match.Rank(filtered, title, year)
}

// seriesOnly：单集请求只接受剧集目录；anime 来源的番剧可能未命中剧集关键字，因此 anime 两者都接受。
func seriesOnly(kind domain.Kind) func(domain.Kind) bool {
	if kind == domain.KindAnime {
		return kind.Accepts
	}
	return func(k domain.Kind) bool { return k == domain.KindSeries }
}

// Search 返回按查询评分后的候选；空查询（分类浏览）不评分，按来源顺序返回。
func (a *Assembler) Search(ctx context.Context, query string, kind domain.Kind) []domain.MatchCandidate {
	query = strings.TrimSpace(query)
	listings := a.search.SearchAll(ctx, query, kind)
	if query == "" {
		out := make([]domain.MatchCandidate, 0, len(listings))
		for _, l := range listings {
			if kind.Accepts(l.Kind) {
				out = append(out, domain.MatchCandidate{Listing: l})
			}
		}
		return out
	}
	return a.rank(listings, kind.Accepts, query, 0)
}

// Resolve 解析某个来源上的 URL；未知来源返回 nil。
func (a *Assembler) Resolve(ctx context.Context, u, sourceID string) *domain.ResolvedContent {
	src, err := a.reg.Lookup(sourceID)
	if err != nil {
		logging.WithContext(ctx, a.logger).Warn("resolve on unknown source", logging.String(logging.FieldSource, sourceID), logging.Error(err))
		return nil
	}
	return a.resolver.Resolve(ctx, u, src)
}

// GetMeta 返回 addon meta 对象；找不到时返回 nil。
func (a *Assembler) GetMeta(ctx context.Context, rawID string, kind domain.Kind) *domain.MetaObject {
	logger := logging.WithContext(ctx, a.logger)
	id, err := domain.ParseExternalID(rawID)
	if err != nil {
		return nil
	}

	switch id.Form {
	case domain.IDSource:
		src, err := a.reg.Lookup(id.SourceID)
		if err != nil {
			logger.Warn("unknown source in id", logging.String("id", rawID), logging.Error(err))
			return nil
		}
		return toMeta(id.Raw, src, a.resolver.Resolve(ctx, id.URL, src))
	default:
		cm, err := a.meta.Lookup(ctx, kind, id.Canonical)
		if err != nil {
			logger.Info("canonical meta unavailable", logging.String("id", id.Canonical), logging.Error(err))
			return nil
		}
		for _, c := range a.rank(a.search.SearchAll(ctx, cm.Name, kind), kind.Accepts, cm.Name, cm.Year) {
			src, ok := a.reg.Get(c.SourceID)
			if !ok {
				continue
			}
			if m := toMeta(domain.SourceItemID(src.ID, c.TargetURL), src, a.resolver.Resolve(ctx, c.TargetURL, src)); m != nil {
				return m
			}
			if ctx.Err() != nil {
				return nil
			}
		}
		return nil
	}
}

func toStreams(rc *domain.ResolvedContent, src source.Descriptor) []domain.Stream {
	if rc.Empty() {
		return nil
	}
	var out []domain.Stream
	for _, v := range rc.VideoFiles {
		out = append(out, domain.Stream{Name: src.DisplayName, Title: streamTitle(v.Name, v.HasDualAudio, v.HasSubtitles), URL: v.URL})
	}
	for _, ep := range rc.Episodes {
		out = append(out, domain.Stream{Name: src.DisplayName, Title: ep.Name, URL: ep.URL})
	}
	return out
}

func streamTitle(name string, dual, subs bool) string {
	var tags []string
	if dual {
		tags = append(tags, "Dual Audio")
	}
	if subs {
		tags = append(tags, "Subtitles")
	}
	if len(tags) == 0 {
		return name
	}
	return name + "\n" + strings.Join(tags, " | ")
}

func toMeta(id string, src source.Descriptor, rc *domain.ResolvedContent) *domain.MetaObject {
	if rc.Empty() {
		return nil
	}
	m := &domain.MetaObject{
		ID:     id,
		Type:   domain.Kind(rc.Type),
		Name:   rc.Name,
		Poster: rc.PosterURL,
	}
	for _, ep := range rc.Episodes {
		m.Videos = append(m.Videos, domain.MetaVideo{
			ID:      domain.SourceItemID(src.ID, ep.URL),
			Title:   ep.Name,
			Season:  ep.Season,
			Episode: ep.Episode,
		})
	}
	return m
}
