package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/dhakaflix/internal/domain"
	"github.com/John-Robertt/dhakaflix/internal/infra/cache"
	"github.com/John-Robertt/dhakaflix/internal/logging"
	"github.com/John-Robertt/dhakaflix/internal/source"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeLister struct {
	mu       sync.Mutex
	queries  map[string]int
	pages    map[string]int
	query    func(ctx context.Context, src source.Descriptor, q string) ([]domain.Listing, error)
	category func(ctx context.Context, src source.Descriptor, path string) ([]domain.Listing, error)
}

func newFakeLister() *fakeLister {
	return &fakeLister{queries: map[string]int{}, pages: map[string]int{}}
}

func (f *fakeLister) Query(ctx context.Context, src source.Descriptor, q string) ([]domain.Listing, error) {
	f.mu.Lock()
	f.queries[src.ID]++
	f.mu.Unlock()
	return f.query(ctx, src, q)
}

func (f *fakeLister) Category(ctx context.Context, src source.Descriptor, path string) ([]domain.Listing, error) {
	f.mu.Lock()
	f.pages[src.ID]++
	f.mu.Unlock()
	return f.category(ctx, src, path)
}

func (f *fakeLister) queryCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[id]
}

type recordingObserver struct {
	mu     sync.Mutex
	passes []Pass
	events []Event
}

func (o *recordingObserver) OnPassStart(p Pass, _ string, _ int) {
	o.mu.Lock()
	o.passes = append(o.passes, p)
	o.mu.Unlock()
}

func (o *recordingObserver) OnSourceDone(ev Event) {
	o.mu.Lock()
	o.events = append(o.events, ev)
	o.mu.Unlock()
}

func desc(id string, kinds ...domain.Kind) source.Descriptor {
	return source.Descriptor{
		ID:              id,
		BaseURL:         "http://" + id,
		ServerName:      "S",
		Kinds:           kinds,
		SearchTimeout:   50 * time.Millisecond,
		ExtendedTimeout: 80 * time.Millisecond,
	}
}

func mustRegistry(t *testing.T, descs ...source.Descriptor) source.Registry {
	t.Helper()
	reg, err := source.NewRegistry(descs...)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	return reg
}

func newTestAggregator(t *testing.T, reg source.Registry, l Lister, clock cache.Clock, obs Observer) (*Aggregator, *cache.Store) {
	t.Helper()
	store := cache.New(cache.Options{Clock: clock, Logger: logging.NewNop()})
	return New(Options{Registry: reg, Lister: l, Cache: store, Logger: logging.NewNop(), Observer: obs}), store
}

func named(names ...string) []domain.Listing {
	out := make([]domain.Listing, 0, len(names))
	for _, n := range names {
		out = append(out, domain.Listing{Name: n, Kind: domain.KindMovie, TargetURL: "http://x/" + n})
	}
	return out
}

func TestSearchAll_KindFilterAndOrder(t *testing.T) {
	reg := mustRegistry(t,
		desc("a", domain.KindMovie),
		desc("anime", domain.KindAnime),
		desc("b", domain.KindMovie, domain.KindSeries),
	)
	l := newFakeLister()
	l.query = func(_ context.Context, src source.Descriptor, q string) ([]domain.Listing, error) {
		if src.ID == "a" {
			time.Sleep(20 * time.Millisecond) // 完成顺序不影响合并顺序
		}
		return named(src.ID + "-" + q), nil
	}
	agg, _ := newTestAggregator(t, reg, l, &fakeClock{now: time.Now()}, nil)

	got := agg.SearchAll(t.Context(), "inception", domain.KindMovie)
	if len(got) != 2 {
		t.Fatalf("期望 2 条，实际 %+v", got)
	}
	if got[0].SourceID != "a" || got[1].SourceID != "b" {
		t.Fatalf("应按注册顺序合并并附加 SourceID：%+v", got)
	}
	if l.queryCount("anime") != 0 {
		t.Fatalf("不支持 movie 的来源不应被查询")
	}
}

func TestSearchAll_TimeoutIsolated(t *testing.T) {
	reg := mustRegistry(t, desc("slow", domain.KindMovie), desc("fast", domain.KindMovie))
	l := newFakeLister()
	l.query = func(ctx context.Context, src source.Descriptor, _ string) ([]domain.Listing, error) {
		if src.ID == "slow" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return named("one", "two"), nil
	}
	obs := &recordingObserver{}
	agg, _ := newTestAggregator(t, reg, l, &fakeClock{now: time.Now()}, obs)

	got := agg.SearchAll(t.Context(), "x", domain.KindMovie)
	if len(got) != 2 || got[0].SourceID != "fast" {
		t.Fatalf("慢来源不应影响快来源：%+v", got)
	}
	if len(obs.passes) != 1 {
		t.Fatalf("有结果时不应进入扩展阶段：%v", obs.passes)
	}
	var slowErr error
	for _, ev := range obs.events {
		if ev.SourceID == "slow" {
			slowErr = ev.Err
		}
	}
	if !errors.Is(slowErr, context.DeadlineExceeded) {
		t.Fatalf("慢来源应以超时结束，实际 %v", slowErr)
	}
}

func TestSearchAll_ExactlyOneExtendedPass(t *testing.T) {
	reg := mustRegistry(t, desc("a", domain.KindMovie), desc("b", domain.KindMovie))
	l := newFakeLister()
	l.query = func(context.Context, source.Descriptor, string) ([]domain.Listing, error) {
		return nil, nil
	}
	obs := &recordingObserver{}
	agg, _ := newTestAggregator(t, reg, l, &fakeClock{now: time.Now()}, obs)

	if got := agg.SearchAll(t.Context(), "nothing", domain.KindMovie); len(got) != 0 {
		t.Fatalf("期望空结果，实际 %+v", got)
	}
	if len(obs.passes) != 2 || obs.passes[0] != PassStandard || obs.passes[1] != PassExtended {
		t.Fatalf("期望恰好一次扩展阶段：%v", obs.passes)
	}
	if l.queryCount("a") != 2 || l.queryCount("b") != 2 {
		t.Fatalf("每个来源应恰好请求 2 次：a=%d b=%d", l.queryCount("a"), l.queryCount("b"))
	}
}

func TestSearchAll_ExtendedPassUsesLongerBudget(t *testing.T) {
	reg := mustRegistry(t, desc("a", domain.KindMovie))
	l := newFakeLister()
	l.query = func(ctx context.Context, _ source.Descriptor, _ string) ([]domain.Listing, error) {
		dl, _ := ctx.Deadline()
		if time.Until(dl) > 60*time.Millisecond {
			return named("found"), nil
		}
		return nil, nil
	}
	agg, _ := newTestAggregator(t, reg, l, &fakeClock{now: time.Now()}, nil)

	got := agg.SearchAll(t.Context(), "q", domain.KindMovie)
	if len(got) != 1 || got[0].Name != "found" {
		t.Fatalf("扩展阶段应使用更长预算并返回结果：%+v", got)
	}
}

func TestSearchAll_EmptyQueryNoExtendedPass(t *testing.T) {
	reg := mustRegistry(t, desc("a", domain.KindMovie))
	l := newFakeLister()
	l.category = func(context.Context, source.Descriptor, string) ([]domain.Listing, error) { return nil, nil }
	obs := &recordingObserver{}
	agg, _ := newTestAggregator(t, reg, l, &fakeClock{now: time.Now()}, obs)

	agg.SearchAll(t.Context(), "", domain.KindMovie)
	if len(obs.passes) != 1 {
		t.Fatalf("空查询不应进入扩展阶段：%v", obs.passes)
	}
}

func TestSearchAll_FreshCacheSkipsFetch(t *testing.T) {
	reg := mustRegistry(t, desc("a", domain.KindMovie))
	l := newFakeLister()
	l.query = func(context.Context, source.Descriptor, string) ([]domain.Listing, error) {
		return named("hit"), nil
	}
	clock := &fakeClock{now: time.Now()}
	agg, _ := newTestAggregator(t, reg, l, clock, nil)

	agg.SearchAll(t.Context(), "q", domain.KindMovie)
	clock.Advance(11 * time.Hour)
	got := agg.SearchAll(t.Context(), "q", domain.KindMovie)
	if len(got) != 1 || got[0].SourceID != "a" {
		t.Fatalf("缓存命中结果错误：%+v", got)
	}
	if l.queryCount("a") != 1 {
		t.Fatalf("新鲜缓存不应触发请求，实际请求 %d 次", l.queryCount("a"))
	}
}

func TestSearchAll_StaleFallbackOnFailure(t *testing.T) {
	reg := mustRegistry(t, desc("a", domain.KindMovie))
	l := newFakeLister()
	fail := false
	l.query = func(context.Context, source.Descriptor, string) ([]domain.Listing, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return named("old"), nil
	}
	clock := &fakeClock{now: time.Now()}
	obs := &recordingObserver{}
	agg, _ := newTestAggregator(t, reg, l, clock, obs)

	agg.SearchAll(t.Context(), "q", domain.KindMovie)
	clock.Advance(13 * time.Hour)
	fail = true
	got := agg.SearchAll(t.Context(), "q", domain.KindMovie)
	if len(got) != 1 || got[0].Name != "old" {
		t.Fatalf("失败时应降级为过期缓存：%+v", got)
	}
	last := obs.events[len(obs.events)-1]
	if last.Cache != CacheStale {
		t.Fatalf("期望 stale 事件，实际 %+v", last)
	}
}

func TestSearchAll_AllSourcesFail(t *testing.T) {
	reg := mustRegistry(t, desc("a", domain.KindMovie), desc("b", domain.KindMovie))
	l := newFakeLister()
	l.query = func(context.Context, source.Descriptor, string) ([]domain.Listing, error) {
		return nil, errors.New("down")
	}
	agg, _ := newTestAggregator(t, reg, l, &fakeClock{now: time.Now()}, nil)

	got := agg.SearchAll(t.Context(), "q", domain.KindMovie)
	if got == nil || len(got) != 0 {
		t.Fatalf("全部失败应返回空切片，实际 %#v", got)
	}
}

func TestBrowse_PartialFailureAndTruncate(t *testing.T) {
	d := desc("a", domain.KindMovie)
	d.MainPages = []source.MainPage{{Path: "p1/", Label: "one"}, {Path: "bad/", Label: "bad"}, {Path: "p2/", Label: "two"}}
	reg := mustRegistry(t, d)

	l := newFakeLister()
	l.category = func(_ context.Context, _ source.Descriptor, path string) ([]domain.Listing, error) {
		if path == "bad/" {
			return nil, errors.New("502")
		}
		var names []string
		for i := 0; i < 30; i++ {
			names = append(names, fmt.Sprintf("%s-%02d", path, i))
		}
		return named(names...), nil
	}
	agg, _ := newTestAggregator(t, reg, l, &fakeClock{now: time.Now()}, nil)

	got := agg.SearchAll(t.Context(), "", domain.KindMovie)
	if len(got) != CategoryLimit {
		t.Fatalf("期望截断到 %d，实际 %d", CategoryLimit, len(got))
	}
	if got[0].Name != "p1/-00" || got[30].Name != "p2/-00" {
		t.Fatalf("应按分类顺序合并：%s / %s", got[0].Name, got[30].Name)
	}
}

func TestBrowse_AllPagesFail(t *testing.T) {
	d := desc("a", domain.KindMovie)
	d.MainPages = []source.MainPage{{Path: "x/"}, {Path: "y/"}}
	reg := mustRegistry(t, d)

	l := newFakeLister()
	l.category = func(context.Context, source.Descriptor, string) ([]domain.Listing, error) {
		return nil, errors.New("down")
	}
	obs := &recordingObserver{}
	agg, _ := newTestAggregator(t, reg, l, &fakeClock{now: time.Now()}, obs)

	if got := agg.SearchAll(t.Context(), "", domain.KindMovie); len(got) != 0 {
		t.Fatalf("期望空结果：%+v", got)
	}
	if len(obs.events) != 1 || obs.events[0].Err == nil || obs.events[0].Cache != CacheNone {
		t.Fatalf("全部分类失败应视为来源失败：%+v", obs.events)
	}
}
