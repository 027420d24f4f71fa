package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/dhakaflix/internal/logging"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
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

type entry struct {
	Name string
	URL  string
}

func TestStore_PutThenGetIsFresh(t *testing.T) {
	clk := newFakeClock()
	s := New(Options{Clock: clk})

	if err := s.Put(NamespaceSearch, "src:q", []entry{{Name: "a", URL: "http://x/a"}}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	var got []entry
	found, fresh := s.Get(NamespaceSearch, "src:q", &got)
	if !found || !fresh {
		t.Fatalf("期望 found=true fresh=true，实际 found=%v fresh=%v", found, fresh)
	}
	if len(got) != 1 || got[0].Name != "a" {
		t.Fatalf("值不一致：%+v", got)
	}
}

func TestStore_ExpiresAtTTLButStaysReadable(t *testing.T) {
	clk := newFakeClock()
	s := New(Options{Clock: clk})
	_ = s.Put(NamespaceSearch, "k", "v")

	clk.Advance(DefaultSearchTTL - time.Nanosecond)
	var v string
	if _, fresh := s.Get(NamespaceSearch, "k", &v); !fresh {
		t.Fatalf("TTL 之前应仍然新鲜")
	}

	clk.Advance(time.Nanosecond)
	found, fresh := s.Get(NamespaceSearch, "k", &v)
	if !found {
		t.Fatalf("过期条目在 Sweep 之前必须可读（stale）")
	}
	if fresh {
		t.Fatalf("age ≥ TTL 时 fresh 必须为 false")
	}
	if v != "v" {
		t.Fatalf("stale 值不一致：%q", v)
	}
}

func TestStore_NamespaceTTLsDiffer(t *testing.T) {
	clk := newFakeClock()
	s := New(Options{Clock: clk})
	_ = s.Put(NamespaceSearch, "k", 1)
	_ = s.Put(NamespaceStream, "k", 2)

	clk.Advance(13 * time.Hour)

	var n int
	if _, fresh := s.Get(NamespaceSearch, "k", &n); fresh {
		t.Fatalf("search 12h 后应过期")
	}
	if _, fresh := s.Get(NamespaceStream, "k", &n); !fresh {
		t.Fatalf("stream 24h 内应仍然新鲜")
	}
	if n != 2 {
		t.Fatalf("namespace 之间不应串值：%d", n)
	}
}

func TestStore_SweepRemovesOnlyExpired(t *testing.T) {
	clk := newFakeClock()
	s := New(Options{Clock: clk})
	_ = s.Put(NamespaceSearch, "old", "x")
	clk.Advance(11 * time.Hour)
	_ = s.Put(NamespaceSearch, "new", "y")
	_ = s.Put(NamespaceStream, "stream-old", "z")
	clk.Advance(2 * time.Hour)

	removed, err := s.Sweep()
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if removed != 1 {
		t.Fatalf("期望删除 1 条，实际 %d", removed)
	}

	var v string
	if found, _ := s.Get(NamespaceSearch, "old", &v); found {
		t.Fatalf("过期条目应被删除")
	}
	if found, fresh := s.Get(NamespaceSearch, "new", &v); !found || !fresh {
		t.Fatalf("新鲜条目不应被 Sweep 触碰")
	}
	if found, fresh := s.Get(NamespaceStream, "stream-old", &v); !found || !fresh {
		t.Fatalf("stream 条目仍在 TTL 内，不应被删除")
	}
}

func TestStore_SweepLogsSummary(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	clk := newFakeClock()
	s := New(Options{Clock: clk, Logger: logger})
	_ = s.Put(NamespaceSearch, "old", "x")
	clk.Advance(13 * time.Hour)
	if _, err := s.Sweep(); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("输出不是 JSON：%v（%q）", err, buf.String())
	}
	if m["msg"] != "cache sweep done" || m["component"] != "cache" || m["removed"] != float64(1) {
		t.Fatalf("日志字段不符合预期：%v", m)
	}
}

// rewriteDuringRange 在遍历结束、删除开始之前执行 afterRange，模拟并发写入。
type rewriteDuringRange struct {
	Backend
	afterRange func()
}

func (b *rewriteDuringRange) Range(fn func(key string, rec Record) bool) error {
	err := b.Backend.Range(fn)
	if b.afterRange != nil {
		b.afterRange()
	}
	return err
}

func TestStore_SweepKeepsEntryRewrittenAfterScan(t *testing.T) {
	clk := newFakeClock()
	backend := &rewriteDuringRange{Backend: NewMemoryBackend()}
	s := New(Options{Clock: clk, Backend: backend})
	_ = s.Put(NamespaceSearch, "k", "old")
	_ = s.Put(NamespaceSearch, "gone", "old")
	clk.Advance(DefaultSearchTTL + time.Minute)

	backend.afterRange = func() {
		if err := s.Put(NamespaceSearch, "k", "new"); err != nil {
			t.Errorf("不期望错误：%v", err)
		}
	}

	removed, err := s.Sweep()
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if removed != 1 {
		t.Fatalf("期望只删除 1 条，实际 %d", removed)
	}

	var v string
	found, fresh := s.Get(NamespaceSearch, "k", &v)
	if !found || !fresh || v != "new" {
		t.Fatalf("遍历后重新写入的条目不应被删除：found=%v fresh=%v v=%q", found, fresh, v)
	}
	if found, _ := s.Get(NamespaceSearch, "gone", &v); found {
		t.Fatalf("过期条目应被删除")
	}
}

func TestStore_OverwriteRefreshesTimestamp(t *testing.T) {
	clk := newFakeClock()
	s := New(Options{Clock: clk})
	_ = s.Put(NamespaceStream, "tt1", "a")
	clk.Advance(25 * time.Hour)
	_ = s.Put(NamespaceStream, "tt1", "b")

	var v string
	found, fresh := s.Get(NamespaceStream, "tt1", &v)
	if !found || !fresh || v != "b" {
		t.Fatalf("覆盖后应新鲜且为新值：found=%v fresh=%v v=%q", found, fresh, v)
	}
}

func TestStore_CustomTTL(t *testing.T) {
	clk := newFakeClock()
	s := New(Options{Clock: clk, TTL: map[Namespace]time.Duration{NamespaceSearch: time.Minute}})
	_ = s.Put(NamespaceSearch, "k", "v")
	clk.Advance(time.Minute)
	var v string
	if _, fresh := s.Get(NamespaceSearch, "k", &v); fresh {
		t.Fatalf("自定义 TTL 未生效")
	}
}

func TestTyped_ValueIsCopied(t *testing.T) {
	s := New(Options{Clock: newFakeClock()})
	tc := NewTyped[[]entry](s, NamespaceStream)

	in := []entry{{Name: "a"}}
	_ = tc.Put("k", in)
	in[0].Name = "mutated"

	got, fresh, ok := tc.Get("k")
	if !ok || !fresh {
		t.Fatalf("期望命中")
	}
	if got[0].Name != "a" {
		t.Fatalf("缓存应按值保存，实际 %q", got[0].Name)
	}

	if _, _, ok := tc.Get("missing"); ok {
		t.Fatalf("不存在的 key 不应命中")
	}
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	s := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, time.Millisecond, time.Millisecond)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("RunSweeper 未在 ctx 取消后退出")
	}
}
