package cache

import (
	"testing"
	"time"
)

func TestBadgerBackend_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	clk := newFakeClock()

	b, err := OpenBadgerBackend(dir, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	s := New(Options{Backend: b, Clock: clk})
	if err := s.Put(NamespaceStream, "tt1375666", []entry{{Name: "Inception", URL: "http://x/i.mkv"}}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("关闭失败：%v", err)
	}

	b2, err := OpenBadgerBackend(dir, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	s2 := New(Options{Backend: b2, Clock: clk})
	defer s2.Close()

	var got []entry
	found, fresh := s2.Get(NamespaceStream, "tt1375666", &got)
	if !found || !fresh {
		t.Fatalf("重启后应命中新鲜缓存：found=%v fresh=%v", found, fresh)
	}
	if len(got) != 1 || got[0].URL != "http://x/i.mkv" {
		t.Fatalf("值不一致：%+v", got)
	}

	clk.Advance(25 * time.Hour)
	removed, err := s2.Sweep()
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if removed != 1 {
		t.Fatalf("期望删除 1 条，实际 %d", removed)
	}
	if found, _ := s2.Get(NamespaceStream, "tt1375666", &got); found {
		t.Fatalf("Sweep 后不应再命中")
	}
}

func TestOpenBadgerBackend_EmptyDir(t *testing.T) {
	if _, err := OpenBadgerBackend("  ", nil); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestBadgerBackend_DeleteIfRechecksCurrentRecord(t *testing.T) {
	b, err := OpenBadgerBackend(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer b.Close()

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = b.Save("a", Record{Value: []byte("1"), InsertedAt: old})
	_ = b.Save("b", Record{Value: []byte("2"), InsertedAt: old.Add(time.Hour)})

	n, err := b.DeleteIf([]string{"a", "b", "missing"}, func(_ string, rec Record) bool {
		return !rec.InsertedAt.After(old)
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if n != 1 {
		t.Fatalf("期望删除 1 条，实际 %d", n)
	}
	if _, ok, _ := b.Load("a"); ok {
		t.Fatalf("a 应被删除")
	}
	if _, ok, _ := b.Load("b"); !ok {
		t.Fatalf("b 不满足条件，不应被删除")
	}
}
