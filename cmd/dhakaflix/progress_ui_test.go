package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/dhakaflix/internal/meta"
	"github.com/John-Robertt/dhakaflix/internal/search"
)

func TestProgressUI_PassLifecycle(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)

	p.OnPassStart(search.PassStandard, "inception", 2)
	p.OnSourceDone(search.Event{Pass: search.PassStandard, SourceID: "a", Count: 3, Cache: search.CacheMiss, Duration: 1500 * time.Millisecond})
	p.OnSourceDone(search.Event{Pass: search.PassStandard, SourceID: "b", Cache: search.CacheNone, Err: errors.New("timeout")})

	out := buf.String()
	for _, want := range []string{"standard", "[1/2] a OK results=3 (1.5s)", "[2/2] b FAIL", "timeout", "results=3 failed=1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("输出缺少 %q：\n%s", want, out)
		}
	}

	p.mu.Lock()
	started := p.tickerStarted
	p.mu.Unlock()
	if started {
		t.Fatalf("阶段结束后 ticker 应已停止")
	}
}

func TestProgressUI_StaleIsNotFailure(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)

	p.OnPassStart(search.PassExtended, "", 1)
	p.OnSourceDone(search.Event{SourceID: "a", Count: 2, Cache: search.CacheStale, Err: errors.New("boom")})

	out := buf.String()
	if !strings.Contains(out, "(浏览分类)") || !strings.Contains(out, "STALE") || !strings.Contains(out, "failed=0") {
		t.Fatalf("输出不符合预期：\n%s", out)
	}
}

func TestFormatAttemptChain(t *testing.T) {
	got := formatAttemptChain([]meta.Attempt{
		{Provider: "cinemeta", Stage: "fetch", Err: errors.New("HTTP 503")},
		{Provider: "tmdb", Stage: "ok"},
	})
	if got != "cinemeta:fetch:HTTP 503;tmdb:ok" {
		t.Fatalf("chain=%q", got)
	}
}

func TestFormatProxy(t *testing.T) {
	if got := formatProxy(""); got != "off" {
		t.Fatalf("got=%q", got)
	}
	if got := formatProxy("http://u:p@proxy:8080"); got != "on (http://proxy:8080, auth=on)" {
		t.Fatalf("got=%q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 6); got != "abc..." {
		t.Fatalf("got=%q", got)
	}
	if got := truncate("abc", 6); got != "abc" {
		t.Fatalf("got=%q", got)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"#", "Name"}, [][]string{{"1", "Inception"}, {"2"}}, []columnAlignment{alignRight})
	if !strings.Contains(out, "Inception") || !strings.Contains(out, "NAME") && !strings.Contains(out, "Name") {
		t.Fatalf("表格输出不符合预期：\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatalf("无列时应返回空串")
	}
}
