package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/dhakaflix/internal/meta"
	"github.com/John-Robertt/dhakaflix/internal/search"
)

var _ search.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的搜索进度输出。
//
// 约束：
// - 只写 stderr（或 fallback 到 stdout 终端），不污染 stdout 的 JSON 输出
// - 事件来自多个 goroutine，所有状态都在 mu 下修改
// - keepalive：某个阶段长时间没有来源完成时定期输出一行
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	passStarted time.Time
	lastPrinted time.Time

	pass  search.Pass
	total int
	done  int
	hits  int
	fail  int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 4 * time.Second,
		tickerInterval:     time.Second,
	}
}

func (p *progressUI) OnPassStart(pass search.Pass, query string, sources int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTickerLocked()
	now := time.Now()
	p.pass = pass
	p.total = sources
	p.done, p.hits, p.fail = 0, 0, 0
	p.passStarted = now

	q := query
	if strings.TrimSpace(q) == "" {
		q = "(浏览分类)"
	}
	fmt.Fprintf(p.w, "[%s] 搜索 %s: query=%q sources=%d\n", now.Format("15:04:05"), pass, truncate(q, 80), sources)
	p.lastPrinted = now

	if sources > 0 {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnSourceDone(ev search.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if ev.Err != nil && ev.Cache != search.CacheStale {
		p.fail++
	} else {
		p.hits += ev.Count
	}

	status := "OK"
	switch {
	case ev.Cache == search.CacheFresh:
		status = "CACHE"
	case ev.Cache == search.CacheStale:
		status = "STALE"
	case ev.Err != nil:
		status = "FAIL"
	}

	line := fmt.Sprintf("  [%d/%d] %s %s results=%d (%s)", p.done, p.total, ev.SourceID, status, ev.Count, formatShortDuration(ev.Duration))
	if ev.Err != nil {
		line += ": " + truncate(ev.Err.Error(), 120)
	}
	fmt.Fprintln(p.w, line)
	p.lastPrinted = time.Now()

	if p.done >= p.total {
		fmt.Fprintf(p.w, "  %s 完成: results=%d failed=%d elapsed=%s\n", p.pass, p.hits, p.fail, formatElapsed(time.Since(p.passStarted)))
		p.stopTickerLocked()
	}
}

func (p *progressUI) startTickerLocked() {
	stop := make(chan struct{})
	p.stopCh = stop
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 4 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done < p.total && time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "  等待中: done=%d/%d elapsed=%s\n", p.done, p.total, formatElapsed(time.Since(p.passStarted)))
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func (p *progressUI) stopTickerLocked() {
	if !p.tickerStarted {
		return
	}
	close(p.stopCh)
	p.tickerStarted = false
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

// formatAttemptChain 把元数据尝试链路压成一行：provider:stage[:error]。
func formatAttemptChain(attempts []meta.Attempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		s := a.Provider + ":" + a.Stage
		if a.Err != nil {
			s += ":" + truncate(a.Err.Error(), 80)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ";")
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
