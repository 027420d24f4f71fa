package search

import (
	"time"
)

// Pass 标识两阶段搜索中的阶段。
type Pass string

const (
	PassStandard Pass = "standard"
	PassExtended Pass = "extended"
)

// CacheState 描述某个来源本次结果的出处。
type CacheState string

const (
	CacheFresh CacheState = "fresh" // 命中未过期缓存，未发起请求
	CacheMiss  CacheState = "miss"  // 实际抓取成功
	CacheStale CacheState = "stale" // 抓取失败，降级为过期缓存
	CacheNone  CacheState = "none"  // 抓取失败且无缓存可用
)

// Event 是单个来源在某一阶段完成时的事件。
type Event struct {
	Pass     Pass
	SourceID string
	Query    string
	Count    int
	Cache    CacheState
	Duration time.Duration
	Err      error
}

// Observer 用于把搜索进度从核心流程中解耦出来（CLI 进度输出）。
//
// 约束：
// - search 包只负责发事件，不做任何输出
// - Observer 的实现必须并发安全：事件来自多个 goroutine
type Observer interface {
	OnPassStart(pass Pass, query string, sources int)
	OnSourceDone(ev Event)
}

type nopObserver struct{}

func (nopObserver) OnPassStart(Pass, string, int) {}
func (nopObserver) OnSourceDone(Event)            {}
