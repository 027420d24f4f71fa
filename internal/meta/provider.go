package meta

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/John-Robertt/dhakaflix/internal/domain"
)

// ErrNotFound 表示元数据服务明确没有该 id（或响应中没有可用标题）。
var ErrNotFound = errors.New("meta not found")

// Provider 把“外部元数据服务”的差异限制在 meta 包内部。
//
// 约束：
// - Lookup 不做缓存（由上层 stream 缓存兜底）
// - 没有可用标题时返回 ErrNotFound（可用 errors.Is 判断）
type Provider interface {
	Name() string
	Lookup(ctx context.Context, kind domain.Kind, id string) (domain.CanonicalMeta, error)
}

// Error 是某个 provider 的可追溯错误。
type Error struct {
	Provider string
	Stage    string // "fetch" / "decode"
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("meta provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// catalogType 把请求类型映射到元数据服务的类型（anime 按剧集查询）。
func catalogType(k domain.Kind) string {
	if k == domain.KindMovie {
		return "movie"
	}
	return "series"
}

var leadingYearRE = regexp.MustCompile(`^\s*((?:18|19|20)\d{2})`)

// yearFrom 解析 "2010" / "2011–2019" / "2010-07-16" 中的年份；无法解析为 0。
func yearFrom(s string) int {
	m := leadingYearRE.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
