package domain

import (
	"fmt"
	"strings"
)

// Kind 是请求/来源声明的内容类型。
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
	KindAnime  Kind = "anime"
)

// ParseKind 解析外部传入的类型字符串（大小写不敏感）。
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMovie, KindSeries, KindAnime:
		return k, nil
	case "":
		return "", fmt.Errorf("kind 不能为空")
	default:
		return "", fmt.Errorf("未知 kind：%q（只能是 movie/series/anime）", s)
	}
}

// Accepts 判断某条 listing 的类型是否能满足请求类型。
//
// 约束：listing 只有 movie/series 两种；anime 请求两者都接受（动画电影与番剧混放）。
func (k Kind) Accepts(listing Kind) bool {
	switch k {
	case KindAnime:
		return listing == KindMovie || listing == KindSeries
	default:
		return k == listing
	}
}
