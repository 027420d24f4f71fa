package source

import (
	"net/url"
	"strings"
	"time"

	"github.com/John-Robertt/dhakaflix/internal/domain"
)

const (
	DefaultSearchTimeout   = 5 * time.Second
	DefaultExtendedTimeout = 10 * time.Second
	DefaultLoadTimeout     = 15 * time.Second
)

// MainPage 是来源首页上的一个分类目录（path 相对于 /{ServerName}/）。
type MainPage struct {
	Path  string
	Label string
}

// Descriptor 描述一个目录索引站点（h5ai 风格）。
//
// 约束：
// - 加载后只读；Registry 返回的是值拷贝，切片不允许被调用方修改
// - SeriesKeywords 按声明顺序匹配（大小写不敏感的子串匹配，作用于 URL 而不是名称）
// - 超时为 0 时使用包级默认值
type Descriptor struct {
	ID             string
	BaseURL        string // 例如 http://172.16.50.14
	ServerName     string // 例如 DHAKA-FLIX-14
	DisplayName    string
	Kinds          []domain.Kind
	SeriesKeywords []string
	MainPages      []MainPage

	SearchTimeout   time.Duration
	ExtendedTimeout time.Duration
	LoadTimeout     time.Duration
}

// Supports 判断来源是否声明支持某种类型。
func (d Descriptor) Supports(k domain.Kind) bool {
	for _, s := range d.Kinds {
		if s == k {
			return true
		}
	}
	return false
}

// IsSeriesURL 判断 URL 是否包含任一剧集关键字（编码与解码两种形式都比较）。
func (d Descriptor) IsSeriesURL(u string) bool {
	if ContainsAny(u, d.SeriesKeywords) {
		return true
	}
	decoded := make([]string, 0, len(d.SeriesKeywords))
	for _, k := range d.SeriesKeywords {
		decoded = append(decoded, unescape(k))
	}
	return ContainsAny(unescape(u), decoded)
}

func unescape(s string) string {
	if d, err := url.PathUnescape(s); err == nil {
		return d
	}
	return s
}

// Root 返回来源根目录 URL：{BaseURL}/{ServerName}/。
func (d Descriptor) Root() string {
	return strings.TrimRight(d.BaseURL, "/") + "/" + strings.Trim(d.ServerName, "/") + "/"
}

func (d Descriptor) SearchBudget() time.Duration {
	return orDefault(d.SearchTimeout, DefaultSearchTimeout)
}

func (d Descriptor) ExtendedBudget() time.Duration {
	return orDefault(d.ExtendedTimeout, DefaultExtendedTimeout)
}

func (d Descriptor) LoadBudget() time.Duration {
	return orDefault(d.LoadTimeout, DefaultLoadTimeout)
}

func orDefault(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

// ContainsAny 做大小写不敏感的子串匹配；keywords 为空时返回 false。
func ContainsAny(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func (d Descriptor) clone() Descriptor {
	d.Kinds = append([]domain.Kind(nil), d.Kinds...)
	d.SeriesKeywords = append([]string(nil), d.SeriesKeywords...)
	d.MainPages = append([]MainPage(nil), d.MainPages...)
	return d
}
