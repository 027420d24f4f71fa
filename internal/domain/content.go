package domain

// ContentType 区分 ResolvedContent 的两个变体。
type ContentType string

const (
	ContentMovie  ContentType = "movie"
	ContentSeries ContentType = "series"
)

// ResolvedContent 是对某个候选 URL 解析后的可播放内容（tagged union）。
//
// - Type==ContentMovie：VideoFiles 非空，Episodes 为空
// - Type==ContentSeries：Episodes 非空，VideoFiles 为空
type ResolvedContent struct {
	Type       ContentType
	Name       string
	PosterURL  string // 缺失时为空串
	VideoFiles []VideoFile
	Episodes   []Episode
}

type VideoFile struct {
	Name         string
	URL          string
	HasDualAudio bool
	HasSubtitles bool
}

// Episode 的 Episode 序号在所属 season 内从 1 开始，按页面出现顺序分配。
type Episode struct {
	Name    string
	Season  int
	Episode int
	URL     string
}

// Empty 表示没有任何可播放条目。
func (c *ResolvedContent) Empty() bool {
	return c == nil || (len(c.VideoFiles) == 0 && len(c.Episodes) == 0)
}

// FindEpisode 在剧集内容中定位 SxxEyy。
func (c *ResolvedContent) FindEpisode(season, episode int) (Episode, bool) {
	if c == nil {
		return Episode{}, false
	}
	for _, ep := range c.Episodes {
		if ep.Season == season && ep.Episode == episode {
			return ep, true
		}
	}
	return Episode{}, false
}
