package domain

// Stream 是最终对外输出的一条可播放地址。
type Stream struct {
	Name  string `json:"name,omitempty"` // 来源展示名
	Title string `json:"title"`
	URL   string `json:"url"`
}

// CanonicalMeta 是外部元数据服务给出的“标准标题 + 年份”。
// Year 为 0 表示未知。
type CanonicalMeta struct {
	ID   string
	Name string
	Year int
}

// MetaObject 是 GetMeta 的输出（addon meta 响应中的 meta 字段）。
type MetaObject struct {
	ID     string      `json:"id"`
	Type   Kind        `json:"type"`
	Name   string      `json:"name"`
	Poster string      `json:"poster,omitempty"`
	Videos []MetaVideo `json:"videos,omitempty"`
}

type MetaVideo struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
}

// MetaPreview 是 catalog 列表中的一条预览。
type MetaPreview struct {
	ID     string `json:"id"`
	Type   Kind   `json:"type"`
	Name   string `json:"name"`
	Poster string `json:"poster,omitempty"`
}
