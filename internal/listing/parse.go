package listing

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// h5ai 页面前两行是表头与“上级目录”，不属于目录内容。
const headerRows = 2

var (
	videoExts  = []string{".mkv", ".mp4", ".avi", ".webm"}
	posterExts = []string{".jpg", ".jpeg", ".png"}
)

// Row 是目录索引页中的一行。
type Row struct {
	Name     string
	URL      string // 绝对 URL
	IsFolder bool
}

// IsVideo 按扩展名判断（大小写不敏感）。
func (r Row) IsVideo() bool { return IsVideoURL(r.URL) }

// IsVideoURL 判断 URL 是否指向可播放文件（mkv/mp4/avi/webm）。
func IsVideoURL(u string) bool { return hasExt(u, videoExts) }

// Folder 是一个已解析的目录页。
type Folder struct {
	URL    string
	Rows   []Row  // 页面顺序
	Poster string // 第一张图片链接；缺失为空串
}

// Videos 返回页面顺序中的视频行。
func (f Folder) Videos() []Row {
	var out []Row
	for _, r := range f.Rows {
		if !r.IsFolder && r.IsVideo() {
			out = append(out, r)
		}
	}
	return out
}

// Subfolders 返回页面顺序中的文件夹行。
func (f Folder) Subfolders() []Row {
	var out []Row
	for _, r := range f.Rows {
		if r.IsFolder {
			out = append(out, r)
		}
	}
	return out
}

// parseRows 解析 h5ai 表格；没有 href 的行被跳过。
func parseRows(html []byte, base string) ([]Row, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var rows []Row
	doc.Find("tbody > tr").Each(func(i int, tr *goquery.Selection) {
		if i < headerRows {
			return
		}
		a := tr.Find("td.fb-n > a").First()
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		abs := resolveURL(base, href)
		name := normSpace(a.Text())
		if name == "" {
			name = NameFromURL(abs)
		}
		rows = append(rows, Row{
			Name:     name,
			URL:      abs,
			IsFolder: tr.Find(`td.fb-i > img[alt="folder"]`).Length() > 0,
		})
	})
	return rows, nil
}

func posterOf(rows []Row) string {
	for _, r := range rows {
		if !r.IsFolder && hasExt(r.URL, posterExts) {
			return r.URL
		}
	}
	return ""
}

func hasExt(u string, exts []string) bool {
	p := u
	if pu, err := url.Parse(u); err == nil {
		p = pu.Path
	}
	p = strings.ToLower(p)
	for _, e := range exts {
		if strings.HasSuffix(p, e) {
			return true
		}
	}
	return false
}

// resolveURL 把站内相对链接（通常是 /DHAKA-FLIX-14/...）解析为绝对 URL。
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

// NameFromURL 取解码后路径的最后一段（忽略结尾的 /）。
func NameFromURL(u string) string {
	p := u
	if pu, err := url.Parse(u); err == nil && pu.Path != "" {
		p = pu.Path
	} else if dec, err := url.PathUnescape(u); err == nil {
		p = dec
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

// Flags 从名称推断音轨/字幕标记。
func Flags(name string) (dualAudio, subtitles bool) {
	return strings.Contains(name, "Dual"), strings.Contains(name, "ESub") || strings.Contains(name, "Sub")
}
