package match

import (
	"regexp"
	"strconv"
	"strings"
)

// TitleYear 是从文件名/目录名中提取出的标题与年份（Year==0 表示未知）。
type TitleYear struct {
	Title string
	Year  int
}

var (
	// (a) Title (YYYY)
	parenYearRE = regexp.MustCompile(`^(.*?\S)\s*\(((?:19|20)\d{2})\)`)
	// (b) 4 位年份候选；边界在 isYearBoundary 中检查
	bareYearRE = regexp.MustCompile(`(?:19|20)\d{2}`)
	// (c) 分隔符或清晰度/编码标记
	cutRE = regexp.MustCompile(`(?i)\(|\[| - |[\s._-](?:480p|576p|720p|1080p|2160p|4k|uhd|x264|x265|h\.?264|h\.?265|hevc|web-?dl|webrip|bluray|blu-ray|brrip|bdrip|hdrip|dvdrip|hdtv)(?:$|[\s._\-\])])`)

	videoExtRE = regexp.MustCompile(`(?i)\.(mkv|mp4|avi|webm)$`)
)

// ExtractTitleYear 按固定优先级从名称中提取标题与年份：
//
// (a) "Title (YYYY)"
// (b) 第一个合理年份（1900–2099），标题取其之前的文本
// (c) 括号/方括号/" - " 或清晰度/编码标记之前的文本
// (d) 去掉视频扩展名后的整个名称
//
// 总是返回非空 Title（除非输入本身为空）；点与下划线视为空格。
func ExtractTitleYear(name string) TitleYear {
	return extractTitleYear(name, nil)
}

// extractTitleYear 同 ExtractTitleYear；partOfTitle 返回 true 的年份视为标题的一部分，
// 继续向后寻找下一个年份（例如 "Blade.Runner.2049.2017"）。
func extractTitleYear(name string, partOfTitle func(year int) bool) TitleYear {
	base := strings.TrimRight(strings.TrimSpace(name), "/")
	base = videoExtRE.ReplaceAllString(base, "")
	inTitle := func(year int) bool { return partOfTitle != nil && partOfTitle(year) }

	if m := parenYearRE.FindStringSubmatch(base); m != nil && !inTitle(atoi(m[2])) {
		if t := cleanTitle(m[1]); t != "" {
			return TitleYear{Title: t, Year: atoi(m[2])}
		}
	}

	for _, loc := range bareYearRE.FindAllStringIndex(base, -1) {
		if !isYearBoundary(base, loc[0]-1) || !isYearBoundary(base, loc[1]) {
			continue
		}
		year := atoi(base[loc[0]:loc[1]])
		if inTitle(year) {
			continue
		}
		if t := cleanTitle(base[:loc[0]]); t != "" {
			return TitleYear{Title: t, Year: year}
		}
	}

	if loc := cutRE.FindStringIndex(base); loc != nil {
		if t := cleanTitle(base[:loc[0]]); t != "" {
			return TitleYear{Title: t}
		}
	}

	return TitleYear{Title: cleanTitle(base)}
}

// isYearBoundary：i 越界或 base[i] 是分隔符。
func isYearBoundary(base string, i int) bool {
	if i < 0 || i >= len(base) {
		return true
	}
	return strings.IndexByte(" ._-[]()", base[i]) >= 0
}

func cleanTitle(s string) string {
	s = strings.NewReplacer(".", " ", "_", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " -([")
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
