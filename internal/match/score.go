package match

import (
	"sort"
	"strconv"
	"strings"

	"github.com/John-Robertt/dhakaflix/internal/domain"
)

const (
	containsPoints  = 10
	exactPoints     = 5
	yearPoints      = 10
	nearYearPoints  = 3
	maxYearDistance = 1
)

// Score 计算候选名称与规范标题的匹配分数（纯函数，无 I/O）。
//
// 规则（累加）：
// - 标准化后互相包含 +10，否则直接 0（不合格）
// - 完全相等再 +5
// - 年份相同 +10，相差 1 年 +3
// - 两侧年份都已知且相差超过 1 年：不合格（0）
//
// candidateYear==0 时从候选名称中提取年份；canonicalYear==0 表示未知。
// 规范标题中本身含有的年份词（如 "Blade Runner 2049"）不当作候选年份。
func Score(candidateName, canonicalTitle string, candidateYear, canonicalYear int) int {
	canon := Normalize(canonicalTitle)
	titleYears := map[string]bool{}
	for _, tok := range strings.Fields(canon) {
		titleYears[tok] = true
	}
	ty := extractTitleYear(candidateName, func(year int) bool {
		return titleYears[strconv.Itoa(year)]
	})
	if candidateYear == 0 {
		candidateYear = ty.Year
	}

	cand := Normalize(ty.Title)
	if cand == "" || canon == "" {
		return 0
	}
	if !strings.Contains(cand, canon) && !strings.Contains(canon, cand) {
		return 0
	}

	score := containsPoints
	if cand == canon {
		score += exactPoints
	}

	if candidateYear > 0 && canonicalYear > 0 {
		switch d := abs(candidateYear - canonicalYear); {
		case d == 0:
			score += yearPoints
		case d <= maxYearDistance:
			score += nearYearPoints
		default:
			return 0
		}
	}
	return score
}

// Rank 为每个 listing 评分，只保留分数 > 0 的候选；按分数降序稳定排序。
func Rank(listings []domain.Listing, title string, year int) []domain.MatchCandidate {
	out := make([]domain.MatchCandidate, 0, len(listings))
	for _, l := range listings {
		s := Score(l.Name, title, 0, year)
		if s <= 0 {
			continue
		}
		out = append(out, domain.MatchCandidate{Listing: l, Score: s})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Simplify 返回简化后的标题：冒号之前的文本，否则前两个单词。
// 结果与原标题相同（或为空）时返回 false。
func Simplify(title string) (string, bool) {
	title = strings.TrimSpace(title)
	var s string
	if i := strings.Index(title, ":"); i >= 0 {
		s = strings.TrimSpace(title[:i])
	}
	if s == "" {
		words := strings.Fields(title)
		if len(words) > 2 {
			words = words[:2]
		}
		s = strings.Join(words, " ")
	}
	if s == "" || s == title {
		return "", false
	}
	return s, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
