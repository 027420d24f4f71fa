package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// IDForm 区分外部标识符的三种形态。
type IDForm int

const (
	// IDCanonical：tt1375666
	IDCanonical IDForm = iota + 1
	// IDEpisode：tt1375666:1:2（season:episode）
	IDEpisode
	// IDSource：dhakaflix14:http://host/path（来源 id + 已知 URL）
	IDSource
)

// ExternalID 是解析后的外部标识符。
type ExternalID struct {
	Raw  string
	Form IDForm

	Canonical string // IDCanonical / IDEpisode
	Season    int    // IDEpisode
	Episode   int    // IDEpisode

	SourceID string // IDSource
	URL      string // IDSource
}

var (
	canonicalRE = regexp.MustCompile(`^tt\d+$`)
	episodeRE   = regexp.MustCompile(`^(tt\d+):(\d+):(\d+)$`)
)

// ParseExternalID 按 canonical > episode > source 的顺序识别外部标识符。
// source 形态只做语法拆分；来源 id 是否存在由上层校验。
func ParseExternalID(raw string) (ExternalID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ExternalID{}, fmt.Errorf("id 不能为空")
	}
	if canonicalRE.MatchString(raw) {
		return ExternalID{Raw: raw, Form: IDCanonical, Canonical: raw}, nil
	}
	if m := episodeRE.FindStringSubmatch(raw); m != nil {
		season, _ := strconv.Atoi(m[2])
		episode, _ := strconv.Atoi(m[3])
		return ExternalID{Raw: raw, Form: IDEpisode, Canonical: m[1], Season: season, Episode: episode}, nil
	}
	sourceID, url, ok := strings.Cut(raw, ":")
	if !ok || strings.TrimSpace(sourceID) == "" || strings.TrimSpace(url) == "" {
		return ExternalID{}, fmt.Errorf("无法识别的 id：%q", raw)
	}
	return ExternalID{Raw: raw, Form: IDSource, SourceID: sourceID, URL: url}, nil
}

// SourceItemID 拼出 IDSource 形态的标识符。
func SourceItemID(sourceID, url string) string {
	return sourceID + ":" + url
}
