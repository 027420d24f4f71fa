package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/John-Robertt/dhakaflix/internal/domain"
	"github.com/John-Robertt/dhakaflix/internal/source"
)

// SourceConfig 是 [[sources]] 条目。
//
// id 与内置来源相同时只覆盖非空字段；新 id 追加到末尾，必须提供 base_url/server_name/kinds。
// disabled=true 从来源表中移除该来源。
type SourceConfig struct {
	ID             string           `toml:"id"`
	Disabled       bool             `toml:"disabled"`
	BaseURL        string           `toml:"base_url"`
	ServerName     string           `toml:"server_name"`
	DisplayName    string           `toml:"display_name"`
	Kinds          []string         `toml:"kinds"`
	SeriesKeywords []string         `toml:"series_keywords"`
	MainPages      []MainPageConfig `toml:"main_pages"`

	SearchTimeout   string `toml:"search_timeout"`
	ExtendedTimeout string `toml:"extended_timeout"`
	LoadTimeout     string `toml:"load_timeout"`
}

type MainPageConfig struct {
	Path  string `toml:"path"`
	Label string `toml:"label"`
}

func mergeSources(builtin []source.Descriptor, overrides []SourceConfig) ([]source.Descriptor, error) {
	out := append([]source.Descriptor(nil), builtin...)
	index := make(map[string]int, len(out))
	for i, d := range out {
		index[strings.ToLower(d.ID)] = i
	}
	disabled := map[string]bool{}

	for _, sc := range overrides {
		id := strings.ToLower(strings.TrimSpace(sc.ID))
		if id == "" {
			return nil, fmt.Errorf("sources[].id 不能为空")
		}
		if sc.Disabled {
			disabled[id] = true
			continue
		}

		i, ok := index[id]
		if !ok {
			out = append(out, source.Descriptor{ID: id})
			i = len(out) - 1
			index[id] = i
		}
		d, err := applySource(out[i], sc)
		if err != nil {
			return nil, fmt.Errorf("sources[%s]：%w", id, err)
		}
		out[i] = d
	}

	kept := out[:0]
	for _, d := range out {
		if !disabled[strings.ToLower(d.ID)] {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("至少需要一个启用的来源")
	}

	// 借 Registry 做完整性校验（空 base_url / kinds 等）。
	if _, err := source.NewRegistry(kept...); err != nil {
		return nil, err
	}
	return kept, nil
}

func applySource(d source.Descriptor, sc SourceConfig) (source.Descriptor, error) {
	if v := strings.TrimSpace(sc.BaseURL); v != "" {
		d.BaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(sc.ServerName); v != "" {
		d.ServerName = v
	}
	if v := strings.TrimSpace(sc.DisplayName); v != "" {
		d.DisplayName = v
	}
	if len(sc.Kinds) > 0 {
		kinds := make([]domain.Kind, 0, len(sc.Kinds))
		for _, k := range sc.Kinds {
			kind, err := domain.ParseKind(k)
			if err != nil {
				return d, err
			}
			kinds = append(kinds, kind)
		}
		d.Kinds = kinds
	}
	if len(sc.SeriesKeywords) > 0 {
		d.SeriesKeywords = append([]string(nil), sc.SeriesKeywords...)
	}
	if len(sc.MainPages) > 0 {
		pages := make([]source.MainPage, 0, len(sc.MainPages))
		for _, p := range sc.MainPages {
			label := strings.TrimSpace(p.Label)
			if label == "" {
				label = strings.Trim(p.Path, "/")
			}
			pages = append(pages, source.MainPage{Path: p.Path, Label: label})
		}
		d.MainPages = pages
	}

	timeouts := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"search_timeout", sc.SearchTimeout, &d.SearchTimeout},
		{"extended_timeout", sc.ExtendedTimeout, &d.ExtendedTimeout},
		{"load_timeout", sc.LoadTimeout, &d.LoadTimeout},
	}
	for _, t := range timeouts {
		v, err := parseDuration(t.raw, *t.dst)
		if err != nil {
			return d, fmt.Errorf("%s 无效：%w", t.name, err)
		}
		*t.dst = v
	}
	return d, nil
}
