package source

import (
	"time"

	"github.com/John-Robertt/dhakaflix/internal/domain"
)

// Builtin 返回内置的 DhakaFlix 来源表（BDIX 内网 h5ai 服务器）。
//
// dhakaflix12 目录最大、响应最慢，使用更长的一组超时。
func Builtin() []Descriptor {
	return []Descriptor{
		{
			ID:             "dhakaflix14",
			BaseURL:        "http://172.16.50.14",
			ServerName:     "DHAKA-FLIX-14",
			DisplayName:    "(BDIX) DhakaFlix 14",
			Kinds:          []domain.Kind{domain.KindMovie, domain.KindSeries},
			SeriesKeywords: []string{"KOREAN%20TV%20%26%20WEB%20Series"},
			MainPages: []MainPage{
				{Path: "Animation Movies (1080p)/", Label: "Animation Movies"},
				{Path: "English Movies (1080p)/(2024) 1080p/", Label: "English Movies"},
				{Path: "Hindi Movies/(2024)/", Label: "Hindi Movies"},
				{Path: "IMDb Top-250 Movies/", Label: "IMDb Top-250 Movies"},
				{Path: "SOUTH INDIAN MOVIES/Hindi Dubbed/(2024)/", Label: "Hindi Dubbed"},
				{Path: "SOUTH INDIAN MOVIES/South Movies/2024/", Label: "South Movies"},
				{Path: "KOREAN TV %26 WEB Series/", Label: "Korean TV & WEB Series"},
			},
		},
		{
			ID:             "dhakaflix12",
			BaseURL:        "http://172.16.50.12",
			ServerName:     "DHAKA-FLIX-12",
			DisplayName:    "(BDIX) DhakaFlix 12",
			Kinds:          []domain.Kind{domain.KindSeries},
			SeriesKeywords: []string{"TV-WEB-Series"},
			MainPages: []MainPage{
				{Path: "TV-WEB-Series/TV Series ★%20 0%20 —%20 9/", Label: "TV Series ★ 0 — 9"},
				{Path: "TV-WEB-Series/TV Series ♥%20 A%20 —%20 L/", Label: "TV Series ♥ A — L"},
				{Path: "TV-WEB-Series/TV Series ♦%20 M%20 —%20 R/", Label: "TV Series ♦ M — R"},
				{Path: "TV-WEB-Series/TV Series ♦%20 S%20 —%20 Z/", Label: "TV Series ♦ S — Z"},
			},
			SearchTimeout:   10 * time.Second,
			ExtendedTimeout: 20 * time.Second,
			LoadTimeout:     25 * time.Second,
		},
		{
			ID:             "dhakaflix9",
			BaseURL:        "http://172.16.50.9",
			ServerName:     "DHAKA-FLIX-9",
			DisplayName:    "(BDIX) DhakaFlix 9",
			Kinds:          []domain.Kind{domain.KindMovie, domain.KindSeries, domain.KindAnime},
			SeriesKeywords: []string{"Awards", "WWE", "KOREAN", "Documentary", "Anime"},
			MainPages: []MainPage{
				{Path: "Anime %26 Cartoon TV Series/Anime-TV Series ♥%20 A%20 —%20 F/", Label: "Anime TV Series"},
				{Path: "KOREAN TV %26 WEB Series/", Label: "KOREAN TV & WEB Series"},
				{Path: "Documentary/", Label: "Documentary"},
				{Path: "Awards %26 TV Shows/%23 TV SPECIAL %26 SHOWS/", Label: "TV SPECIAL & SHOWS"},
				{Path: "Awards %26 TV Shows/%23 AWARDS/", Label: "Awards"},
				{Path: "WWE %26 AEW Wrestling/WWE Wrestling/", Label: "WWE Wrestling"},
				{Path: "WWE %26 AEW Wrestling/AEW Wrestling/", Label: "AEW Wrestling"},
			},
		},
		{
			ID:          "dhakaflix7",
			BaseURL:     "http://172.16.50.7",
			ServerName:  "DHAKA-FLIX-7",
			DisplayName: "(BDIX) DhakaFlix 7",
			Kinds:       []domain.Kind{domain.KindMovie},
			MainPages: []MainPage{
				{Path: "English Movies/(2024)/", Label: "English Movies"},
				{Path: "English Movies (1080p)/(2024) 1080p/", Label: "English Movies (1080p)"},
				{Path: "3D Movies/", Label: "3D Movies"},
				{Path: "Foreign Language Movies/Japanese Language/", Label: "Japanese Movies"},
				{Path: "Foreign Language Movies/Korean Language/", Label: "Korean Movies"},
				{Path: "Foreign Language Movies/Bangla Dubbing Movies/", Label: "Bangla Dubbing Movies"},
				{Path: "Foreign Language Movies/Pakistani Movie/", Label: "Pakistani Movies"},
				{Path: "Kolkata Bangla Movies/(2024)/", Label: "Kolkata Bangla Movies"},
				{Path: "Foreign Language Movies/Chinese Language/", Label: "Chinese Movies"},
			},
		},
	}
}
