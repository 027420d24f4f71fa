package server

import (
	"github.com/John-Robertt/dhakaflix/internal/domain"
	"github.com/John-Robertt/dhakaflix/internal/source"
)

const (
	AddonID      = "org.dhakaflix.addon"
	AddonName    = "DhakaFlix"
	catalogIDPre = "dhakaflix-"
)

type Manifest struct {
	ID          string    `json:"id"`
	Version     string    `json:"version"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Resources   []string  `json:"resources"`
	Types       []string  `json:"types"`
	IDPrefixes  []string  `json:"idPrefixes"`
	Catalogs    []Catalog `json:"catalogs"`
}

type Catalog struct {
	Type  string         `json:"type"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Extra []CatalogExtra `json:"extra,omitempty"`
}

type CatalogExtra struct {
	Name       string `json:"name"`
	IsRequired bool   `json:"isRequired,omitempty"`
}

// BuildManifest 根据注册表生成 addon manifest。
//
// 约束：
// - types 与 catalogs 按来源注册顺序去重，每种类型一个 catalog
// - idPrefixes 为 "tt" 加上每个来源 id 的 "{id}:" 前缀
func BuildManifest(reg source.Registry, version string) Manifest {
	m := Manifest{
		ID:          AddonID,
		Version:     version,
		Name:        AddonName,
		Description: "Streams from DhakaFlix h5ai directory servers",
		Resources:   []string{"catalog", "meta", "stream"},
		Types:       []string{},
		IDPrefixes:  []string{"tt"},
		Catalogs:    []Catalog{},
	}

	seen := map[domain.Kind]bool{}
	for _, src := range reg.All() {
		m.IDPrefixes = append(m.IDPrefixes, src.ID+":")
		for _, k := range src.Kinds {
			if seen[k] {
				continue
			}
			seen[k] = true
			m.Types = append(m.Types, string(k))
			m.Catalogs = append(m.Catalogs, Catalog{
				Type:  string(k),
				ID:    catalogID(k),
				Name:  AddonName + " " + kindLabel(k),
				Extra: []CatalogExtra{{Name: "search"}},
			})
		}
	}
	return m
}

func catalogID(k domain.Kind) string { return catalogIDPre + string(k) }

func kindLabel(k domain.Kind) string {
	switch k {
	case domain.KindMovie:
		return "Movies"
	case domain.KindSeries:
		return "Series"
	case domain.KindAnime:
		return "Anime"
	default:
		return string(k)
	}
}
