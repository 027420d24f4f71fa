package source

import (
	"fmt"
	"strings"

	"github.com/John-Robertt/dhakaflix/internal/domain"
)

// Registry 是来源的只读注册表（按 id 索引，同时保留声明顺序）。
// 来源数量极小，保持简单即可。
type Registry struct {
	order []Descriptor
	byID  map[string]int
}

func NewRegistry(descs ...Descriptor) (Registry, error) {
	byID := make(map[string]int, len(descs))
	order := make([]Descriptor, 0, len(descs))
	for _, d := range descs {
		id := normID(d.ID)
		if id == "" {
			return Registry{}, fmt.Errorf("source.ID 不能为空")
		}
		if _, ok := byID[id]; ok {
			return Registry{}, fmt.Errorf("重复的 source：%q", id)
		}
		if strings.TrimSpace(d.BaseURL) == "" {
			return Registry{}, fmt.Errorf("source %q 缺少 base_url", id)
		}
		if strings.TrimSpace(d.ServerName) == "" {
			return Registry{}, fmt.Errorf("source %q 缺少 server_name", id)
		}
		if len(d.Kinds) == 0 {
			return Registry{}, fmt.Errorf("source %q 未声明任何 kind", id)
		}
		d = d.clone()
		d.ID = id
		if d.DisplayName == "" {
			d.DisplayName = id
		}
		byID[id] = len(order)
		order = append(order, d)
	}
	return Registry{order: order, byID: byID}, nil
}

// Get 按 id 查找来源（大小写不敏感）。
func (r Registry) Get(id string) (Descriptor, bool) {
	if r.byID == nil {
		return Descriptor{}, false
	}
	i, ok := r.byID[normID(id)]
	if !ok {
		return Descriptor{}, false
	}
	return r.order[i].clone(), true
}

// Lookup 与 Get 相同，但未知 id 返回 *ConfigurationError。
func (r Registry) Lookup(id string) (Descriptor, error) {
	d, ok := r.Get(id)
	if !ok {
		return Descriptor{}, &ConfigurationError{SourceID: id}
	}
	return d, nil
}

// All 按声明顺序返回全部来源。
func (r Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, d := range r.order {
		out = append(out, d.clone())
	}
	return out
}

// Supporting 按声明顺序返回支持 kind 的来源。
func (r Registry) Supporting(k domain.Kind) []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, d := range r.order {
		if d.Supports(k) {
			out = append(out, d.clone())
		}
	}
	return out
}

func (r Registry) Len() int { return len(r.order) }

func normID(id string) string { return strings.ToLower(strings.TrimSpace(id)) }
