package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/John-Robertt/dhakaflix/internal/domain"
)

const DefaultCinemetaURL = "https://v3-cinemeta.strem.io"

// Cinemeta 查询 {host}/meta/{type}/{id}.json。
type Cinemeta struct {
	BaseURL string
	Client  *http.Client
}

func (Cinemeta) Name() string { return "cinemeta" }

type cinemetaResponse struct {
	Meta *struct {
		Name        string          `json:"name"`
		Year        json.RawMessage `json:"year"`
		ReleaseInfo string          `json:"releaseInfo"`
	} `json:"meta"`
}

func (c Cinemeta) Lookup(ctx context.Context, kind domain.Kind, id string) (domain.CanonicalMeta, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		base = DefaultCinemetaURL
	}
	u := fmt.Sprintf("%s/meta/%s/%s.json", base, catalogType(kind), url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.CanonicalMeta{}, &Error{Provider: c.Name(), Stage: "fetch", Err: err}
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return domain.CanonicalMeta{}, &Error{Provider: c.Name(), Stage: "fetch", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return domain.CanonicalMeta{}, &Error{Provider: c.Name(), Stage: "fetch", Err: ErrNotFound}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.CanonicalMeta{}, &Error{Provider: c.Name(), Stage: "fetch", Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return domain.CanonicalMeta{}, &Error{Provider: c.Name(), Stage: "fetch", Err: err}
	}
	var out cinemetaResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.CanonicalMeta{}, &Error{Provider: c.Name(), Stage: "decode", Err: err}
	}
	if out.Meta == nil || strings.TrimSpace(out.Meta.Name) == "" {
		return domain.CanonicalMeta{}, &Error{Provider: c.Name(), Stage: "decode", Err: ErrNotFound}
	}

	year := yearFrom(strings.Trim(string(out.Meta.Year), `"`))
	if year == 0 {
		year = yearFrom(out.Meta.ReleaseInfo)
	}
	return domain.CanonicalMeta{ID: id, Name: strings.TrimSpace(out.Meta.Name), Year: year}, nil
}
