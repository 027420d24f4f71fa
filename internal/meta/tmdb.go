package meta

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	tmdb "github.com/cyruzin/golang-tmdb"

	"github.com/John-Robertt/dhakaflix/internal/domain"
)

// TMDB 通过 find-by-IMDb-id 反查标题与年份。
type TMDB struct {
	c *tmdb.Client
}

// NewTMDB 构造 TMDB provider；httpClient 为 nil 时使用库默认 client。
func NewTMDB(apiKey string, httpClient *http.Client) (*TMDB, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("tmdb api key 不能为空")
	}
	c, err := tmdb.Init(apiKey)
	if err != nil {
		return nil, err
	}
	c.SetClientAutoRetry()
	if httpClient != nil {
		c.SetClientConfig(*httpClient)
	}
	return &TMDB{c: c}, nil
}

func (*TMDB) Name() string { return "tmdb" }

type findResult struct {
	meta domain.CanonicalMeta
	err  error
}

// Lookup 在独立 goroutine 中调用库（库本身不接受 ctx），ctx 结束时立即返回。
func (t *TMDB) Lookup(ctx context.Context, kind domain.Kind, id string) (domain.CanonicalMeta, error) {
	ch := make(chan findResult, 1)
	go func() {
		m, err := t.find(kind, id)
		ch <- findResult{meta: m, err: err}
	}()

	select {
	case <-ctx.Done():
		return domain.CanonicalMeta{}, &Error{Provider: t.Name(), Stage: "fetch", Err: ctx.Err()}
	case r := <-ch:
		return r.meta, r.err
	}
}

func (t *TMDB) find(kind domain.Kind, id string) (domain.CanonicalMeta, error) {
	res, err := t.c.GetFindByID(id, map[string]string{"external_source": "imdb_id"})
	if err != nil {
		return domain.CanonicalMeta{}, &Error{Provider: t.Name(), Stage: "fetch", Err: err}
	}

	if catalogType(kind) == "movie" {
		for _, m := range res.MovieResults {
			if name := strings.TrimSpace(m.Title); name != "" {
				return domain.CanonicalMeta{ID: id, Name: name, Year: yearFrom(m.ReleaseDate)}, nil
			}
		}
	} else {
		for _, tv := range res.TvResults {
			if name := strings.TrimSpace(tv.Name); name != "" {
				return domain.CanonicalMeta{ID: id, Name: name, Year: yearFrom(tv.FirstAirDate)}, nil
			}
		}
	}
	return domain.CanonicalMeta{}, &Error{Provider: t.Name(), Stage: "decode", Err: ErrNotFound}
}
