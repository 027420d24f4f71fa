package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/John-Robertt/dhakaflix/internal/domain"
	"github.com/John-Robertt/dhakaflix/internal/logging"
	"github.com/John-Robertt/dhakaflix/internal/source"
)

const (
	// QueryLimit 是单个来源搜索 API 返回的最大文件夹数。
	QueryLimit = 20
	// maxBody 限制单页响应体大小，防止异常页面耗尽内存。
	maxBody = 16 << 20
)

// Fetcher 负责抓取并解析目录索引页与搜索 API。
//
// 约束：
// - 不做缓存、不做超时决策（由 ctx 截止）
// - 返回的 URL 全部是绝对 URL
// - 错误原样返回，由调用方在来源/页面边界吸收
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

func NewFetcher(c *http.Client, logger *slog.Logger) *Fetcher {
	if c == nil {
		c = http.DefaultClient
	}
	return &Fetcher{
		client: c,
		logger: logging.NewComponentLogger(logger, "listing"),
	}
}

// Category 抓取来源某个分类目录并返回其中的条目（文件夹或文件）。
func (f *Fetcher) Category(ctx context.Context, src source.Descriptor, pagePath string) ([]domain.Listing, error) {
	pageURL := src.Root() + strings.TrimLeft(pagePath, "/")
	body, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	rows, err := parseRows(body, pageURL)
	if err != nil {
		return nil, &ParseError{URL: pageURL, Err: err}
	}

	out := make([]domain.Listing, 0, len(rows))
	for _, r := range rows {
		out = append(out, newListing(src, r.Name, r.URL))
	}
	f.logger.Debug("category fetched",
		logging.String(logging.FieldSource, src.ID),
		logging.String("url", pageURL),
		logging.Int("count", len(out)),
	)
	return out, nil
}

type queryRequest struct {
	Action string      `json:"action"`
	Search queryParams `json:"search"`
}

type queryParams struct {
	Href       string `json:"href"`
	Pattern    string `json:"pattern"`
	IgnoreCase bool   `json:"ignorecase"`
}

type queryResponse struct {
	Search []queryItem `json:"search"`
}

type queryItem struct {
	Href string          `json:"href"`
	Size json.RawMessage `json:"size"`
}

// isFolder：size 缺失、null 或 0 视为文件夹。
func (it queryItem) isFolder() bool {
	s := strings.TrimSpace(string(it.Size))
	return s == "" || s == "null" || s == "0" || s == `"0"` || s == `""`
}

// Query 调用来源的 h5ai 搜索 API，只保留文件夹条目，最多 QueryLimit 条。
func (f *Fetcher) Query(ctx context.Context, src source.Descriptor, query string) ([]domain.Listing, error) {
	endpoint := src.Root()
	payload, err := json.Marshal(queryRequest{
		Action: "get",
		Search: queryParams{
			Href:       "/" + strings.Trim(src.ServerName, "/") + "/",
			Pattern:    query,
			IgnoreCase: true,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := f.do(req)
	if err != nil {
		return nil, err
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{URL: endpoint, Err: err}
	}

	out := make([]domain.Listing, 0, QueryLimit)
	for _, it := range resp.Search {
		if len(out) >= QueryLimit {
			break
		}
		if strings.TrimSpace(it.Href) == "" || !it.isFolder() {
			continue
		}
		abs := resolveURL(src.BaseURL, it.Href)
		out = append(out, newListing(src, NameFromURL(abs), abs))
	}
	f.logger.Debug("query fetched",
		logging.String(logging.FieldSource, src.ID),
		logging.String("query", query),
		logging.Int("count", len(out)),
	)
	return out, nil
}

// Folder 抓取任意目录页并返回全部行。
func (f *Fetcher) Folder(ctx context.Context, folderURL string) (Folder, error) {
	body, err := f.get(ctx, folderURL)
	if err != nil {
		return Folder{}, err
	}
	rows, err := parseRows(body, folderURL)
	if err != nil {
		return Folder{}, &ParseError{URL: folderURL, Err: err}
	}
	return Folder{URL: folderURL, Rows: rows, Poster: posterOf(rows)}, nil
}

func newListing(src source.Descriptor, name, target string) domain.Listing {
	kind := domain.KindMovie
	if src.IsSeriesURL(target) {
		kind = domain.KindSeries
	}
	dual, sub := Flags(name)
	return domain.Listing{
		Name:         name,
		Kind:         kind,
		TargetURL:    target,
		HasDualAudio: dual,
		HasSubtitles: sub,
	}
}

func (f *Fetcher) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return f.do(req)
}

func (f *Fetcher) do(req *http.Request) ([]byte, error) {
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.URL, err)
	}
	return body, nil
}

// IsStatus 判断 err 是否为指定状态码的 HTTPStatusError。
func IsStatus(err error, code int) bool {
	var he *HTTPStatusError
	return errors.As(err, &he) && he.StatusCode == code
}
