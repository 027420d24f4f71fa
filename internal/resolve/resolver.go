package resolve

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/John-Robertt/dhakaflix/internal/domain"
	"github.com/John-Robertt/dhakaflix/internal/listing"
	"github.com/John-Robertt/dhakaflix/internal/logging"
	"github.com/John-Robertt/dhakaflix/internal/source"
)

var seasonRE = regexp.MustCompile(`(?i)season\s*(\d+)`)

// FolderFetcher 是 Resolver 依赖的抓取能力（listing.Fetcher 实现了它）。
type FolderFetcher interface {
	Folder(ctx context.Context, folderURL string) (listing.Folder, error)
}

// Resolver 把候选 URL 解析成可播放内容。
//
// 约束：
// - 整个解析受来源的 LoadBudget 约束
// - 任一层抓取失败只让该层为空，不影响兄弟分支
// - 没有任何可播放条目时返回 nil
type Resolver struct {
	fetcher FolderFetcher
	logger  *slog.Logger
}

func New(f FolderFetcher, logger *slog.Logger) *Resolver {
	return &Resolver{fetcher: f, logger: logging.NewComponentLogger(logger, "resolve")}
}

// Resolve 依次尝试：直接视频文件 → URL 自带 season → 剧集目录（含/不含 season 子目录）→ 电影目录（最多下探一层）。
//
// 约束：
// - 直接指向视频文件的 URL 不发起任何抓取，返回只含该文件的电影内容
func (r *Resolver) Resolve(ctx context.Context, targetURL string, src source.Descriptor) *domain.ResolvedContent {
	if listing.IsVideoURL(targetURL) {
		return videoFile(targetURL)
	}

	ctx, cancel := context.WithTimeout(ctx, src.LoadBudget())
	defer cancel()

	decoded := decodeURL(targetURL)
	var rc *domain.ResolvedContent
	switch {
	case seasonRE.MatchString(decoded):
		rc = r.resolveSeasonPage(ctx, targetURL, seasonNumber(decoded))
	case src.IsSeriesURL(targetURL):
		rc = r.resolveSeries(ctx, targetURL)
	default:
		rc = r.resolveMovie(ctx, targetURL)
	}
	if rc.Empty() {
		r.logger.Debug("nothing playable",
			logging.String(logging.FieldSource, src.ID),
			logging.String("url", targetURL),
		)
		return nil
	}
	rc.Name = listing.NameFromURL(targetURL)
	return rc
}

func (r *Resolver) resolveSeasonPage(ctx context.Context, pageURL string, season int) *domain.ResolvedContent {
	folder, ok := r.folder(ctx, pageURL)
	if !ok {
		return nil
	}
	return &domain.ResolvedContent{
		Type:      domain.ContentSeries,
		PosterURL: folder.Poster,
		Episodes:  episodes(folder.Videos(), season),
	}
}

func (r *Resolver) resolveSeries(ctx context.Context, pageURL string) *domain.ResolvedContent {
	folder, ok := r.folder(ctx, pageURL)
	if !ok {
		return nil
	}

	var seasons []listing.Row
	for _, row := range folder.Subfolders() {
		if strings.Contains(strings.ToLower(row.Name), "season") {
			seasons = append(seasons, row)
		}
	}
	if len(seasons) == 0 {
		return &domain.ResolvedContent{
			Type:      domain.ContentSeries,
			PosterURL: folder.Poster,
			Episodes:  episodes(folder.Videos(), 1),
		}
	}

	perSeason := make([][]domain.Episode, len(seasons))
	var wg sync.WaitGroup
	for i, row := range seasons {
		wg.Add(1)
		go func(i int, row listing.Row) {
			defer wg.Done()
			sf, ok := r.folder(ctx, row.URL)
			if !ok {
				return
			}
			perSeason[i] = episodes(sf.Videos(), seasonNumber(row.Name))
		}(i, row)
	}
	wg.Wait()

	rc := &domain.ResolvedContent{Type: domain.ContentSeries, PosterURL: folder.Poster}
	for _, eps := range perSeason {
		rc.Episodes = append(rc.Episodes, eps...)
	}
	return rc
}

func (r *Resolver) resolveMovie(ctx context.Context, pageURL string) *domain.ResolvedContent {
	folder, ok := r.folder(ctx, pageURL)
	if !ok {
		return nil
	}
	if vids := folder.Videos(); len(vids) > 0 {
		return &domain.ResolvedContent{
			Type:       domain.ContentMovie,
			PosterURL:  folder.Poster,
			VideoFiles: videoFiles(vids),
		}
	}

	// 当前层没有视频：每个直接子目录抓取一次，只下探一层。
	subs := folder.Subfolders()
	nested := make([]listing.Folder, len(subs))
	var wg sync.WaitGroup
	for i, row := range subs {
		wg.Add(1)
		go func(i int, row listing.Row) {
			defer wg.Done()
			if sf, ok := r.folder(ctx, row.URL); ok {
				nested[i] = sf
			}
		}(i, row)
	}
	wg.Wait()

	rc := &domain.ResolvedContent{Type: domain.ContentMovie, PosterURL: folder.Poster}
	for _, sf := range nested {
		vids := sf.Videos()
		if len(vids) == 0 {
			continue
		}
		if rc.PosterURL == "" {
			rc.PosterURL = sf.Poster
		}
		rc.VideoFiles = append(rc.VideoFiles, videoFiles(vids)...)
	}
	return rc
}

func (r *Resolver) folder(ctx context.Context, u string) (listing.Folder, bool) {
	f, err := r.fetcher.Folder(ctx, u)
	if err != nil {
		r.logger.Warn("folder fetch failed",
			logging.String("url", u),
			logging.Bool("not_found", listing.IsStatus(err, http.StatusNotFound)),
			logging.Error(err),
		)
		return listing.Folder{}, false
	}
	return f, true
}

// episodes 按页面顺序从 1 开始编号。
func episodes(rows []listing.Row, season int) []domain.Episode {
	out := make([]domain.Episode, 0, len(rows))
	for i, row := range rows {
		out = append(out, domain.Episode{
			Name:    row.Name,
			Season:  season,
			Episode: i + 1,
			URL:     row.URL,
		})
	}
	return out
}

func videoFile(u string) *domain.ResolvedContent {
	name := listing.NameFromURL(u)
	dual, sub := listing.Flags(name)
	return &domain.ResolvedContent{
		Type: domain.ContentMovie,
		Name: name,
		VideoFiles: []domain.VideoFile{{
			Name:         name,
			URL:          u,
			HasDualAudio: dual,
			HasSubtitles: sub,
		}},
	}
}

func videoFiles(rows []listing.Row) []domain.VideoFile {
	out := make([]domain.VideoFile, 0, len(rows))
	for _, row := range rows {
		dual, sub := listing.Flags(row.Name)
		out = append(out, domain.VideoFile{
			Name:         row.Name,
			URL:          row.URL,
			HasDualAudio: dual,
			HasSubtitles: sub,
		})
	}
	return out
}

// seasonNumber 解析 "season N"；无法解析时为 0。
func seasonNumber(s string) int {
	m := seasonRE.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func decodeURL(u string) string {
	if d, err := url.PathUnescape(u); err == nil {
		return d
	}
	return u
}
