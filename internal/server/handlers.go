package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/John-Robertt/dhakaflix/internal/domain"
)

type streamsResponse struct {
	Streams []domain.Stream `json:"streams"`
}

type metaResponse struct {
	Meta *domain.MetaObject `json:"meta"`
}

type catalogResponse struct {
	Metas []domain.MetaPreview `json:"metas"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.manifest)
}

// handleCatalog 处理 /catalog/{type}/{id}.json 与 /catalog/{type}/{id}/{extra}.json。
// extra 为 query string 形式（search=...&skip=...）；无 search 时按分类浏览。
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	rest, ok := jsonTail(chi.URLParam(r, "*"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "not-found", "expected a .json resource")
		return
	}
	id, extra, _ := strings.Cut(rest, "/")
	if id != catalogID(kind) {
		writeError(w, r, http.StatusNotFound, "unknown-catalog", "unknown catalog "+id)
		return
	}
	values, err := url.ParseQuery(extra)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid-extra", err.Error())
		return
	}

	cands := s.svc.Search(r.Context(), values.Get("search"), kind)
	metas := make([]domain.MetaPreview, 0, len(cands))
	seen := make(map[string]bool, len(cands))
	for _, c := range cands {
		mid := domain.SourceItemID(c.SourceID, c.TargetURL)
		if seen[mid] {
			continue
		}
		seen[mid] = true
		metas = append(metas, domain.MetaPreview{ID: mid, Type: c.Kind, Name: c.Name})
	}
	render.JSON(w, r, catalogResponse{Metas: metas})
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := s.itemParams(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, metaResponse{Meta: s.svc.GetMeta(r.Context(), id, kind)})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := s.itemParams(w, r)
	if !ok {
		return
	}
	streams := s.svc.GetStreams(r.Context(), id, kind)
	if streams == nil {
		streams = []domain.Stream{}
	}
	render.JSON(w, r, streamsResponse{Streams: streams})
}

func (s *Server) kindParam(w http.ResponseWriter, r *http.Request) (domain.Kind, bool) {
	kind, err := domain.ParseKind(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid-type", err.Error())
		return "", false
	}
	return kind, true
}

func (s *Server) itemParams(w http.ResponseWriter, r *http.Request) (domain.Kind, string, bool) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return "", "", false
	}
	rest, ok := jsonTail(chi.URLParam(r, "*"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "not-found", "expected a .json resource")
		return "", "", false
	}
	id, err := url.PathUnescape(rest)
	if err != nil || strings.TrimSpace(id) == "" {
		writeError(w, r, http.StatusBadRequest, "invalid-id", "malformed id")
		return "", "", false
	}
	return kind, id, true
}

// jsonTail 去掉路由通配部分的 .json 后缀。
func jsonTail(rest string) (string, bool) {
	rest, ok := strings.CutSuffix(rest, ".json")
	return rest, ok && rest != ""
}
