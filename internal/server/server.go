package server

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/John-Robertt/dhakaflix/internal/domain"
	"github.com/John-Robertt/dhakaflix/internal/logging"
	"github.com/John-Robertt/dhakaflix/internal/source"
)

const requestIDHeader = "X-Request-Id"

// Service 是 HTTP 层依赖的核心能力（stream.Assembler 实现了它）。
type Service interface {
	GetStreams(ctx context.Context, rawID string, kind domain.Kind) []domain.Stream
	Search(ctx context.Context, query string, kind domain.Kind) []domain.MatchCandidate
	GetMeta(ctx context.Context, rawID string, kind domain.Kind) *domain.MetaObject
}

type Options struct {
	Registry source.Registry
	Service  Service
	Logger   *slog.Logger
	Version  string
}

// Server 把 Service 暴露为 addon 协议的 HTTP 接口。
type Server struct {
	svc      Service
	manifest Manifest
	logger   *slog.Logger
	router   chi.Router
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func New(opts Options) *Server {
	version := opts.Version
	if version == "" {
		version = "0.0.0"
	}
	s := &Server{
		svc:      opts.Service,
		manifest: BuildManifest(opts.Registry, version),
		logger:   logging.NewComponentLogger(opts.Logger, "server"),
	}

	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.httpLogger)
	r.Use(s.httpRecoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/manifest.json", s.handleManifest)
	r.Get("/catalog/{type}/*", s.handleCatalog)
	r.Get("/meta/{type}/*", s.handleMeta)
	r.Get("/stream/{type}/*", s.handleStream)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not-found", "unknown route")
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestID 优先沿用客户端传入的 X-Request-Id，否则生成 uuid。
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := logging.WithRequestID(r.Context(), id)
		ctx = context.WithValue(ctx, middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) httpLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		t1 := time.Now()
		defer func() {
			logging.WithContext(r.Context(), s.logger).Debug(
				"served request",
				logging.String("path", r.URL.Path),
				logging.Int("status", ww.Status()),
				logging.Int("size", ww.BytesWritten()),
				logging.Duration("took", time.Since(t1)),
				logging.String("ua", r.Header.Get("User-Agent")),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) httpRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				//nolint:errorlint,goerr113
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				logging.WithContext(r.Context(), s.logger).Error(
					"request panic",
					logging.String("path", r.URL.Path),
					slog.Any("err", rvr),
					logging.String("stack", string(debug.Stack())),
				)
				writeError(w, r, http.StatusInternalServerError, "internal-error", "an internal server error has occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	render.Status(r, status)
	render.JSON(w, r, &ErrorResponse{Error: code, Message: msg})
}
