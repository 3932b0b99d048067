package server

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/shouni/itihas-kahani/pkg/controller"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionCookieName = "kahani_session"

// Server は物語ページと状態取得 API を提供する HTTP フロントエンドです。
type Server struct {
	store  *controller.Store
	page   *template.Template
	router *mux.Router
}

// New はルーティングを設定済みの Server を返します。
func New(store *controller.Store) (*Server, error) {
	page, err := template.ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:  store,
		page:   page,
		router: mux.NewRouter(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Use(loggingMiddleware)

	s.router.HandleFunc("/", s.handlePage).Methods(http.MethodGet)
	s.router.HandleFunc("/story/start", s.handleStart).Methods(http.MethodPost)
	s.router.HandleFunc("/story/refresh", s.handleRefresh).Methods(http.MethodPost)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/story/start", s.handleAPIStart).Methods(http.MethodPost)
	api.HandleFunc("/story/refresh", s.handleAPIRefresh).Methods(http.MethodPost)

	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
}

// ServeHTTP は http.Handler を満たします。
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.DebugContext(r.Context(), "HTTPリクエスト",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}
