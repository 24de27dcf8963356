package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// Default per-group request timeouts. Admin routes get longer because a sync
// waits on upstream retries and several store batches.
const (
	DefaultTimeout      = 15 * time.Second
	DefaultAdminTimeout = 2 * time.Minute
)

type Server struct {
	mux          *chi.Mux
	timeout      time.Duration
	adminTimeout time.Duration
}

// New builds the router. allowedOrigin is the dashboard origin permitted by CORS.
func New(allowedOrigin string) *Server {
	m := chi.NewRouter()

	// middlewares must be registered before any route
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-None-Match", adminKeyHeader},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	m.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path, nil)
	})
	m.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" not allowed", nil)
	})

	return &Server{mux: m, timeout: DefaultTimeout, adminTimeout: DefaultAdminTimeout}
}

// SetTimeouts overrides the public and admin route timeouts. Call it before
// MountHandlers.
func (s *Server) SetTimeouts(public, admin time.Duration) {
	s.timeout, s.adminTimeout = public, admin
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
