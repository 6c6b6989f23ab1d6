package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openclaw/qrstudio/widget"
)

// Server holds the dependencies for all HTTP handlers.
type Server struct {
	Views     *widget.Registry
	Log       *slog.Logger
	Version   string
	StartTime time.Time
}

// NewRouter returns a fully configured chi router with all API routes.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.Log))

	// Widget page
	r.Get("/", s.handlePage)

	// Status
	r.Get("/status", s.handleStatus)

	// View lifecycle, form fields, preview and export
	r.Post("/views", s.handleMount)
	r.Route("/views/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetView)
		r.Delete("/", s.handleUnmount)
		r.Put("/{field}", s.handleSetField)
		r.Get("/preview.png", s.handlePreviewPNG)
		r.Get("/export", s.handleExport)
	})

	return r
}

// --- helpers ----------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// --- middleware --------------------------------------------------------------

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			next.ServeHTTP(w, r)
		})
	}
}
