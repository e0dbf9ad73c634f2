package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"atclicenses.app/server/internal/config"
	"atclicenses.app/server/internal/ratelimit"
	"atclicenses.app/server/storage"
)

// loginAttempts limits login tries per remote address per window.
const (
	loginAttempts = 10
	loginWindow   = 10 * time.Minute
)

type Server struct {
	Router  chi.Router
	Storage storage.Storage
	Logger  *zap.SugaredLogger
	Config  *config.Config
	Version string

	// Now is the reference clock for status classification; tests pin it.
	Now func() time.Time

	loginLimiter ratelimit.Limiter
}

func NewServer(cfg *config.Config, store storage.Storage, logger *zap.SugaredLogger) *Server {
	s := &Server{
		Storage:      store,
		Logger:       logger,
		Config:       cfg,
		Version:      "dev",
		Now:          time.Now,
		loginLimiter: ratelimit.New(loginAttempts, loginWindow),
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	r.Use(s.requestLogger)

	r.Get("/health", s.Health)
	r.Post("/api/auth/login", s.Login)

	r.Group(func(r chi.Router) {
		r.Use(s.RequireAuth)

		r.Route("/api/controllers", func(r chi.Router) {
			r.Get("/", s.ListControllers)
			r.Post("/", s.CreateController)
			r.Get("/export", s.ExportControllers)
			r.Post("/import", s.ImportControllers)
			r.Delete("/all", s.DeleteAllControllers)
			r.Put("/{id}", s.UpdateController)
			r.Delete("/{id}", s.DeleteController)
		})

		r.Get("/api/workplaces", s.ListWorkplaces)
		r.Get("/api/stats", s.Stats)
		r.Get("/api/reports/{status}", s.Report)
		r.Get("/api/reports/{status}/export", s.ExportReport)

		r.Post("/api/auth/password", s.ChangePassword)
		r.Post("/api/users", s.CreateUser)
		r.Delete("/api/users/{username}", s.DeleteUser)
	})

	s.Router = r
	return s
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   s.Version,
		Timestamp: time.Now(),
	})
}

// loggingResponseWriter captures status and size for request logging.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lrw, r)
		status := lrw.status
		if status == 0 {
			status = http.StatusOK
		}
		s.Logger.Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", status,
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
			"size", lrw.size,
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
