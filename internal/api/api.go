// Package api is the local HTTP surface the control panel UI talks to.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/service"
	"github.com/agentdeck/agentdeck/internal/stream"
)

// Server routes API requests to the task service.
type Server struct {
	svc     *service.Service
	streams *stream.Manager
	logger  *zap.Logger
	router  chi.Router
}

// NewServer creates the API server around the task service facade.
func NewServer(svc *service.Service, streams *stream.Manager, logger *zap.Logger) *Server {
	s := &Server{
		svc:     svc,
		streams: streams,
		logger:  logger.Named("api"),
		router:  chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Get("/api/v1/health", s.HealthCheck)

	r.Get("/api/v1/tasks", s.ListTasks)
	r.Post("/api/v1/tasks", s.CreateTask)
	r.Get("/api/v1/tasks/{id}", s.GetTask)
	r.Put("/api/v1/tasks/{id}", s.UpdateTask)
	r.Delete("/api/v1/tasks/{id}", s.DeleteTask)
	r.Post("/api/v1/tasks/{id}/run", s.RunTask)
	r.Get("/api/v1/tasks/{id}/logs", s.GetTaskLogs)
	r.Get("/api/v1/tasks/{id}/runs", s.GetTaskRuns)
	r.Get("/api/v1/tasks/{id}/logs/stream", s.StreamTaskLogs)

	r.Get("/api/v1/cron/describe", s.DescribeCron)
}

// Router returns the chi router for use with http.Server.
func (s *Server) Router() http.Handler {
	return s.router
}

// CORS allows the UI, served from its own origin during development,
// to call the API.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
