package handlers

import (
	"net/http"
	"taskSync/internal/middleware"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Timeout        time.Duration
	RateLimit      int
	AllowedOrigins []string
}

func NewRouter(h *TaskHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.ActorHeader, middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Actor)
	r.Use(middleware.Logging)
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}
	r.Use(middleware.RateLimit(cfg.RateLimit))

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.GetActiveTasks) // GET /tasks
		r.Post("/", h.PostTask)      // POST /tasks
		r.Get("/all", h.GetAllTasks) // GET /tasks/all

		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", h.GetTask)       // GET /tasks/{code}
			r.Patch("/", h.PatchTask)   // PATCH /tasks/{code}
			r.Delete("/", h.DeleteTask) // DELETE /tasks/{code}

			r.Post("/restore", h.RestoreTask) // POST /tasks/{code}/restore
			r.Delete("/purge", h.PurgeTask)   // DELETE /tasks/{code}/purge
		})
	})

	r.Get("/health", h.HealthCheck)

	return otelhttp.NewHandler(r, "task-sync")
}
