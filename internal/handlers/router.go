package handlers

import (
	"net/http"
	"time"

	"todoList/internal/auth"
	"todoList/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	RateLimit      int
	CORSOrigins    []string
	// при nil маршруты /tasks и /theme открыты
	Authenticator auth.Authenticator
}

func NewRouter(tasks *TaskHandler, themes *ThemeHandler, login *AuthHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimit(cfg.RateLimit))

	r.Get("/health", tasks.HealthCheck)
	r.Post("/login", login.Login)

	r.Group(func(r chi.Router) {
		if cfg.Authenticator != nil {
			r.Use(middleware.BasicAuth(cfg.Authenticator))
		}

		// поток событий живёт дольше любого таймаута запроса
		r.Get("/tasks/events", tasks.Events) // GET /tasks/events

		r.Group(func(r chi.Router) {
			if cfg.RequestTimeout > 0 {
				r.Use(chimw.Timeout(cfg.RequestTimeout))
			}

			r.Get("/tasks", tasks.ListTasks)               // GET /tasks?filter=&q=
			r.Post("/tasks", tasks.PostTask)               // POST /tasks
			r.Get("/tasks/stats", tasks.GetStats)          // GET /tasks/stats
			r.Get("/tasks/{id}", tasks.GetTaskByID)        // GET /tasks/{id}
			r.Delete("/tasks/{id}", tasks.DeleteTask)      // DELETE /tasks/{id}
			r.Post("/tasks/{id}/toggle", tasks.ToggleTask) // POST /tasks/{id}/toggle

			r.Get("/theme", themes.GetTheme)            // GET /theme
			r.Post("/theme/toggle", themes.ToggleTheme) // POST /theme/toggle
		})
	})

	return r
}
