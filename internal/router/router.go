package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-todo-api/internal/config"
	"go-todo-api/internal/handler"
	"go-todo-api/internal/middleware"
	"go-todo-api/internal/notify"
)

type Handlers struct {
	Auth *handler.AuthHandler
	Todo *handler.TodoHandler
	User *handler.UserHandler
}

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	csrf *middleware.CSRF,
	alerter notify.Alerter,
	handlers Handlers,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery(alerter))
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins, cfg.CSRFHeaderName))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))
		api.Use(authMiddleware.Authenticate)

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/sign-up", handlers.Auth.SignUp)
			auth.Post("/login", handlers.Auth.Login)
			auth.Post("/refresh", handlers.Auth.Refresh)
			auth.Post("/logout", handlers.Auth.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", handlers.Auth.Me)
		})

		api.With(authMiddleware.RequireAuth, authMiddleware.RequireAdmin).Get("/users", handlers.User.List)

		api.Route("/todos", func(todos chi.Router) {
			todos.Use(authMiddleware.RequireAuth)
			todos.Use(csrf.Protect)

			todos.Get("/", handlers.Todo.List)
			todos.Post("/", handlers.Todo.Create)
			todos.Delete("/completed", handlers.Todo.DeleteCompleted)
			todos.Get("/{todo_id}", handlers.Todo.Get)
			todos.Put("/{todo_id}", handlers.Todo.Update)
			todos.Delete("/{todo_id}", handlers.Todo.Delete)
		})
	})

	return r
}
