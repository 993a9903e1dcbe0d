package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-tours-api/internal/config"
	"go-tours-api/internal/handler"
	"go-tours-api/internal/middleware"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Tour   *handler.TourHandler
	Review *handler.ReviewHandler
}

func New(cfg *config.Config, guard *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/signup", h.Auth.Signup)
			auth.Post("/login", h.Auth.Login)
			auth.Post("/forgot-password", h.Auth.ForgotPassword)
			auth.Patch("/reset-password/{token}", h.Auth.ResetPassword)
			auth.With(guard.RequireAuth).Patch("/update-password", h.Auth.UpdatePassword)
		})

		api.Route("/users", func(users chi.Router) {
			users.With(guard.RequireAuth).Get("/me", h.User.Me)
			users.With(guard.RequireAuth).Patch("/me", h.User.UpdateMe)
			users.With(guard.RequireAuth).Delete("/me", h.User.DeleteMe)
			users.With(guard.RequireAuth, guard.RequireRoles("admin")).Get("/", h.User.List)
			users.With(guard.RequireAuth, guard.RequireRoles("admin")).Get("/{id}", h.User.Get)
		})

		api.Route("/tours", func(tours chi.Router) {
			tours.Get("/", h.Tour.List)
			tours.Get("/top-5-cheap", h.Tour.TopCheap)
			tours.Get("/{id}", h.Tour.Get)
			tours.With(guard.RequireAuth, guard.RequireRoles("admin", "lead-guide")).Post("/", h.Tour.Create)
			tours.With(guard.RequireAuth, guard.RequireRoles("admin", "lead-guide")).Patch("/{id}", h.Tour.Update)
			tours.With(guard.RequireAuth, guard.RequireRoles("admin", "lead-guide")).Delete("/{id}", h.Tour.Delete)

			tours.Route("/{tour_id}/reviews", func(reviews chi.Router) {
				reviews.Get("/", h.Review.ListByTour)
				reviews.With(guard.RequireAuth, guard.RequireRoles("user")).Post("/", h.Review.Create)
			})
		})
	})

	return r
}
