package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pribylovaa/go-room-booking/internal/config"
	"github.com/pribylovaa/go-room-booking/internal/metrics"
	"github.com/pribylovaa/go-room-booking/internal/ratelimit"
	"github.com/pribylovaa/go-room-booking/internal/service"
	"github.com/pribylovaa/go-room-booking/internal/transport/http/handlers"
	"github.com/pribylovaa/go-room-booking/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	Cookies config.CookieConfig
	CORS    config.CORSConfig
	// Limiter ограничивает auth-эндпойнты; nil отключает лимит.
	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования
		middleware.Logging(opts.Logger),
		middleware.Metrics(opts.Metrics),
		cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORS.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           opts.CORS.MaxAge,
		}),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	h := handlers.New(svc, opts.Cookies)
	registerRoutes(root, h, svc, opts)

	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, svc *service.Service, opts Options) {
	authn := middleware.Authenticate(svc)
	active := middleware.RequireActive()
	// Суперпользовательские маршруты всегда идут после active.
	super := middleware.RequireSuperuser()

	// auth
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.Limiter, opts.Metrics))
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.Refresh)
	})
	r.With(authn, active).Post("/auth/logout", h.Logout)
	r.With(authn).Post("/auth/abort", h.Abort)

	// users
	r.Route("/users", func(r chi.Router) {
		r.Use(authn, active)

		r.Get("/me", h.Me)
		r.Put("/me", h.UpdateMe)
		r.Delete("/me", h.DeleteMe)

		r.Group(func(r chi.Router) {
			r.Use(super)
			r.Get("/", h.ListUsers)
			r.Get("/{id}", h.GetUser)
			r.Put("/{id}", h.UpdateUser)
			r.Delete("/{id}", h.DeleteUser)
		})
	})

	// rooms
	r.Route("/rooms", func(r chi.Router) {
		r.Get("/", h.ListRooms)
		r.Get("/{id}", h.GetRoom)

		r.Group(func(r chi.Router) {
			r.Use(authn, active, super)
			r.Post("/", h.CreateRoom)
			r.Post("/bulk", h.BulkCreateRooms)
			r.Put("/{id}", h.UpdateRoom)
			r.Delete("/{id}", h.DeleteRoom)
		})
	})

	// bookings
	r.Route("/bookings", func(r chi.Router) {
		r.Use(authn, active)

		r.Post("/", h.CreateBooking)
		r.Get("/", h.ListBookings)
		r.Get("/{id}", h.GetBooking)
		r.Delete("/{id}", h.DeleteBooking)

		r.Group(func(r chi.Router) {
			r.Use(super)
			r.Post("/bulk", h.BulkCreateBookings)
			r.Put("/{id}", h.UpdateBooking)
		})
	})
}
