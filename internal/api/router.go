package api

import (
	"context"
	"net/http"
	"time"

	"github.com/example/online-store/internal/api/middleware"
	"github.com/example/online-store/internal/auth"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// RouterConfig wires the handlers and the optional infrastructure behind
// them. A nil Cache disables response caching and a nil Limiter disables
// login rate limiting.
type RouterConfig struct {
	Handlers    *Handlers
	Auth        *AuthHandlers
	JWT         *auth.JWTService
	Revocations middleware.RevocationChecker

	Cache    middleware.ResponseCache
	CacheTTL time.Duration

	Limiter    middleware.Counter
	LoginLimit int

	// Health reports whether the backing services are reachable.
	Health func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handlers
	requireAuth := middleware.AuthMiddleware(cfg.JWT, cfg.Revocations)
	requireAdmin := middleware.RequireRole(auth.RoleAdmin)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimw.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSONError(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.Get("/health", healthHandler(cfg.Health))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.Auth.Register)
		r.With(loginLimit(cfg)...).Post("/login", cfg.Auth.Login)
		r.Post("/refresh", cfg.Auth.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", cfg.Auth.Logout)
			r.Post("/change-password", cfg.Auth.ChangePassword)
			r.Get("/me", cfg.Auth.Me)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.Cache != nil {
				r.Use(middleware.Cache(cfg.Cache, cfg.CacheTTL))
			}
			r.Get("/", h.ListProducts)
			r.Get("/filter", h.FilterProducts)
		})
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Put("/{id}/price", h.UpdatePrice)
			r.Delete("/{id}", h.DeleteProduct)
			r.Post("/{id}/discount", h.CreateDiscount)
		})
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/tree", h.CategoryTree)
		r.Get("/{id}", h.GetCategory)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Post("/", h.CreateCategory)
			r.Put("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", h.GetCart)
		r.Post("/items", h.AddCartItem)
		r.Put("/items/{productID}", h.UpdateCartItem)
		r.Delete("/items/{productID}", h.RemoveCartItem)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.With(requireAdmin).Get("/sales-report", h.SalesReport)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}/status", h.UpdateOrderStatus)
	})

	return r
}

func loginLimit(cfg RouterConfig) []func(http.Handler) http.Handler {
	if cfg.Limiter == nil || cfg.LoginLimit <= 0 {
		return nil
	}
	return []func(http.Handler) http.Handler{
		middleware.RateLimit(cfg.Limiter, "login", cfg.LoginLimit, time.Minute),
	}
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				log.Warn().Err(err).Str("component", "api").Msg("health check failed")
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
