package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/oakmart/storefront/pkg/health"
	"github.com/oakmart/storefront/pkg/middleware"

	"github.com/oakmart/storefront/internal/auth"
	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/service"
)

// RouterConfig bundles the dependencies the router needs.
type RouterConfig struct {
	ProductService *service.ProductService
	ReviewService  *service.ReviewService
	UserService    *service.UserService
	JWTManager     *auth.JWTManager
	HealthHandler  *health.Handler
	Redis          *redis.Client
	RateLimit      middleware.RateLimitConfig
	CORS           middleware.CORSConfig
	SecureCookie   bool
	Logger         *slog.Logger
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	logger := cfg.Logger

	// Global middleware
	// RequestLogger must run after RequestLogging and Tracing so the
	// request-scoped logger carries the correlation and trace IDs.
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))

	// Health and metrics endpoints
	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	requireAuth := middleware.Auth(func(token string) (*middleware.Claims, error) {
		claims, err := cfg.JWTManager.ValidateToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	})
	requireAdmin := middleware.RequireRole(domain.RoleAdmin)

	productHandler := NewProductHandler(cfg.ProductService, logger)
	reviewHandler := NewReviewHandler(cfg.ReviewService, cfg.UserService, logger)
	authHandler := NewAuthHandler(cfg.UserService, cfg.JWTManager, cfg.SecureCookie, logger)
	userHandler := NewUserHandler(cfg.UserService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Auth endpoints, rate limited per client.
		r.Group(func(r chi.Router) {
			if cfg.Redis != nil {
				r.Use(middleware.RateLimit(cfg.Redis, cfg.RateLimit, logger))
			}

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/password/forgot", authHandler.ForgotPassword)
			r.Put("/password/reset/{token}", authHandler.ResetPassword)
		})

		r.Get("/logout", authHandler.Logout)

		// Public catalog endpoints. Review listing and deletion are addressed
		// by query parameters, so they must be routed before the idOrSlug match.
		r.Get("/products", productHandler.ListProducts)
		r.Get("/products/reviews", reviewHandler.ListReviews)
		r.With(requireAuth).Delete("/products/reviews", reviewHandler.DeleteReview)
		r.With(middleware.CacheControl(60)).Get("/products/{idOrSlug}", productHandler.GetProduct)
		r.With(requireAuth).Put("/products/{id}/reviews", reviewHandler.UpsertReview)

		// Authenticated profile endpoints.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", userHandler.GetMe)
			r.Put("/me/update", userHandler.UpdateMe)
			r.Put("/password/update", userHandler.ChangePassword)
		})

		// Admin endpoints.
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(requireAdmin)

			r.Get("/products", productHandler.ListAdminProducts)
			r.Post("/products", productHandler.CreateProduct)
			r.Put("/products/{id}", productHandler.UpdateProduct)
			r.Delete("/products/{id}", productHandler.DeleteProduct)

			r.Get("/users", userHandler.ListUsers)
			r.Get("/users/{id}", userHandler.GetUser)
			r.Put("/users/{id}", userHandler.UpdateUser)
			r.Delete("/users/{id}", userHandler.DeleteUser)
		})
	})

	return r
}
