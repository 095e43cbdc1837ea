package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/services/storefront/internal/service"
)

const serviceName = "storefront"

// RouterConfig carries the HTTP-level settings of the router.
type RouterConfig struct {
	Environment    string
	AllowedOrigins []string
	PprofCIDRs     []string
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	sessions *service.SessionService,
	catalog service.Catalog,
	limiter *middleware.RateLimiter,
	validate middleware.TokenValidator,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	cors := middleware.DefaultCORSConfig()
	cors.Environment = cfg.Environment
	cors.AllowedOrigins = cfg.AllowedOrigins
	cors.AllowedHeaders = append(cors.AllowedHeaders, SessionHeader)
	cors.ExposedHeaders = append(cors.ExposedHeaders, SessionHeader)

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cors))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	sessionHandler := NewSessionHandler(sessions, logger)
	cartHandler := NewCartHandler(logger)
	wishlistHandler := NewWishlistHandler()
	productHandler := NewProductHandler(catalog, service.NewCatalogService(catalog), logger)

	r.Route("/api/v1/storefront", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(limiter.Handler)
		r.Use(SessionScope(sessions, logger))

		r.Get("/session", sessionHandler.GetSession)
		r.Delete("/session", sessionHandler.Close)
		r.Post("/session/login", sessionHandler.Login)
		r.Post("/session/logout", sessionHandler.Logout)
		r.Post("/session/abandon", sessionHandler.Abandon)

		r.Get("/notifications", sessionHandler.Notifications)

		r.Get("/cart", cartHandler.GetCart)
		r.Delete("/cart", cartHandler.ClearCart)
		r.Post("/cart/sync", cartHandler.Sync)
		r.Post("/cart/items", cartHandler.AddItem)
		r.Put("/cart/items/{productId}", cartHandler.UpdateItemQuantity)
		r.Delete("/cart/items/{productId}", cartHandler.RemoveItem)

		r.Get("/wishlist", wishlistHandler.GetWishlist)
		r.Delete("/wishlist", wishlistHandler.ClearWishlist)
		r.Post("/wishlist/items", wishlistHandler.AddItem)
		r.Delete("/wishlist/items/{productId}", wishlistHandler.RemoveItem)

		r.With(middleware.CacheControl("private", 60)).Get("/products", productHandler.ListProducts)
		r.With(middleware.CacheControl("private", 60)).Get("/products/{productId}", productHandler.GetProduct)
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(validate))
		r.Use(middleware.RequireRole("admin"))

		r.Get("/products", productHandler.AdminListProducts)
	})

	return r
}
