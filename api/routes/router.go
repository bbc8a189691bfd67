package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uncannyvalley/comicshop-backend/api/controllers"
	"github.com/uncannyvalley/comicshop-backend/api/middleware"
	"github.com/uncannyvalley/comicshop-backend/internal/analytics"
	"github.com/uncannyvalley/comicshop-backend/internal/cart"
	"github.com/uncannyvalley/comicshop-backend/internal/catalog"
	"github.com/uncannyvalley/comicshop-backend/internal/orders"
	"github.com/uncannyvalley/comicshop-backend/internal/users"
	"github.com/uncannyvalley/comicshop-backend/pkg/auth/session"
	"github.com/uncannyvalley/comicshop-backend/pkg/config"
	"github.com/uncannyvalley/comicshop-backend/pkg/db"
	"github.com/uncannyvalley/comicshop-backend/pkg/logger"
	"github.com/uncannyvalley/comicshop-backend/pkg/metrics"
	"github.com/uncannyvalley/comicshop-backend/pkg/redis"
)

// Deps bundles everything the router wires together.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Registry *prometheus.Registry

	Users     users.Service
	Catalog   catalog.Service
	Cart      cart.Service
	Orders    orders.Service
	Analytics analytics.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	var httpMetrics *metrics.HTTPMetrics
	if deps.Registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(deps.Registry)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(
				middleware.AuthRateLimit(registerPolicy, deps.Redis, logg),
				middleware.Idempotency(deps.Redis, logg),
			).Post("/register", controllers.Register(deps.Users, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.Login(deps.Users, logg))
			r.Post("/refresh", controllers.Refresh(deps.Users, logg))
			r.Post("/logout", controllers.Logout(deps.Users, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
				r.Get("/me", controllers.Me(deps.Users, logg))
				r.Patch("/me", controllers.UpdateMe(deps.Users, logg))
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(deps.Catalog, logg))
			r.Get("/{categoryID}", controllers.GetCategory(deps.Catalog, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Catalog, logg))
			r.Get("/{productID}", controllers.GetProduct(deps.Catalog, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(
				middleware.Session(logg, cfg.App.IsProd()),
				middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg),
			)
			r.Get("/", controllers.GetCart(deps.Cart, logg))
			r.Post("/add_item", controllers.AddCartItem(deps.Cart, logg))
			r.Post("/remove_item", controllers.RemoveCartItem(deps.Cart, logg))
			r.Post("/increase_item", controllers.IncreaseCartItem(deps.Cart, logg))
			r.Post("/decrease_item", controllers.DecreaseCartItem(deps.Cart, logg))
			r.Post("/checkout", controllers.Checkout(deps.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.With(middleware.Idempotency(deps.Redis, logg)).Post("/", controllers.CreateOrder(deps.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(deps.Orders, logg))
			r.Post("/{orderID}/pay", controllers.PayOrder(deps.Orders, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(deps.Orders, logg))
			r.Post("/{orderID}/refund", controllers.RefundOrder(deps.Orders, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, deps.Sessions, logg),
				middleware.RequireAdmin(logg),
			)

			r.Route("/categories", func(r chi.Router) {
				r.Post("/", controllers.CreateCategory(deps.Catalog, logg))
				r.Patch("/{categoryID}", controllers.UpdateCategory(deps.Catalog, logg))
				r.Delete("/{categoryID}", controllers.DeleteCategory(deps.Catalog, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.AdminListProducts(deps.Catalog, logg))
				r.Post("/", controllers.CreateProduct(deps.Catalog, logg))
				r.Patch("/{productID}", controllers.UpdateProduct(deps.Catalog, logg))
				r.Delete("/{productID}", controllers.DeleteProduct(deps.Catalog, logg))
				r.Post("/{productID}/adjust_stock", controllers.AdjustStock(deps.Catalog, logg))
				r.Post("/{productID}/trending", controllers.SetTrending(deps.Catalog, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/{orderID}/ship", controllers.ShipOrder(deps.Orders, logg))
				r.Post("/{orderID}/complete", controllers.CompleteOrder(deps.Orders, logg))
			})

			r.Get("/analytics/summary", controllers.AnalyticsSummary(deps.Analytics, logg))
		})
	})

	return r
}
