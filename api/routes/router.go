package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kofiasante/kasuwa-backend/api/controllers"
	"github.com/kofiasante/kasuwa-backend/api/middleware"
	authsvc "github.com/kofiasante/kasuwa-backend/internal/auth"
	cartsvc "github.com/kofiasante/kasuwa-backend/internal/cart"
	checkoutsvc "github.com/kofiasante/kasuwa-backend/internal/checkout"
	ordersvc "github.com/kofiasante/kasuwa-backend/internal/orders"
	paymentsvc "github.com/kofiasante/kasuwa-backend/internal/payments"
	productsvc "github.com/kofiasante/kasuwa-backend/internal/products"
	"github.com/kofiasante/kasuwa-backend/pkg/config"
	"github.com/kofiasante/kasuwa-backend/pkg/db"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	"github.com/kofiasante/kasuwa-backend/pkg/logger"
	"github.com/kofiasante/kasuwa-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *db.Client
	Redis       *redis.Client
	PromGatherer prometheus.Gatherer

	Auth     authsvc.Service
	Products productsvc.Service
	Cart     cartsvc.Service
	Checkout checkoutsvc.Service
	Orders   ordersvc.Service
	Payments paymentsvc.Service
}

// NewRouter builds the full HTTP surface.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(p.DB, p.Redis, logg))
	})

	if p.PromGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.PromGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", controllers.Register(p.Auth, logg))
			r.Post("/login", controllers.Login(p.Auth, logg))
			r.With(middleware.Auth(cfg.JWT, logg)).Get("/me", controllers.Me(p.Auth, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(p.Products, logg))
			r.Get("/{productID}", controllers.GetProduct(p.Products, logg))
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(logg, enums.UserRoleSeller, enums.UserRoleAdmin))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ListSellerProducts(p.Products, logg))
				r.Post("/", controllers.CreateProduct(p.Products, logg))
				r.Put("/{productID}", controllers.UpdateProduct(p.Products, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListSellerOrders(p.Orders, logg))
				r.Patch("/{orderNumber}/status", controllers.UpdateOrderStatus(p.Orders, logg))
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/", controllers.GetCart(p.Cart, logg))
			r.Delete("/", controllers.ClearCart(p.Cart, logg))
			r.Post("/items", controllers.AddCartItem(p.Cart, logg))
			r.Delete("/items/{itemID}", controllers.RemoveCartItem(p.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			// Checkout and tracking allow guests; confirmation, cancel and
			// dispute need the authenticated buyer.
			r.With(middleware.OptionalAuth(cfg.JWT, logg)).Post("/", controllers.Checkout(p.Checkout, logg))
			r.With(middleware.OptionalAuth(cfg.JWT, logg)).Get("/{orderNumber}", controllers.GetOrder(p.Orders, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, logg))

				r.Get("/", controllers.ListMyOrders(p.Orders, logg))
				r.Put("/{orderNumber}/confirm-delivery", controllers.ConfirmDelivery(p.Orders, logg))
				r.Put("/{orderNumber}/cancel", controllers.CancelOrder(p.Orders, logg))
				r.Post("/{orderNumber}/dispute", controllers.DisputeOrder(p.Orders, logg))
			})
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

			r.Post("/{orderNumber}/resolve-dispute", controllers.ResolveDispute(p.Orders, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/initialize", controllers.InitializePayment(p.Payments, logg))
			r.Get("/verify/{reference}", controllers.VerifyPayment(p.Payments, logg))
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/paystack", controllers.PaystackWebhook(p.Payments, logg))
		})
	})

	return r
}
