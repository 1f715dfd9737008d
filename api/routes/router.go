package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rentiva/rentiva-backend/api/controllers"
	"github.com/rentiva/rentiva-backend/api/middleware"
	auditsvc "github.com/rentiva/rentiva-backend/internal/audit"
	authsvc "github.com/rentiva/rentiva-backend/internal/auth"
	cartsvc "github.com/rentiva/rentiva-backend/internal/cart"
	fulfillmentsvc "github.com/rentiva/rentiva-backend/internal/fulfillment"
	ordersvc "github.com/rentiva/rentiva-backend/internal/orders"
	productsvc "github.com/rentiva/rentiva-backend/internal/products"
	quotationsvc "github.com/rentiva/rentiva-backend/internal/quotations"
	settingsvc "github.com/rentiva/rentiva-backend/internal/settings"
	"github.com/rentiva/rentiva-backend/pkg/auth/session"
	"github.com/rentiva/rentiva-backend/pkg/config"
	"github.com/rentiva/rentiva-backend/pkg/logger"
	"github.com/rentiva/rentiva-backend/pkg/metrics"
	"github.com/rentiva/rentiva-backend/pkg/redis"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Auth        *authsvc.Service
	Products    *productsvc.Service
	Cart        *cartsvc.Service
	Quotations  *quotationsvc.Service
	Orders      *ordersvc.Service
	Fulfillment *fulfillmentsvc.Service
	Settings    *settingsvc.Service
	Audit       *auditsvc.Service
}

// NewRouter assembles the HTTP surface.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	var httpMetrics *metrics.HTTPMetrics
	if registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(registry)
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, redisClient, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.Register(svcs.Auth, logg))
		r.Post("/register-vendor", controllers.RegisterVendor(svcs.Auth, logg))
		r.Post("/login", controllers.Login(svcs.Auth, logg))
		r.Post("/refresh", controllers.Refresh(svcs.Auth, logg))
		r.Post("/logout", controllers.Logout(svcs.Auth, logg))
	})

	// public catalog, no credentials needed
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.BrowseProducts(svcs.Products, logg))
		r.Get("/{slug}", controllers.GetProductBySlug(svcs.Products, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/me", controllers.Profile(svcs.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("customer", logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(svcs.Cart, logg))
				r.Post("/items", controllers.AddCartItem(svcs.Cart, logg))
				r.Put("/items/{variantID}", controllers.UpdateCartItem(svcs.Cart, logg))
				r.Delete("/items/{variantID}", controllers.RemoveCartItem(svcs.Cart, logg))
				r.Delete("/", controllers.ClearCart(svcs.Cart, logg))
				r.Post("/quotation-request", controllers.RequestQuotation(svcs.Cart, logg))
			})

			r.Route("/quotations", func(r chi.Router) {
				r.Get("/", controllers.CustomerListQuotations(svcs.Quotations, logg))
				r.Get("/{quotationID}", controllers.CustomerGetQuotation(svcs.Quotations, logg))
				r.Post("/{quotationID}/order", controllers.CreateOrderFromQuotation(svcs.Orders, svcs.Audit, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.CustomerListOrders(svcs.Orders, logg))
				r.Get("/{orderID}", controllers.CustomerGetOrder(svcs.Orders, logg))
				r.Post("/{orderID}/cancel", controllers.CustomerCancelOrder(svcs.Orders, svcs.Audit, logg))
			})
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireVendor(logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.VendorListProducts(svcs.Products, logg))
				r.Post("/", controllers.VendorCreateProduct(svcs.Products, logg))
				r.Get("/{productID}", controllers.VendorGetProduct(svcs.Products, logg))
				r.Patch("/{productID}", controllers.VendorUpdateProduct(svcs.Products, logg))
				r.Delete("/{productID}", controllers.VendorArchiveProduct(svcs.Products, logg))
				r.Post("/{productID}/variants", controllers.VendorAddVariant(svcs.Products, logg))
			})
			r.Patch("/variants/{variantID}", controllers.VendorUpdateVariant(svcs.Products, logg))

			r.Route("/quotations", func(r chi.Router) {
				r.Get("/", controllers.VendorListQuotations(svcs.Quotations, logg))
				r.Get("/{quotationID}", controllers.VendorGetQuotation(svcs.Quotations, logg))
				r.Post("/{quotationID}/approve", controllers.VendorApproveQuotation(svcs.Quotations, svcs.Audit, logg))
				r.Post("/{quotationID}/reject", controllers.VendorRejectQuotation(svcs.Quotations, svcs.Audit, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.VendorListOrders(svcs.Orders, logg))
				r.Get("/{orderID}", controllers.VendorGetOrder(svcs.Orders, logg))
				r.Post("/{orderID}/mark-paid", controllers.VendorMarkOrderPaid(svcs.Orders, svcs.Audit, logg))
				r.Post("/{orderID}/pickup", controllers.VendorRecordPickup(svcs.Fulfillment, svcs.Audit, logg))
				r.Get("/{orderID}/return-preview", controllers.VendorPreviewReturn(svcs.Fulfillment, logg))
				r.Post("/{orderID}/return", controllers.VendorRecordReturn(svcs.Fulfillment, svcs.Audit, logg))
				r.Post("/{orderID}/complete", controllers.VendorCompleteOrder(svcs.Fulfillment, svcs.Audit, logg))
				r.Get("/{orderID}/history", controllers.VendorOrderHistory(svcs.Fulfillment, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", controllers.AdminGetSettings(svcs.Settings, logg))
				r.Put("/", controllers.AdminUpdateSetting(svcs.Settings, svcs.Audit, logg))
			})

			r.Post("/payments/confirm", controllers.AdminConfirmPayment(svcs.Orders, svcs.Audit, logg))

			r.Route("/audit-logs", func(r chi.Router) {
				r.Get("/", controllers.AdminListAuditLogs(svcs.Audit, logg))
				r.Get("/export", controllers.AdminExportAuditCSV(svcs.Audit, logg))
			})
		})
	})

	return r
}
