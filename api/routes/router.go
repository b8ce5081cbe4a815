package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-gateway/api/controllers"
	"github.com/angelmondragon/storefront-gateway/api/middleware"
	"github.com/angelmondragon/storefront-gateway/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-gateway/internal/checkout"
	"github.com/angelmondragon/storefront-gateway/internal/dashboard"
	"github.com/angelmondragon/storefront-gateway/internal/otp"
	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/internal/storage"
	"github.com/angelmondragon/storefront-gateway/internal/wishlist"
	"github.com/angelmondragon/storefront-gateway/pkg/config"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store storage.Store,
	readiness map[string]controllers.Pinger,
	metricsHandler http.Handler,
	sessions session.Service,
	otpService otp.Service,
	cartService cart.Service,
	wishlistService wishlist.Service,
	checkoutService checkoutsvc.Service,
	dashboardService dashboard.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewRateLimitPolicy(
		"admin_login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	otpPolicy := middleware.NewRateLimitPolicy(
		"otp_send",
		cfg.AuthRateLimit.OTPWindow,
		cfg.AuthRateLimit.OTPIPLimit,
		cfg.AuthRateLimit.OTPEmailLimit,
	)
	idempotent := middleware.Idempotency(store, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ClientContext(logg))

		r.Route("/auth", func(r chi.Router) {
			r.Get("/otp", controllers.OTPStatus(otpService, logg))
			r.With(middleware.RateLimit(otpPolicy, store, logg)).Post("/otp/send", controllers.OTPSend(otpService, logg))
			r.With(middleware.RateLimit(otpPolicy, store, logg)).Post("/otp/resend", controllers.OTPResend(otpService, logg))
			r.Post("/otp/verify", controllers.OTPVerify(otpService, logg))
			r.Post("/logout", controllers.AuthLogout(sessions, logg))
			r.Get("/me", controllers.AuthMe(sessions, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(sessions, enums.IdentityKindUser, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(cartService, logg))
				r.With(idempotent).Post("/items", controllers.CartAddItem(cartService, logg))
				r.Put("/items/{variantId}", controllers.CartUpdateItem(cartService, logg))
				r.Delete("/items/{variantId}", controllers.CartRemoveItem(cartService, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistFetch(wishlistService, logg))
				r.Delete("/{id}", controllers.WishlistRemove(wishlistService, logg))
				r.Post("/{id}/move-to-cart", controllers.WishlistMoveToCart(wishlistService, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", controllers.CheckoutStart(checkoutService, logg))
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", controllers.CheckoutGet(checkoutService, logg))
					r.Post("/reload", controllers.CheckoutReload(checkoutService, logg))
					r.Post("/reset", controllers.CheckoutReset(checkoutService, logg))
					r.Post("/address", controllers.CheckoutSelectAddress(checkoutService, logg))
					r.Post("/addresses", controllers.CheckoutAddAddress(checkoutService, logg))
					r.Post("/payment-method", controllers.CheckoutPaymentMethod(checkoutService, logg))
					r.Post("/coupon", controllers.CheckoutCoupon(checkoutService, logg))
					r.Post("/coupon/preview", controllers.CheckoutCouponPreview(checkoutService, logg))
					r.With(idempotent).Post("/place-order", controllers.CheckoutPlaceOrder(checkoutService, logg))
					r.With(idempotent).Post("/payment/complete", controllers.CheckoutCompletePayment(checkoutService, logg))
					r.Post("/payment/dismiss", controllers.CheckoutDismissPayment(checkoutService, logg))
				})
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.ClientContext(logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(loginPolicy, store, logg)).Post("/login", controllers.AdminAuthLogin(sessions, logg))
			r.Post("/logout", controllers.AdminAuthLogout(sessions, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(sessions, enums.IdentityKindAdmin, logg))
			r.Get("/sales-report", controllers.AdminSalesReport(dashboardService, logg))
			r.Get("/sales-report/download", controllers.AdminSalesReportDownload(dashboardService, logg))
			r.Get("/users", controllers.AdminUsers(dashboardService, logg))
			r.Delete("/users/{id}", controllers.AdminDeleteUser(dashboardService, logg))
			r.Put("/users/{id}/status", controllers.AdminSetUserStatus(dashboardService, logg))
		})
	})

	return r
}
