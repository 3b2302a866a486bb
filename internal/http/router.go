package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

// NewRouter assembles the API surface. Auth routes sit outside RequireUser
// since password reset is reachable without an identity.
func NewRouter(
	cfg RouterConfig,
	carts *CartHandler,
	orders *OrderHandler,
	products *ProductHandler,
	passwords *PasswordHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.List)
			r.Get("/{productID}", products.Get)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/forgot-password", passwords.Forgot)
			r.Post("/reset-password/{token}", passwords.Reset)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", carts.Get)
				r.Post("/items", carts.AddItem)
				r.Put("/items/{productID}", carts.UpdateQuantity)
				r.Delete("/items/{productID}", carts.RemoveItem)
				r.Delete("/", carts.Clear)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orders.Create)
				r.Get("/", orders.ListMine)
				r.Get("/{orderID}", orders.Get)
				r.Post("/{orderID}/payment-intent", orders.CreatePaymentIntent)

				r.Group(func(r chi.Router) {
					r.Use(RequireAdmin)
					r.Get("/all", orders.ListAll)
					r.Put("/{orderID}/payment-status", orders.UpdatePaymentStatus)
				})
			})
		})
	})

	return otelhttp.NewHandler(r, "shopd")
}
