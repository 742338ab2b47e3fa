package router

import (
	"net/http"

	"kart-commerce/internal/handler"
	"kart-commerce/internal/middleware"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Products *handler.ProductHandler
	Orders   *handler.OrderHandler
	Payments *handler.PaymentHandler
	Webhooks *handler.WebhookHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, apiKey string, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	})

	// Catalogue
	mux.HandleFunc("GET /api/products", h.Products.GetAll)
	mux.HandleFunc("GET /api/products/{id}", h.Products.GetByID)

	// Caller-scoped routes
	identity := middleware.Identity(logger)
	protect := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, identity(fn))
	}

	protect("POST /api/orders", h.Orders.Create)
	protect("GET /api/orders", h.Orders.List)
	protect("GET /api/orders/{id}", h.Orders.GetByID)
	protect("DELETE /api/orders/{id}", h.Orders.Delete)
	protect("POST /api/orders/{id}/cancel", h.Orders.Cancel)
	protect("PATCH /api/orders/{id}/status", h.Orders.UpdateStatus)
	protect("POST /api/orders/{id}/payments", h.Payments.Initiate)
	protect("POST /api/orders/{id}/refunds", h.Payments.Refund)
	protect("GET /api/payments/{intentId}", h.Payments.Status)
	mux.HandleFunc("GET /api/payments/config", h.Payments.Config)

	// Provider callbacks authenticate by signature
	mux.HandleFunc("POST /webhooks/payments", h.Webhooks.Handle)

	// Apply middleware in order: CorrelationID -> Recovery -> Logging -> CORS -> APIKeyAuth
	var handler http.Handler = mux
	handler = middleware.APIKeyAuth(apiKey, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.CorrelationID(handler)

	return handler
}
