package handler

import (
	"net/http"

	"kart-commerce/internal/model"
	"kart-commerce/internal/service"

	"github.com/rs/zerolog"
)

// HeaderIdempotencyKey deduplicates order creation per caller.
const HeaderIdempotencyKey = "Idempotency-Key"

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.OrderRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.Checkout(r.Context(), caller(r), &req, r.Header.Get(HeaderIdempotencyKey))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// List handles GET /api/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	orders, err := h.service.ListByUser(r.Context(), caller(r), limit, offset)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.GetByID(r.Context(), caller(r), orderID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Cancel handles POST /api/orders/{id}/cancel requests.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.Cancel(r.Context(), caller(r), orderID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PATCH /api/orders/{id}/status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.StatusUpdateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if req.Status == "" {
		writeError(w, r, model.NewDomainError(model.ErrCodeMissingField, "status is required"), h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), caller(r), orderID, req.Status)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Delete handles DELETE /api/orders/{id} requests.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), caller(r), orderID); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
