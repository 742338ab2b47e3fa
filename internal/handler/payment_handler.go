package handler

import (
	"net/http"
	"strings"

	"kart-commerce/internal/model"
	"kart-commerce/internal/service"

	"github.com/rs/zerolog"
)

// PaymentHandler handles payment and refund requests.
type PaymentHandler struct {
	service service.PaymentService
	logger  zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(service service.PaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With().Str("handler", "payment").Logger(),
	}
}

// Initiate handles POST /api/orders/{id}/payments requests.
func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.PaymentRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	resp, err := h.service.InitiatePayment(r.Context(), caller(r), orderID, req.Currency)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Refund handles POST /api/orders/{id}/refunds requests.
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.RefundRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	resp, err := h.service.Refund(r.Context(), caller(r), orderID, req.Amount)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /api/payments/{intentId} requests.
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	intentID := strings.TrimSpace(r.PathValue("intentId"))
	if intentID == "" {
		writeError(w, r, model.NewDomainError(model.ErrCodeMissingField, "payment intent id is required"), h.logger)
		return
	}

	resp, err := h.service.GetPaymentStatus(r.Context(), caller(r), intentID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Config handles GET /api/payments/config requests.
func (h *PaymentHandler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ClientConfig())
}
