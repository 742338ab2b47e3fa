package handler

import (
	"net/http"

	"kart-commerce/internal/model"
	"kart-commerce/internal/service"

	"github.com/rs/zerolog"
)

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// GetAll handles GET /api/products requests with pagination.
func (h *ProductHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	products, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if products == nil {
		products = []model.Product{}
	}

	writeJSON(w, http.StatusOK, products)
}

// GetByID handles GET /api/products/{id} requests.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}
