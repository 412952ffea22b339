package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/chainbazzar/chainbazzar/internal/security/jwtmiddleware"
	"github.com/chainbazzar/chainbazzar/internal/service"
	"github.com/shopspring/decimal"
)

// ListProductsHandler обрабатывает GET /api/products.
func ListProductsHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		products, err := productService.List(r.Context())
		if err != nil {
			logger.Error("failed to list products", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "failed to list products")
			return
		}

		respondJSON(w, logger, http.StatusOK, map[string][]*models.Product{"products": products})
	}
}

// CreateProductRequest — payload of POST /api/products.
type CreateProductRequest struct {
	Name     string          `json:"name" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock" validate:"gte=0"`
	ImageRef string          `json:"image_ref"`
}

// CreateProductHandler обрабатывает POST /api/products.
// Аутентифицированный пользователь становится продавцом товара.
func CreateProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateProductHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req CreateProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			respondError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			respondError(w, logger, http.StatusBadRequest, "validation error")
			return
		}

		product, err := productService.Create(r.Context(), userID, req.Name, req.Price, req.Stock, req.ImageRef)
		if err != nil {
			logger.Error("failed to create product", slog.Any("error", err))
			respondError(w, logger, http.StatusBadRequest, "failed to create product")
			return
		}

		respondJSON(w, logger, http.StatusCreated, map[string]*models.Product{"product": product})
	}
}
