package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/chainbazzar/chainbazzar/internal/cart"
	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/chainbazzar/chainbazzar/internal/security/jwtmiddleware"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type cartResponse struct {
	Lines []models.CartLine `json:"lines"`
}

// GetCartHandler обрабатывает GET /api/cart.
func GetCartHandler(log *slog.Logger, store *cart.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		lines, err := store.Lines(r.Context(), userID)
		if err != nil {
			logger.Error("failed to load cart", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "failed to load cart")
			return
		}
		if lines == nil {
			lines = []models.CartLine{}
		}

		respondJSON(w, logger, http.StatusOK, cartResponse{Lines: lines})
	}
}

// AddCartLineRequest — payload of POST /api/cart/items.
type AddCartLineRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Name      string          `json:"name" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity" validate:"required,gte=1"`
	SellerID  int64           `json:"seller_id" validate:"required,gt=0"`
	ImageRef  string          `json:"image_ref"`
}

// AddCartLineHandler обрабатывает POST /api/cart/items.
func AddCartLineHandler(log *slog.Logger, store *cart.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddCartLineHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req AddCartLineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "validation error")
			return
		}

		lines, err := store.AddLine(r.Context(), userID, models.CartLine{
			ProductID: req.ProductID,
			Name:      req.Name,
			UnitPrice: req.UnitPrice,
			Quantity:  req.Quantity,
			SellerID:  req.SellerID,
			ImageRef:  req.ImageRef,
		})
		if err != nil {
			var vErr *cart.ValidationError
			if errors.As(err, &vErr) {
				respondError(w, logger, http.StatusBadRequest, vErr.Error())
				return
			}
			logger.Error("failed to add cart line", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "failed to update cart")
			return
		}

		respondJSON(w, logger, http.StatusOK, cartResponse{Lines: lines})
	}
}

// SetCartQuantityRequest — payload of PATCH /api/cart/items/{productID}.
type SetCartQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// SetCartQuantityHandler обрабатывает PATCH /api/cart/items/{productID}.
// Quantity zero removes the line.
func SetCartQuantityHandler(log *slog.Logger, store *cart.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SetCartQuantityHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid product id")
			return
		}

		var req SetCartQuantityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "validation error")
			return
		}

		lines, err := store.SetQuantity(r.Context(), userID, productID, req.Quantity)
		if err != nil {
			var vErr *cart.ValidationError
			if errors.As(err, &vErr) {
				respondError(w, logger, http.StatusBadRequest, vErr.Error())
				return
			}
			logger.Error("failed to set quantity", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "failed to update cart")
			return
		}

		respondJSON(w, logger, http.StatusOK, cartResponse{Lines: lines})
	}
}

// RemoveCartLineHandler обрабатывает DELETE /api/cart/items/{productID}.
func RemoveCartLineHandler(log *slog.Logger, store *cart.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveCartLineHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid product id")
			return
		}

		lines, err := store.RemoveLine(r.Context(), userID, productID)
		if err != nil {
			logger.Error("failed to remove cart line", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "failed to update cart")
			return
		}

		respondJSON(w, logger, http.StatusOK, cartResponse{Lines: lines})
	}
}

// ClearCartHandler обрабатывает DELETE /api/cart.
func ClearCartHandler(log *slog.Logger, store *cart.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ClearCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		if err := store.Clear(r.Context(), userID); err != nil {
			logger.Error("failed to clear cart", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "failed to clear cart")
			return
		}

		respondJSON(w, logger, http.StatusOK, cartResponse{Lines: []models.CartLine{}})
	}
}
