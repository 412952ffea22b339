package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/chainbazzar/chainbazzar/internal/security/jwtmiddleware"
	"github.com/chainbazzar/chainbazzar/internal/service"
	"github.com/chainbazzar/chainbazzar/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest — payload of POST /api/orders, one seller group per
// request. The Idempotency-Key header takes precedence over the body field.
type CreateOrderRequest struct {
	SellerID        int64                    `json:"seller_id" validate:"required,gt=0"`
	Items           []CreateOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	TotalAmount     decimal.Decimal          `json:"total_amount"`
	ShippingAddress string                   `json:"shipping_address" validate:"required"`
	PaymentMethod   string                   `json:"payment_method" validate:"required"`
	IdempotencyKey  string                   `json:"idempotency_key"`
}

type CreateOrderItemRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int             `json:"quantity" validate:"required,gte=1"`
	Price     decimal.Decimal `json:"price"`
}

// OrderResponse wraps a created or fetched order: { "order": {...} }.
type OrderResponse struct {
	Order *models.Order `json:"order"`
}

// CreateOrderHandler обрабатывает POST /api/orders.
func CreateOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req CreateOrderRequest
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

		if key := r.Header.Get("Idempotency-Key"); key != "" {
			req.IdempotencyKey = key
		}

		in := service.CreateOrderInput{
			SellerID:        req.SellerID,
			TotalAmount:     req.TotalAmount,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			IdempotencyKey:  req.IdempotencyKey,
		}
		for _, item := range req.Items {
			in.Items = append(in.Items, service.OrderItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Price,
			})
		}

		order, err := orderService.CreateOrder(r.Context(), userID, in)
		if err != nil {
			logger.Error("failed to create order", slog.Any("error", err))
			switch {
			case errors.Is(err, service.ErrInsufficientStock):
				respondError(w, logger, http.StatusConflict, "insufficient stock")
			case errors.Is(err, service.ErrPriceMismatch):
				respondError(w, logger, http.StatusConflict, "price mismatch")
			case errors.Is(err, service.ErrTotalMismatch):
				respondError(w, logger, http.StatusBadRequest, "total amount mismatch")
			case errors.Is(err, storage.ErrProductNotFound):
				respondError(w, logger, http.StatusBadRequest, "unknown product")
			default:
				respondError(w, logger, http.StatusInternalServerError, "failed to create order")
			}
			return
		}

		respondJSON(w, logger, http.StatusCreated, OrderResponse{Order: order})
	}
}

// GetOrderHandler обрабатывает GET /api/orders/{id}.
func GetOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid order id")
			return
		}

		order, err := orderService.GetOrder(r.Context(), userID, orderID)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrOrderNotFound):
				respondError(w, logger, http.StatusNotFound, "order not found")
			case errors.Is(err, service.ErrForeignOrderAccess):
				respondError(w, logger, http.StatusForbidden, "forbidden")
			default:
				logger.Error("failed to get order", slog.Any("error", err))
				respondError(w, logger, http.StatusInternalServerError, "failed to get order")
			}
			return
		}

		respondJSON(w, logger, http.StatusOK, OrderResponse{Order: order})
	}
}

// ListOrdersHandler обрабатывает GET /api/orders.
func ListOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		orders, err := orderService.ListOrders(r.Context(), userID)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "failed to list orders")
			return
		}

		respondJSON(w, logger, http.StatusOK, map[string][]*models.Order{"orders": orders})
	}
}

// UpdateOrderStatusRequest — payload of PATCH /api/orders/{id}/status.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

// UpdateOrderStatusHandler обрабатывает PATCH /api/orders/{id}/status.
func UpdateOrderStatusHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateOrderStatusHandler"
		logger := log.With(slog.String("op", op))

		orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid order id")
			return
		}

		var req UpdateOrderStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "validation error")
			return
		}

		if err := orderService.UpdateStatus(r.Context(), orderID, req.Status); err != nil {
			switch {
			case errors.Is(err, storage.ErrOrderNotFound):
				respondError(w, logger, http.StatusNotFound, "order not found")
			case errors.Is(err, service.ErrInvalidTransition):
				respondError(w, logger, http.StatusConflict, "invalid status transition")
			default:
				logger.Error("failed to update status", slog.Any("error", err))
				respondError(w, logger, http.StatusInternalServerError, "failed to update status")
			}
			return
		}

		respondJSON(w, logger, http.StatusOK, map[string]string{"message": "status updated"})
	}
}

// SellerStatsHandler обрабатывает GET /api/orders/stats.
// Статистика считается для аутентифицированного продавца.
func SellerStatsHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SellerStatsHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		stats, err := orderService.SellerStats(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get seller stats", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "failed to get stats")
			return
		}

		respondJSON(w, logger, http.StatusOK, map[string]*models.SellerStats{"stats": stats})
	}
}
