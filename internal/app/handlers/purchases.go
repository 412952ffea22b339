package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/chainbazzar/chainbazzar/internal/service"
)

// RecordPurchaseRequest — payload of POST /api/purchases: a mined on-chain
// purchase to persist against an order.
type RecordPurchaseRequest struct {
	OrderID         int64  `json:"order_id" validate:"required,gt=0"`
	ProductID       int64  `json:"product_id" validate:"required,gt=0"`
	BuyerAddress    string `json:"buyer_address" validate:"required"`
	ContractAddress string `json:"contract_address" validate:"required"`
	TxHash          string `json:"tx_hash" validate:"required"`
}

// RecordPurchaseHandler обрабатывает POST /api/purchases.
func RecordPurchaseHandler(log *slog.Logger, purchaseService service.PurchaseService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RecordPurchaseHandler"
		logger := log.With(slog.String("op", op))

		var req RecordPurchaseRequest
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

		purchase, err := purchaseService.Record(r.Context(), &models.PurchaseTransaction{
			OrderID:         req.OrderID,
			ProductID:       req.ProductID,
			BuyerAddress:    req.BuyerAddress,
			ContractAddress: req.ContractAddress,
			TxHash:          req.TxHash,
		})
		if err != nil {
			logger.Error("failed to record purchase", slog.Any("error", err))
			respondError(w, logger, http.StatusBadRequest, "failed to record purchase")
			return
		}

		respondJSON(w, logger, http.StatusCreated, map[string]*models.PurchaseTransaction{"purchase": purchase})
	}
}
