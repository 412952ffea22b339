package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chainbazzar/chainbazzar/internal/cart"
	"github.com/chainbazzar/chainbazzar/internal/checkout"
	"github.com/chainbazzar/chainbazzar/internal/security/jwtmiddleware"
)

// CheckoutRequest — payload of POST /api/checkout.
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
	PaymentMethod   string `json:"payment_method" validate:"required"`
}

// CheckoutResponse wraps the merged receipt of one checkout attempt.
type CheckoutResponse struct {
	Receipt *checkout.Receipt `json:"receipt"`
}

// CheckoutHandler handles POST /api/checkout: loads the cart, runs the
// multi-seller submission and stores the receipt for one later read. The
// cart is cleared only when every seller group succeeded, so the buyer can
// retry a partial checkout; idempotency keys keep the retry safe.
func CheckoutHandler(log *slog.Logger, store *cart.Store, submitter *checkout.Submitter, receipts *checkout.ReceiptStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		token := bearerToken(r)
		if token == "" {
			respondError(w, logger, http.StatusUnauthorized, "missing token")
			return
		}

		var req CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "validation error")
			return
		}

		lines, err := store.Lines(r.Context(), userID)
		if err != nil {
			logger.Error("failed to load cart", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "failed to load cart")
			return
		}

		receipt, err := submitter.Submit(r.Context(), token, lines, checkout.ShippingInfo{
			Address:       req.ShippingAddress,
			PaymentMethod: req.PaymentMethod,
		})
		if err != nil {
			switch {
			case errors.Is(err, checkout.ErrNothingToOrder):
				respondError(w, logger, http.StatusBadRequest, "nothing to order")
			case errors.Is(err, checkout.ErrNotAuthenticated):
				respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			default:
				var vErr *cart.ValidationError
				if errors.As(err, &vErr) {
					respondError(w, logger, http.StatusBadRequest, vErr.Error())
					return
				}
				logger.Error("checkout failed", slog.Any("error", err))
				respondError(w, logger, http.StatusInternalServerError, "checkout failed")
			}
			return
		}

		// Cart survives a partial checkout so the buyer can retry.
		if receipt.AllSucceeded() {
			if err := store.Clear(r.Context(), userID); err != nil {
				logger.Error("failed to clear cart after checkout", slog.Any("error", err))
			}
		}

		if err := receipts.Put(r.Context(), userID, receipt); err != nil {
			logger.Error("failed to store receipt", slog.Any("error", err))
		}

		respondJSON(w, logger, http.StatusOK, CheckoutResponse{Receipt: receipt})
	}
}

// LastReceiptHandler handles GET /api/checkout/receipt. Read-once: the
// receipt is deleted as it is returned.
func LastReceiptHandler(log *slog.Logger, receipts *checkout.ReceiptStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LastReceiptHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		receipt, err := receipts.Take(r.Context(), userID)
		if err != nil {
			if errors.Is(err, checkout.ErrNoReceipt) {
				respondError(w, logger, http.StatusNotFound, "no receipt")
				return
			}
			logger.Error("failed to load receipt", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "failed to load receipt")
			return
		}

		respondJSON(w, logger, http.StatusOK, CheckoutResponse{Receipt: receipt})
	}
}

func bearerToken(r *http.Request) string {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
