package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chainbazzar/chainbazzar/internal/cart"
	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/google/uuid"
)

// ErrNothingToOrder is the terminal "empty cart" state. It is not a
// checkout failure: no network call has been made.
var ErrNothingToOrder = errors.New("nothing to order")

// Recorder submits an on-chain purchase and blocks until it is mined,
// returning the transaction hash. Optional: a nil recorder skips the
// on-chain leg entirely.
type Recorder interface {
	Purchase(ctx context.Context, contractAddress string, productID int64, buyer string) (string, error)
}

// PurchaseSaver persists a mined purchase transaction. Optional, like
// Recorder: nil skips persistence.
type PurchaseSaver interface {
	Record(ctx context.Context, p *models.PurchaseTransaction) (*models.PurchaseTransaction, error)
}

// ShippingInfo is the buyer-supplied delivery data shared by every seller
// group of one checkout.
type ShippingInfo struct {
	Address       string
	PaymentMethod string
}

// Submitter drives one checkout attempt: group the cart by seller, verify
// the credential once, submit every group concurrently, settle, and merge
// the outcomes into a receipt.
//
// Partial-failure policy: best-effort. Every group is attempted regardless
// of other groups' failures; created orders are kept, failed ones are
// reported on the receipt. Retrying the same attempt is safe because each
// group carries an idempotency key the order service dedupes on.
type Submitter struct {
	log             *slog.Logger
	placer          OrderPlacer
	recorder        Recorder
	saver           PurchaseSaver
	contractAddress string
}

func NewSubmitter(log *slog.Logger, placer OrderPlacer, recorder Recorder, saver PurchaseSaver, contractAddress string) *Submitter {
	return &Submitter{
		log:             log,
		placer:          placer,
		recorder:        recorder,
		saver:           saver,
		contractAddress: contractAddress,
	}
}

// Submit runs the checkout attempt and returns the merged receipt. The
// returned error is non-nil only for whole-checkout failures (validation,
// empty cart, authentication); per-seller failures live inside the receipt.
func (s *Submitter) Submit(ctx context.Context, token string, lines []models.CartLine, shipping ShippingInfo) (*Receipt, error) {
	const op = "checkout.Submitter.Submit"
	logger := s.log.With(slog.String("op", op))

	groups, err := cart.GroupBySeller(lines)
	if err != nil {
		logger.Warn("cart validation failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNothingToOrder)
	}

	// One auth check for the whole checkout; a bad credential never turns
	// into per-seller errors.
	buyer, err := s.placer.VerifyToken(ctx, token)
	if err != nil {
		logger.Warn("credential rejected", slog.Any("error", err))
		if errors.Is(err, ErrNotAuthenticated) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
		}
		return nil, fmt.Errorf("%s: failed to verify credential: %w", op, err)
	}

	attemptID := uuid.NewString()
	logger.Info("submitting seller groups",
		slog.String("attemptID", attemptID),
		slog.Int("groups", len(groups)),
		slog.Int64("buyerID", buyer.ID),
	)

	// All groups are submitted concurrently with no relative ordering; the
	// only barrier is the all-settled join below.
	results := make([]OrderResult, len(groups))
	var wg sync.WaitGroup
	for i, group := range groups {
		wg.Add(1)
		go func(i int, group cart.SellerGroup) {
			defer wg.Done()
			results[i] = s.submitGroup(ctx, token, attemptID, buyer, group, shipping)
		}(i, group)
	}
	wg.Wait()

	receipt := BuildReceipt(buyer.Email, results)
	logger.Info("checkout settled",
		slog.String("attemptID", attemptID),
		slog.Int("failed", receipt.FailedCount()),
	)
	return receipt, nil
}

func (s *Submitter) submitGroup(ctx context.Context, token, attemptID string, buyer *models.User, group cart.SellerGroup, shipping ShippingInfo) OrderResult {
	result := OrderResult{SellerID: group.SellerID}

	req := OrderRequest{
		SellerID:        group.SellerID,
		TotalAmount:     group.Total,
		ShippingAddress: shipping.Address,
		PaymentMethod:   shipping.PaymentMethod,
		IdempotencyKey:  fmt.Sprintf("%s:%d", attemptID, group.SellerID),
	}
	for _, line := range group.Lines {
		req.Items = append(req.Items, OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.UnitPrice,
		})
	}

	orderID, err := s.placer.CreateOrder(ctx, token, req)
	if err != nil {
		s.log.Warn("order creation failed",
			slog.Int64("sellerID", group.SellerID),
			slog.Any("error", err),
		)
		result.Err = err.Error()
		return result
	}
	result.OrderID = orderID

	// Optional on-chain leg: record each product against the marketplace
	// contract. The order itself stands even if recording fails.
	if s.recorder != nil && buyer.WalletAddress != "" {
		for _, line := range group.Lines {
			txHash, err := s.recorder.Purchase(ctx, s.contractAddress, line.ProductID, buyer.WalletAddress)
			if err != nil {
				s.log.Error("purchase recording failed",
					slog.Int64("sellerID", group.SellerID),
					slog.Int64("productID", line.ProductID),
					slog.Any("error", err),
				)
				result.Err = fmt.Sprintf("order %d created, purchase recording failed: %v", orderID, err)
				return result
			}
			result.TxHashes = append(result.TxHashes, txHash)

			if s.saver != nil {
				_, err := s.saver.Record(ctx, &models.PurchaseTransaction{
					OrderID:         orderID,
					ProductID:       line.ProductID,
					BuyerAddress:    buyer.WalletAddress,
					ContractAddress: s.contractAddress,
					TxHash:          txHash,
				})
				if err != nil {
					// Tx is already mined; the order stands without the row.
					s.log.Error("failed to persist purchase",
						slog.Int64("orderID", orderID),
						slog.String("txHash", txHash),
						slog.Any("error", err),
					)
				}
			}
		}
	}
	return result
}
