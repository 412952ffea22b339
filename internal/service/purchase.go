package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/chainbazzar/chainbazzar/internal/storage"
)

var ErrDuplicateTxHash = errors.New("transaction hash already recorded")

// PurchaseService persists mined on-chain purchase transactions.
type PurchaseService interface {
	Record(ctx context.Context, p *models.PurchaseTransaction) (*models.PurchaseTransaction, error)
	ListByOrder(ctx context.Context, orderID int64) ([]*models.PurchaseTransaction, error)
}

type purchaseService struct {
	log          *slog.Logger
	purchaseRepo storage.PurchaseStorage
	orderRepo    storage.OrderStorage
}

func NewPurchaseService(log *slog.Logger, purchaseRepo storage.PurchaseStorage, orderRepo storage.OrderStorage) PurchaseService {
	return &purchaseService{
		log:          log,
		purchaseRepo: purchaseRepo,
		orderRepo:    orderRepo,
	}
}

// Record stores a mined purchase transaction. The tx hash is the dedup key:
// recording the same hash twice returns the existing row.
func (s *purchaseService) Record(ctx context.Context, p *models.PurchaseTransaction) (*models.PurchaseTransaction, error) {
	const op = "service.PurchaseService.Record"
	logger := s.log.With(slog.String("op", op), slog.String("txHash", p.TxHash))

	if p.TxHash == "" {
		return nil, fmt.Errorf("%s: tx hash is required", op)
	}

	if existing, err := s.purchaseRepo.GetPurchaseByTxHash(ctx, p.TxHash); err == nil {
		logger.Info("purchase already recorded", slog.Int64("purchaseID", existing.ID))
		return existing, nil
	} else if !errors.Is(err, storage.ErrPurchaseNotFound) {
		logger.Error("failed to check tx hash", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to check tx hash: %w", op, err)
	}

	if _, err := s.orderRepo.GetOrderByID(ctx, p.OrderID); err != nil {
		logger.Error("order lookup failed", slog.Int64("orderID", p.OrderID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: order lookup failed: %w", op, err)
	}

	created, err := s.purchaseRepo.CreatePurchase(ctx, p)
	if err != nil {
		logger.Error("failed to record purchase", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to record purchase: %w", op, err)
	}

	logger.Info("purchase recorded", slog.Int64("purchaseID", created.ID))
	return created, nil
}

func (s *purchaseService) ListByOrder(ctx context.Context, orderID int64) ([]*models.PurchaseTransaction, error) {
	const op = "service.PurchaseService.ListByOrder"

	purchases, err := s.purchaseRepo.GetPurchasesByOrderID(ctx, orderID)
	if err != nil {
		s.log.Error("failed to list purchases", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list purchases: %w", op, err)
	}
	return purchases, nil
}
