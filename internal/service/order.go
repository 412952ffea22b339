package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/chainbazzar/chainbazzar/internal/storage"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrPriceMismatch      = errors.New("price mismatch")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrEmptyOrder         = errors.New("order has no items")
	ErrTotalMismatch      = errors.New("total amount mismatch")
	ErrForeignOrderAccess = errors.New("order belongs to another user")
)

// OrderItemInput is one requested position of a new order.
type OrderItemInput struct {
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
}

// CreateOrderInput is a single-seller order creation request.
type CreateOrderInput struct {
	SellerID        int64
	Items           []OrderItemInput
	TotalAmount     decimal.Decimal
	ShippingAddress string
	PaymentMethod   string
	IdempotencyKey  string
}

type OrderService interface {
	// CreateOrder creates a single-seller order transactionally. A repeated
	// IdempotencyKey returns the previously created order instead of a
	// duplicate.
	CreateOrder(ctx context.Context, buyerID int64, in CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error)
	ListOrders(ctx context.Context, buyerID int64) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, newStatus string) error
	SellerStats(ctx context.Context, sellerID int64) (*models.SellerStats, error)
}

type orderService struct {
	log         *slog.Logger
	db          *sql.DB
	orderRepo   storage.OrderStorage
	productRepo storage.ProductStorage
}

func NewOrderService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, productRepo storage.ProductStorage) OrderService {
	return &orderService{
		log:         log,
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
	}
}

// CreateOrder locks every product row, checks stock and pricing against the
// current catalog, decrements stock and inserts the order with its items.
// Any failure rolls the whole transaction back.
func (s *orderService) CreateOrder(ctx context.Context, buyerID int64, in CreateOrderInput) (*models.Order, error) {
	const op = "service.OrderService.CreateOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("buyerID", buyerID), slog.Int64("sellerID", in.SellerID))
	logger.Info("starting order transaction")

	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyOrder)
	}

	// Replay of an already-processed checkout attempt.
	if in.IdempotencyKey != "" {
		existing, err := s.orderRepo.GetOrderByIdempotencyKey(ctx, in.IdempotencyKey)
		if err == nil {
			logger.Info("duplicate request, returning existing order", slog.Int64("orderID", existing.ID))
			return existing, nil
		}
		if !errors.Is(err, storage.ErrOrderNotFound) {
			logger.Error("idempotency lookup failed", slog.Any("error", err))
			return nil, fmt.Errorf("%s: idempotency lookup failed: %w", op, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order := &models.Order{
		BuyerID:         buyerID,
		SellerID:        in.SellerID,
		Status:          models.OrderStatusPending,
		TotalAmount:     in.TotalAmount,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		IdempotencyKey:  in.IdempotencyKey,
	}

	runningTotal := decimal.Zero
	for _, item := range in.Items {
		product, err := s.productRepo.LockProductByIDTx(ctx, tx, item.ProductID)
		if err != nil {
			s.rollback(tx, logger)
			logger.Error("failed to get product", slog.Int64("productID", item.ProductID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
		}
		if product.SellerID != in.SellerID {
			s.rollback(tx, logger)
			return nil, fmt.Errorf("%s: product %d does not belong to seller %d", op, item.ProductID, in.SellerID)
		}
		if !product.Price.Equal(item.Price) {
			s.rollback(tx, logger)
			logger.Warn("price mismatch", slog.Int64("productID", item.ProductID),
				slog.String("listed", product.Price.String()), slog.String("requested", item.Price.String()))
			return nil, fmt.Errorf("%s: %w", op, ErrPriceMismatch)
		}
		if product.Stock < item.Quantity {
			s.rollback(tx, logger)
			logger.Warn("insufficient stock", slog.Int64("productID", item.ProductID),
				slog.Int("stock", product.Stock), slog.Int("requested", item.Quantity))
			return nil, fmt.Errorf("%s: %w", op, ErrInsufficientStock)
		}

		if err := s.productRepo.UpdateStockTx(ctx, tx, item.ProductID, product.Stock-item.Quantity); err != nil {
			s.rollback(tx, logger)
			logger.Error("failed to update stock", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to update stock: %w", op, err)
		}

		order.Items = append(order.Items, &models.OrderItem{
			ProductID: item.ProductID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
		runningTotal = runningTotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	// The client's declared total must match the item sum before tax; the
	// tax share is checked as subtotal * 1.1.
	if !in.TotalAmount.Equal(runningTotal) && !in.TotalAmount.Equal(runningTotal.Mul(decimal.NewFromFloat(1.1))) {
		s.rollback(tx, logger)
		logger.Warn("total mismatch", slog.String("declared", in.TotalAmount.String()), slog.String("computed", runningTotal.String()))
		return nil, fmt.Errorf("%s: %w", op, ErrTotalMismatch)
	}

	id, err := s.orderRepo.CreateOrderTx(ctx, tx, order)
	if err != nil {
		s.rollback(tx, logger)
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}
	order.ID = id

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order created", slog.Int64("orderID", id))
	return order, nil
}

func (s *orderService) rollback(tx *sql.Tx, logger *slog.Logger) {
	if rbErr := tx.Rollback(); rbErr != nil {
		logger.Error("transaction rollback failed", slog.Any("error", rbErr))
	}
}

func (s *orderService) GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	const op = "service.OrderService.GetOrder"

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		s.log.Error("failed to get order", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	if order.BuyerID != userID && order.SellerID != userID {
		return nil, fmt.Errorf("%s: %w", op, ErrForeignOrderAccess)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	const op = "service.OrderService.ListOrders"

	orders, err := s.orderRepo.GetOrdersByBuyerID(ctx, buyerID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	return orders, nil
}

// UpdateStatus validates the transition and applies it. Cancelling restocks
// every item of the order.
func (s *orderService) UpdateStatus(ctx context.Context, orderID int64, newStatus string) error {
	const op = "service.OrderService.UpdateStatus"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", orderID), slog.String("newStatus", newStatus))
	logger.Info("starting status transition")

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		logger.Error("failed to get order", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	if !models.CanTransition(order.Status, newStatus) {
		logger.Warn("invalid transition", slog.String("from", order.Status))
		return fmt.Errorf("%s: %s -> %s: %w", op, order.Status, newStatus, ErrInvalidTransition)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	if newStatus == models.OrderStatusCancelled {
		for _, item := range order.Items {
			product, err := s.productRepo.LockProductByIDTx(ctx, tx, item.ProductID)
			if err != nil {
				s.rollback(tx, logger)
				logger.Error("failed to get product for restock", slog.Any("error", err))
				return fmt.Errorf("%s: failed to get product for restock: %w", op, err)
			}
			if err := s.productRepo.UpdateStockTx(ctx, tx, item.ProductID, product.Stock+item.Quantity); err != nil {
				s.rollback(tx, logger)
				logger.Error("failed to restock product", slog.Any("error", err))
				return fmt.Errorf("%s: failed to restock product: %w", op, err)
			}
		}
	}

	if err := s.orderRepo.UpdateStatusTx(ctx, tx, orderID, newStatus); err != nil {
		s.rollback(tx, logger)
		logger.Error("failed to update status", slog.Any("error", err))
		return fmt.Errorf("%s: failed to update status: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("status updated")
	return nil
}

func (s *orderService) SellerStats(ctx context.Context, sellerID int64) (*models.SellerStats, error) {
	const op = "service.OrderService.SellerStats"

	stats, err := s.orderRepo.GetSellerStats(ctx, sellerID)
	if err != nil {
		s.log.Error("failed to get seller stats", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get seller stats: %w", op, err)
	}
	return stats, nil
}
