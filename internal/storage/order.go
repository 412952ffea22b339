package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrderTx inserts the order and its items inside the caller's
	// transaction and returns the new order ID.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrdersByBuyerID(ctx context.Context, buyerID int64) ([]*models.Order, error)
	// GetOrderByIdempotencyKey returns the order previously created for the
	// key, or ErrOrderNotFound.
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status string) error
	GetSellerStats(ctx context.Context, sellerID int64) (*models.SellerStats, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	// An order without a key stores NULL: idempotency_key is UNIQUE and
	// keyless orders must not collide on the empty string.
	key := sql.NullString{String: order.IdempotencyKey, Valid: order.IdempotencyKey != ""}

	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (buyer_id, seller_id, status, total_amount, shipping_address, payment_method, idempotency_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING id`,
		order.BuyerID, order.SellerID, order.Status, order.TotalAmount,
		order.ShippingAddress, order.PaymentMethod, key,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price)
			 VALUES ($1, $2, $3, $4)`,
			id, item.ProductID, item.Quantity, item.Price,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return id, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order := &models.Order{}
	row := r.db.QueryRowContext(ctx,
		`SELECT id, buyer_id, seller_id, status, total_amount, shipping_address, payment_method, created_at
		 FROM orders WHERE id = $1`, id)
	if err := row.Scan(&order.ID, &order.BuyerID, &order.SellerID, &order.Status,
		&order.TotalAmount, &order.ShippingAddress, &order.PaymentMethod, &order.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	items, err := r.getOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) getOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	query := `
		SELECT i.id, i.order_id, i.product_id, p.name, i.quantity, i.price
		FROM order_items i
		JOIN products p ON i.product_id = p.id
		WHERE i.order_id = $1
		ORDER BY i.id`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepository) GetOrdersByBuyerID(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	query := `
		SELECT id, buyer_id, seller_id, status, total_amount, shipping_address, payment_method, created_at
		FROM orders
		WHERE buyer_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(&order.ID, &order.BuyerID, &order.SellerID, &order.Status,
			&order.TotalAmount, &order.ShippingAddress, &order.PaymentMethod, &order.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	order := &models.Order{}
	row := r.db.QueryRowContext(ctx,
		`SELECT id, buyer_id, seller_id, status, total_amount, shipping_address, payment_method, created_at
		 FROM orders WHERE idempotency_key = $1`, key)
	if err := row.Scan(&order.ID, &order.BuyerID, &order.SellerID, &order.Status,
		&order.TotalAmount, &order.ShippingAddress, &order.PaymentMethod, &order.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status string) error {
	res, err := tx.ExecContext(ctx, "UPDATE orders SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// GetSellerStats aggregates order count, items sold and revenue for one
// seller. Cancelled orders are excluded.
func (r *orderRepository) GetSellerStats(ctx context.Context, sellerID int64) (*models.SellerStats, error) {
	stats := &models.SellerStats{SellerID: sellerID}
	query := `
		SELECT COUNT(DISTINCT o.id), COALESCE(SUM(i.quantity), 0), COALESCE(SUM(i.quantity * i.price), 0), COALESCE(MAX(o.created_at), 'epoch')
		FROM orders o
		JOIN order_items i ON i.order_id = o.id
		WHERE o.seller_id = $1 AND o.status <> 'cancelled'`
	row := r.db.QueryRowContext(ctx, query, sellerID)
	if err := row.Scan(&stats.OrderCount, &stats.ItemsSold, &stats.Revenue, &stats.LastOrderAt); err != nil {
		return nil, fmt.Errorf("failed to aggregate seller stats: %w", err)
	}
	return stats, nil
}
