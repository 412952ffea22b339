package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. Allowed transitions:
// pending -> processing -> shipped -> delivered,
// pending|processing -> cancelled.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusProcessing || to == OrderStatusCancelled
	case OrderStatusProcessing:
		return to == OrderStatusShipped || to == OrderStatusCancelled
	case OrderStatusShipped:
		return to == OrderStatusDelivered
	default:
		return false
	}
}

// Order is a single-seller order created during checkout.
type Order struct {
	ID              int64           `json:"id"`
	BuyerID         int64           `json:"buyer_id"`
	SellerID        int64           `json:"seller_id"`
	Status          string          `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	IdempotencyKey  string          `json:"-"`
	Items           []*OrderItem    `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// OrderItem is one product position inside an order. Price is the unit
// price at the moment of purchase.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"` // filled via JOIN with products
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// SellerStats is the aggregated order statistics for one seller.
type SellerStats struct {
	SellerID    int64           `json:"seller_id"`
	OrderCount  int             `json:"order_count"`
	ItemsSold   int             `json:"items_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
	LastOrderAt time.Time       `json:"last_order_at"`
}
