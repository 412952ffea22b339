package models

import "github.com/shopspring/decimal"

// CartLine is a single product position in a buyer's cart.
// Invariants: Quantity >= 1, UnitPrice >= 0.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	SellerID  int64           `json:"seller_id"`
	ImageRef  string          `json:"image_ref,omitempty"`
}
