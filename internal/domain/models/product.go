package models

import "github.com/shopspring/decimal"

// Product is a listed item offered by a seller.
type Product struct {
	ID       int64
	SellerID int64
	Name     string
	Price    decimal.Decimal
	Stock    int
	ImageRef string
}
