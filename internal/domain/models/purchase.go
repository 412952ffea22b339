package models

import "time"

// PurchaseTransaction is a mined on-chain purchase record. Immutable once
// TxHash is set; a failed transaction leaves no row behind.
type PurchaseTransaction struct {
	ID              int64     `json:"id"`
	OrderID         int64     `json:"order_id"`
	ProductID       int64     `json:"product_id"`
	BuyerAddress    string    `json:"buyer_address"`
	ContractAddress string    `json:"contract_address"`
	TxHash          string    `json:"tx_hash"`
	CreatedAt       time.Time `json:"created_at"`
}
