package checkout

import (
	"fmt"
	"math/rand"
	"time"
)

// OrderResult is the per-seller outcome of one checkout attempt. Exactly
// one of OrderID/Err is meaningful.
type OrderResult struct {
	SellerID int64    `json:"seller_id"`
	OrderID  int64    `json:"order_id,omitempty"`
	TxHashes []string `json:"tx_hashes,omitempty"`
	Err      string   `json:"error,omitempty"`
}

// Failed reports whether this seller's order did not go through.
func (r OrderResult) Failed() bool {
	return r.Err != ""
}

// Receipt is the buyer-facing summary of one checkout attempt. OrderNumber
// is display-only: random, not unique, never used as a key.
type Receipt struct {
	OrderNumber string        `json:"order_number"`
	Date        time.Time     `json:"date"`
	BuyerEmail  string        `json:"buyer_email"`
	Orders      []OrderResult `json:"orders"`
}

// AllSucceeded reports whether every seller group produced an order.
func (r *Receipt) AllSucceeded() bool {
	for _, o := range r.Orders {
		if o.Failed() {
			return false
		}
	}
	return true
}

// FailedCount returns the number of seller groups that failed.
func (r *Receipt) FailedCount() int {
	n := 0
	for _, o := range r.Orders {
		if o.Failed() {
			n++
		}
	}
	return n
}

// BuildReceipt merges per-seller results into a receipt with a fresh
// display order number ("ORD-" + 6 random digits).
func BuildReceipt(buyerEmail string, results []OrderResult) *Receipt {
	return &Receipt{
		OrderNumber: fmt.Sprintf("ORD-%06d", rand.Intn(1000000)),
		Date:        time.Now(),
		BuyerEmail:  buyerEmail,
		Orders:      results,
	}
}
