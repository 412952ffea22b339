package cart

import (
	"fmt"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/shopspring/decimal"
)

// TaxRate is the flat marketplace tax applied to every seller group.
// Policy constant, not a computed value.
var TaxRate = decimal.NewFromFloat(0.10)

// SellerGroup is the partition of cart lines belonging to one seller,
// with derived totals. Recomputed on every cart mutation, never persisted
// on its own.
type SellerGroup struct {
	SellerID int64
	Lines    []models.CartLine
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ValidationError reports a malformed cart line. Raised before any network
// call is made.
type ValidationError struct {
	ProductID int64
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid cart line (product %d): %s", e.ProductID, e.Reason)
}

// GroupBySeller partitions cart lines by seller, preserving the order
// sellers first appear in the input. Every line lands in exactly one group.
// An empty cart yields an empty slice, which callers must treat as
// "nothing to order" rather than a failure.
func GroupBySeller(lines []models.CartLine) ([]SellerGroup, error) {
	if err := Validate(lines); err != nil {
		return nil, err
	}

	var groups []SellerGroup
	index := make(map[int64]int, len(lines))

	for _, line := range lines {
		i, ok := index[line.SellerID]
		if !ok {
			i = len(groups)
			index[line.SellerID] = i
			groups = append(groups, SellerGroup{SellerID: line.SellerID})
		}
		g := &groups[i]
		g.Lines = append(g.Lines, line)
		g.Subtotal = g.Subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	for i := range groups {
		groups[i].Tax = groups[i].Subtotal.Mul(TaxRate)
		groups[i].Total = groups[i].Subtotal.Add(groups[i].Tax)
	}
	return groups, nil
}

// Validate checks the cart line invariants: quantity >= 1, price >= 0.
func Validate(lines []models.CartLine) error {
	for _, line := range lines {
		if line.Quantity < 1 {
			return &ValidationError{ProductID: line.ProductID, Reason: "quantity must be at least 1"}
		}
		if line.UnitPrice.IsNegative() {
			return &ValidationError{ProductID: line.ProductID, Reason: "unit price must not be negative"}
		}
	}
	return nil
}
