package cart_test

import (
	"errors"
	"testing"

	"github.com/chainbazzar/chainbazzar/internal/cart"
	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func line(productID, sellerID int64, price string, qty int) models.CartLine {
	return models.CartLine{
		ProductID: productID,
		SellerID:  sellerID,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func TestGroupBySeller_TwoSellers(t *testing.T) {
	lines := []models.CartLine{
		line(1, 10, "10.00", 2), // seller 10: subtotal 20
		line(2, 20, "5.00", 1),  // seller 20: subtotal 5
	}

	groups, err := cart.GroupBySeller(lines)
	assert.NoError(t, err)
	assert.Len(t, groups, 2)

	assert.Equal(t, int64(10), groups[0].SellerID)
	assert.True(t, groups[0].Subtotal.Equal(decimal.RequireFromString("20")), "subtotal should be 20, got %s", groups[0].Subtotal)
	assert.True(t, groups[0].Tax.Equal(decimal.RequireFromString("2")), "tax should be 2, got %s", groups[0].Tax)
	assert.True(t, groups[0].Total.Equal(decimal.RequireFromString("22")), "total should be 22, got %s", groups[0].Total)

	assert.Equal(t, int64(20), groups[1].SellerID)
	assert.True(t, groups[1].Subtotal.Equal(decimal.RequireFromString("5")))
	assert.True(t, groups[1].Tax.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, groups[1].Total.Equal(decimal.RequireFromString("5.5")))
}

func TestGroupBySeller_EveryLineLandsInExactlyOneGroup(t *testing.T) {
	lines := []models.CartLine{
		line(1, 10, "1.00", 1),
		line(2, 20, "1.00", 1),
		line(3, 10, "1.00", 1),
		line(4, 30, "1.00", 1),
		line(5, 20, "1.00", 1),
	}

	groups, err := cart.GroupBySeller(lines)
	assert.NoError(t, err)

	total := 0
	seen := make(map[int64]bool)
	for _, g := range groups {
		total += len(g.Lines)
		for _, l := range g.Lines {
			assert.Equal(t, g.SellerID, l.SellerID)
			assert.False(t, seen[l.ProductID], "product %d appeared twice", l.ProductID)
			seen[l.ProductID] = true
		}
	}
	assert.Equal(t, len(lines), total)
}

func TestGroupBySeller_PreservesFirstAppearanceOrder(t *testing.T) {
	lines := []models.CartLine{
		line(1, 30, "1.00", 1),
		line(2, 10, "1.00", 1),
		line(3, 30, "1.00", 1),
		line(4, 20, "1.00", 1),
	}

	groups, err := cart.GroupBySeller(lines)
	assert.NoError(t, err)
	assert.Len(t, groups, 3)
	assert.Equal(t, int64(30), groups[0].SellerID)
	assert.Equal(t, int64(10), groups[1].SellerID)
	assert.Equal(t, int64(20), groups[2].SellerID)
}

func TestGroupBySeller_Deterministic(t *testing.T) {
	lines := []models.CartLine{
		line(1, 10, "3.33", 3),
		line(2, 20, "7.77", 1),
		line(3, 10, "0.01", 100),
	}

	first, err := cart.GroupBySeller(lines)
	assert.NoError(t, err)
	second, err := cart.GroupBySeller(lines)
	assert.NoError(t, err)

	assert.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].SellerID, second[i].SellerID)
		assert.True(t, first[i].Total.Equal(second[i].Total))
	}
}

func TestGroupBySeller_EmptyCart(t *testing.T) {
	groups, err := cart.GroupBySeller(nil)
	assert.NoError(t, err)
	assert.Empty(t, groups)
}

func TestGroupBySeller_ZeroQuantityRejected(t *testing.T) {
	lines := []models.CartLine{line(1, 10, "10.00", 0)}

	_, err := cart.GroupBySeller(lines)
	assert.Error(t, err)

	var vErr *cart.ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.Equal(t, int64(1), vErr.ProductID)
}

func TestGroupBySeller_NegativePriceRejected(t *testing.T) {
	lines := []models.CartLine{line(7, 10, "-0.01", 1)}

	_, err := cart.GroupBySeller(lines)
	assert.Error(t, err)

	var vErr *cart.ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.Equal(t, int64(7), vErr.ProductID)
}

func TestGroupBySeller_ZeroPriceAllowed(t *testing.T) {
	lines := []models.CartLine{line(1, 10, "0", 3)}

	groups, err := cart.GroupBySeller(lines)
	assert.NoError(t, err)
	assert.Len(t, groups, 1)
	assert.True(t, groups[0].Total.IsZero())
}
