package checkout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/chainbazzar/chainbazzar/internal/checkout"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestReceiptStore(t *testing.T) (*checkout.ReceiptStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return checkout.NewReceiptStore(client), mr
}

func TestReceiptStore_TakeReturnsStoredReceiptOnce(t *testing.T) {
	store, _ := newTestReceiptStore(t)
	ctx := context.Background()

	stored := checkout.BuildReceipt("buyer@example.com", []checkout.OrderResult{
		{SellerID: 10, OrderID: 101, TxHashes: []string{"0xabc1"}},
		{SellerID: 20, Err: "insufficient stock"},
	})
	assert.NoError(t, store.Put(ctx, 7, stored))

	got, err := store.Take(ctx, 7)
	assert.NoError(t, err)
	assert.Equal(t, stored.OrderNumber, got.OrderNumber)
	assert.Equal(t, "buyer@example.com", got.BuyerEmail)
	assert.Equal(t, stored.Orders, got.Orders)

	// Read-once: the first Take deleted the receipt.
	_, err = store.Take(ctx, 7)
	assert.True(t, errors.Is(err, checkout.ErrNoReceipt))
}

func TestReceiptStore_TakeWithoutPut(t *testing.T) {
	store, _ := newTestReceiptStore(t)

	receipt, err := store.Take(context.Background(), 7)
	assert.Nil(t, receipt)
	assert.True(t, errors.Is(err, checkout.ErrNoReceipt))
}

func TestReceiptStore_ReceiptsAreIsolatedPerBuyer(t *testing.T) {
	store, _ := newTestReceiptStore(t)
	ctx := context.Background()

	assert.NoError(t, store.Put(ctx, 1, checkout.BuildReceipt("one@example.com", nil)))
	assert.NoError(t, store.Put(ctx, 2, checkout.BuildReceipt("two@example.com", nil)))

	got, err := store.Take(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, "one@example.com", got.BuyerEmail)

	got, err = store.Take(ctx, 2)
	assert.NoError(t, err)
	assert.Equal(t, "two@example.com", got.BuyerEmail)
}

func TestReceiptStore_UnreadReceiptExpires(t *testing.T) {
	store, mr := newTestReceiptStore(t)
	ctx := context.Background()

	assert.NoError(t, store.Put(ctx, 7, checkout.BuildReceipt("buyer@example.com", nil)))
	assert.Equal(t, 24*time.Hour, mr.TTL("lastOrder:7"))

	mr.FastForward(25 * time.Hour)
	_, err := store.Take(ctx, 7)
	assert.True(t, errors.Is(err, checkout.ErrNoReceipt))
}
