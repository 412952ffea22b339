package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNoReceipt = errors.New("no stored receipt")

// receiptTTL bounds how long an unread receipt survives before the
// confirmation page picks it up.
const receiptTTL = 24 * time.Hour

// ReceiptStore holds the last checkout receipt per buyer with read-once
// semantics: Take returns the receipt and deletes it atomically, so a
// second read finds nothing.
type ReceiptStore struct {
	client *redis.Client
}

func NewReceiptStore(client *redis.Client) *ReceiptStore {
	return &ReceiptStore{client: client}
}

func (s *ReceiptStore) Put(ctx context.Context, userID int64, receipt *Receipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshal receipt failed: %w", err)
	}
	if err := s.client.Set(ctx, receiptKey(userID), data, receiptTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *ReceiptStore) Take(ctx context.Context, userID int64) (*Receipt, error) {
	data, err := s.client.GetDel(ctx, receiptKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoReceipt
	}
	if err != nil {
		return nil, fmt.Errorf("redis getdel failed: %w", err)
	}

	var receipt Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("unmarshal receipt failed: %w", err)
	}
	return &receipt, nil
}

func receiptKey(userID int64) string {
	return fmt.Sprintf("lastOrder:%d", userID)
}
