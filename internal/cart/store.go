package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chainbazzar/chainbazzar/internal/domain/models"
)

// Persister synchronizes a user's cart with durable storage. The store is
// the only caller; handlers never touch the persister directly.
type Persister interface {
	Load(ctx context.Context, userID int64) ([]models.CartLine, error)
	Save(ctx context.Context, userID int64, lines []models.CartLine) error
	Delete(ctx context.Context, userID int64) error
}

// Store holds per-user carts behind deterministic reducer-style mutators.
// Every mutation loads the current lines, applies a pure reducer and writes
// the result back through the persister.
type Store struct {
	log       *slog.Logger
	mu        sync.Mutex
	persister Persister
}

func NewStore(log *slog.Logger, persister Persister) *Store {
	return &Store{
		log:       log,
		persister: persister,
	}
}

// Lines returns the user's current cart.
func (s *Store) Lines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persister.Load(ctx, userID)
}

// AddLine appends the line, or bumps the quantity if the product is already
// in the cart.
func (s *Store) AddLine(ctx context.Context, userID int64, line models.CartLine) ([]models.CartLine, error) {
	const op = "cart.Store.AddLine"
	if err := Validate([]models.CartLine{line}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.mutate(ctx, op, userID, func(lines []models.CartLine) []models.CartLine {
		return reduceAdd(lines, line)
	})
}

// RemoveLine drops the product from the cart. Removing an absent product is
// a no-op.
func (s *Store) RemoveLine(ctx context.Context, userID int64, productID int64) ([]models.CartLine, error) {
	const op = "cart.Store.RemoveLine"
	return s.mutate(ctx, op, userID, func(lines []models.CartLine) []models.CartLine {
		return reduceRemove(lines, productID)
	})
}

// SetQuantity replaces the quantity of the product's line. Quantity zero
// removes the line.
func (s *Store) SetQuantity(ctx context.Context, userID int64, productID int64, quantity int) ([]models.CartLine, error) {
	const op = "cart.Store.SetQuantity"
	if quantity < 0 {
		return nil, fmt.Errorf("%s: %w", op, &ValidationError{ProductID: productID, Reason: "quantity must not be negative"})
	}
	return s.mutate(ctx, op, userID, func(lines []models.CartLine) []models.CartLine {
		return reduceSetQuantity(lines, productID, quantity)
	})
}

// Clear empties the user's cart.
func (s *Store) Clear(ctx context.Context, userID int64) error {
	const op = "cart.Store.Clear"
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persister.Delete(ctx, userID); err != nil {
		s.log.Error("failed to clear cart", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) mutate(ctx context.Context, op string, userID int64, reduce func([]models.CartLine) []models.CartLine) ([]models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.persister.Load(ctx, userID)
	if err != nil {
		s.log.Error("failed to load cart", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load cart: %w", op, err)
	}

	next := reduce(lines)

	if err := s.persister.Save(ctx, userID, next); err != nil {
		s.log.Error("failed to save cart", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to save cart: %w", op, err)
	}
	return next, nil
}

// Pure reducers. They never mutate the input slice.

func reduceAdd(lines []models.CartLine, line models.CartLine) []models.CartLine {
	next := make([]models.CartLine, len(lines))
	copy(next, lines)
	for i := range next {
		if next[i].ProductID == line.ProductID {
			next[i].Quantity += line.Quantity
			return next
		}
	}
	return append(next, line)
}

func reduceRemove(lines []models.CartLine, productID int64) []models.CartLine {
	next := make([]models.CartLine, 0, len(lines))
	for _, l := range lines {
		if l.ProductID != productID {
			next = append(next, l)
		}
	}
	return next
}

func reduceSetQuantity(lines []models.CartLine, productID int64, quantity int) []models.CartLine {
	if quantity == 0 {
		return reduceRemove(lines, productID)
	}
	next := make([]models.CartLine, len(lines))
	copy(next, lines)
	for i := range next {
		if next[i].ProductID == productID {
			next[i].Quantity = quantity
		}
	}
	return next
}
