// Package cart is the persisted shopping cart of one storefront client.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"boutique/internal/database"
	"boutique/internal/logger"
	"boutique/internal/models"

	"github.com/shopspring/decimal"
)

type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Store keeps line items in the order products were first added, at most
// one line per product id. Every mutation is written through to storage as
// a full snapshot.
type Store struct {
	mu      sync.Mutex
	storage Storage
	items   []models.CartItem
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage, items: []models.CartItem{}}
}

// Restore loads the persisted snapshot. An unreadable snapshot leaves the
// cart empty.
func (s *Store) Restore(ctx context.Context) error {
	raw, ok, err := s.storage.Get(ctx, database.KeyCart)
	if err != nil {
		return fmt.Errorf("failed to restore cart: %w", err)
	}

	items := []models.CartItem{}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			logger.Warn("Discarding unreadable cart snapshot", "error", err)
			items = []models.CartItem{}
		}
	}

	s.mu.Lock()
	s.items = sanitize(items)
	s.mu.Unlock()
	return nil
}

func (s *Store) AddOrIncrement(ctx context.Context, product models.Product) error {
	return s.apply(ctx, func(items []models.CartItem) []models.CartItem {
		return addOrIncrement(items, product)
	})
}

func (s *Store) Decrement(ctx context.Context, productID int) error {
	return s.apply(ctx, func(items []models.CartItem) []models.CartItem {
		return decrement(items, productID)
	})
}

func (s *Store) Remove(ctx context.Context, productID int) error {
	return s.apply(ctx, func(items []models.CartItem) []models.CartItem {
		return remove(items, productID)
	})
}

func (s *Store) Clear(ctx context.Context) error {
	return s.apply(ctx, func([]models.CartItem) []models.CartItem {
		return []models.CartItem{}
	})
}

// Items returns a copy of the line items.
func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartItem{}, s.items...)
}

// Quantity of productID in the cart, zero when absent.
func (s *Store) Quantity(productID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.items, productID); i >= 0 {
		return s.items[i].Quantity
	}
	return 0
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalItems(s.items)
}

// TotalPrice is the pre-tax total, Σ price × quantity.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalPrice(s.items)
}

// TotalPriceWithTax is Σ price × (1 + tax/100) × quantity.
func (s *Store) TotalPriceWithTax() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalPriceWithTax(s.items)
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

// apply runs reduce over the latest state and persists the result. The
// write happens under the lock so snapshots land in mutation order. The
// in-memory state is updated even when the write fails.
func (s *Store) apply(ctx context.Context, reduce func([]models.CartItem) []models.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = reduce(s.items)
	snapshot, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.storage.Set(ctx, database.KeyCart, string(snapshot)); err != nil {
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	return nil
}
