// Package wishlist mirrors the signed-in user's favorite products with
// optimistic local updates.
package wishlist

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"boutique/internal/logger"
	"boutique/internal/models"
)

type Remote interface {
	Wishlist(ctx context.Context, token string) ([]models.Product, error)
	AddToWishlist(ctx context.Context, token string, productID int) error
	RemoveFromWishlist(ctx context.Context, token string, productID int) error
}

// TokenSource yields the bearer token while the session is authenticated.
type TokenSource interface {
	Token() (string, bool)
}

type Store struct {
	mu      sync.RWMutex
	remote  Remote
	auth    TokenSource
	ids     map[int]struct{}
	loading bool
}

func NewStore(remote Remote, auth TokenSource) *Store {
	return &Store{remote: remote, auth: auth, ids: make(map[int]struct{})}
}

// IsInWishlist is a local lookup and never touches the network.
func (s *Store) IsInWishlist(productID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[productID]
	return ok
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs returns the member ids in ascending order.
func (s *Store) IDs() []int {
	s.mu.RLock()
	ids := make([]int, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Ints(ids)
	return ids
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) Add(ctx context.Context, productID int) error {
	return s.run(ctx, setMembership("add to wishlist", productID, true, func(ctx context.Context, token string) error {
		return s.remote.AddToWishlist(ctx, token, productID)
	}))
}

func (s *Store) Remove(ctx context.Context, productID int) error {
	return s.run(ctx, setMembership("remove from wishlist", productID, false, func(ctx context.Context, token string) error {
		return s.remote.RemoveFromWishlist(ctx, token, productID)
	}))
}

func (s *Store) Toggle(ctx context.Context, productID int) error {
	if s.IsInWishlist(productID) {
		return s.Remove(ctx, productID)
	}
	return s.Add(ctx, productID)
}

// Refresh replaces the local set with the server's. Signed out, the set is
// simply emptied.
func (s *Store) Refresh(ctx context.Context) error {
	token, ok := s.auth.Token()
	if !ok {
		s.Reset()
		return nil
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	products, err := s.remote.Wishlist(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.ids = make(map[int]struct{}, len(products))
	if err != nil {
		return fmt.Errorf("failed to fetch wishlist: %w", err)
	}
	for _, p := range products {
		s.ids[p.ID] = struct{}{}
	}
	return nil
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.ids = make(map[int]struct{})
	s.loading = false
	s.mu.Unlock()
}

// Products lists the full favorite products from the server.
func (s *Store) Products(ctx context.Context) ([]models.Product, error) {
	token, ok := s.auth.Token()
	if !ok {
		return []models.Product{}, nil
	}
	products, err := s.remote.Wishlist(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wishlist: %w", err)
	}
	return products, nil
}

// run applies cmd locally, performs its remote effect, and applies the
// inverse when the effect fails. Signed-out calls are no-ops.
func (s *Store) run(ctx context.Context, cmd command) error {
	token, ok := s.auth.Token()
	if !ok {
		return nil
	}

	s.mu.Lock()
	cmd.apply(s.ids)
	s.mu.Unlock()

	if err := cmd.effect(ctx, token); err != nil {
		s.mu.Lock()
		cmd.revert(s.ids)
		s.mu.Unlock()

		logger.Warn("Optimistic update rolled back", "op", cmd.name, "error", err)
		return fmt.Errorf("failed to %s: %w", cmd.name, err)
	}
	return nil
}
