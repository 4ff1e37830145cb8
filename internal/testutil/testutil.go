// Package testutil holds fakes shared by the package tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"boutique/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

// MemStorage is an in-memory stand-in for database.ClientStorage.
type MemStorage struct {
	mu     sync.Mutex
	values map[string]string
	Fail   bool

	// FailGets makes the next n reads fail while writes still succeed.
	// FailGetKey limits the failures to one key.
	FailGets   int
	FailGetKey string
	// GetErr replaces ErrStorage for failed reads.
	GetErr error
}

func NewMemStorage() *MemStorage {
	return &MemStorage{values: make(map[string]string)}
}

var ErrStorage = errors.New("storage unavailable")

func (m *MemStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGets > 0 && (m.FailGetKey == "" || m.FailGetKey == key) {
		m.FailGets--
		if m.GetErr != nil {
			return "", false, m.GetErr
		}
		return "", false, ErrStorage
	}
	if m.Fail {
		return "", false, ErrStorage
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrStorage
	}
	m.values[key] = value
	return nil
}

func (m *MemStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrStorage
	}
	delete(m.values, key)
	return nil
}

// Has reports whether key is currently stored.
func (m *MemStorage) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

// Token signs a shop API style token that expires at exp.
func Token(id int, email, firstname string, exp time.Time) string {
	claims := jwt.MapClaims{
		"id":        id,
		"username":  email,
		"firstname": firstname,
		"lastname":  "Martin",
		"roles":     []string{"ROLE_USER"},
		"exp":       exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return signed
}

// Product builds a catalog product with a price and a tax rate in percent.
func Product(id int, name string, price, tax string) models.Product {
	return models.Product{
		ID:      id,
		Name:    name,
		Slug:    name,
		Price:   decimal.RequireFromString(price),
		TaxRate: decimal.RequireFromString(tax),
	}
}
