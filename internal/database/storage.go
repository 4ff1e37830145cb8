package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Storage keys owned by the client-side stores.
const (
	KeyToken    = "token"
	KeyCart     = "cart"
	KeyPayments = "payments"
)

// ClientStorage is the durable key/value area of a single browser client,
// the server-side counterpart of the browser's local storage.
type ClientStorage struct {
	db       *sql.DB
	clientID string
	sealer   *Sealer
}

// NewClientStorage scopes storage to clientID. Values are sealed at rest
// when sealer is non-nil.
func NewClientStorage(db *sql.DB, clientID string, sealer *Sealer) *ClientStorage {
	return &ClientStorage{db: db, clientID: clientID, sealer: sealer}
}

func (s *ClientStorage) ClientID() string {
	return s.clientID
}

// Get returns the stored value and whether the key exists.
func (s *ClientStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	query := `SELECT value FROM client_storage WHERE client_id = ? AND key = ?`

	err := s.db.QueryRowContext(ctx, query, s.clientID, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if s.sealer != nil {
		plain, err := s.sealer.Open(value)
		if err != nil {
			return "", false, fmt.Errorf("failed to open %s: %w", key, err)
		}
		value = plain
	}

	return value, true, nil
}

// Set writes a full snapshot of key, replacing any previous value.
func (s *ClientStorage) Set(ctx context.Context, key, value string) error {
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(value)
		if err != nil {
			return fmt.Errorf("failed to seal %s: %w", key, err)
		}
		value = sealed
	}

	query := `
		INSERT INTO client_storage (client_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(client_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, s.clientID, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *ClientStorage) Remove(ctx context.Context, key string) error {
	query := `DELETE FROM client_storage WHERE client_id = ? AND key = ?`
	if _, err := s.db.ExecContext(ctx, query, s.clientID, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}
