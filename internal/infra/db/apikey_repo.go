package db

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/automaton-store/internal/domain/apikeys"
)

// apiKeyID is the id of the only credential row.
const apiKeyID = 1

type APIKeyRepository struct {
	r runner
}

var _ domain.Repository = (*APIKeyRepository)(nil)

func generateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func currentKey(ctx context.Context, t *txn) (string, error) {
	var key string
	err := t.queryRow(ctx, `SELECT api_key FROM api_key WHERE id = ?`, apiKeyID).Scan(&key)
	return key, err
}

// GetOrCreate returns the active key, issuing one on first use.
func (r *APIKeyRepository) GetOrCreate(ctx context.Context) (*domain.APIKey, error) {
	out := &domain.APIKey{ID: apiKeyID}
	err := r.r.run(ctx, func(t *txn) error {
		key, err := currentKey(ctx, t)
		if err == nil {
			out.Key = key
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if out.Key, err = generateKey(); err != nil {
			return err
		}
		_, err = t.exec(ctx, `INSERT INTO api_key (id, api_key) VALUES (?, ?)`, apiKeyID, out.Key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Refresh replaces the active key. The previous key stops being valid.
func (r *APIKeyRepository) Refresh(ctx context.Context) (*domain.APIKey, error) {
	key, err := generateKey()
	if err != nil {
		return nil, err
	}
	err = r.r.run(ctx, func(t *txn) error {
		if _, err := t.exec(ctx, `DELETE FROM api_key`); err != nil {
			return err
		}
		_, err := t.exec(ctx, `INSERT INTO api_key (id, api_key) VALUES (?, ?)`, apiKeyID, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &domain.APIKey{ID: apiKeyID, Key: key}, nil
}

// IsValid compares candidate against the active key in constant time. Without
// an active key nothing is valid.
func (r *APIKeyRepository) IsValid(ctx context.Context, candidate string) (bool, error) {
	if candidate == "" {
		return false, nil
	}
	var valid bool
	err := r.r.run(ctx, func(t *txn) error {
		key, err := currentKey(ctx, t)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		valid = subtle.ConstantTimeCompare([]byte(key), []byte(candidate)) == 1
		return nil
	})
	return valid, err
}
