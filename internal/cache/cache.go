// Package cache provides the short-lived read cache used to serve data while
// disconnected.
//
// Values are serialized to JSON on write and deserialized on read; expiry is
// checked lazily on Get and stale rows are deleted in place. There is no
// background sweep.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/barvenue/tabsync/internal/db"
	apperrors "github.com/barvenue/tabsync/internal/errors"
	"github.com/barvenue/tabsync/internal/models"
)

// Store persists cache entries in the local database.
type Store struct {
	db  *db.DB
	log zerolog.Logger
	now func() time.Time
}

// New creates a cache store.
func New(database *db.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  database,
		log: log,
		now: time.Now,
	}
}

// SetRaw stores an already-serialized payload under a key, overwriting any
// previous entry. A zero ttl stores the entry without a freshness window.
func (s *Store) SetRaw(ctx context.Context, key string, payload json.RawMessage, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, payload, timestamp, expires_in)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   payload = excluded.payload,
		   timestamp = excluded.timestamp,
		   expires_in = excluded.expires_in`,
		key, string(payload), s.now().UnixMilli(), ttl.Milliseconds())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to write cache entry", err)
	}
	return nil
}

// GetRaw loads a payload by key. Returns ok=false on a miss; an entry past
// its freshness window is deleted and treated as a miss.
func (s *Store) GetRaw(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var entry models.CacheEntry
	var payload string

	err := s.db.QueryRowContext(ctx,
		"SELECT key, payload, timestamp, expires_in FROM cache_entries WHERE key = ?", key,
	).Scan(&entry.Key, &payload, &entry.Timestamp, &entry.ExpiresIn)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrStorage, "failed to read cache entry", err)
	}

	if entry.Expired(s.now()) {
		if err := s.Delete(ctx, key); err != nil {
			return nil, false, err
		}
		s.log.Debug().Str("key", key).Msg("evicted stale cache entry")
		return nil, false, nil
	}

	return json.RawMessage(payload), true, nil
}

// Delete removes a single entry. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to delete cache entry", err)
	}
	return nil
}

// Clear empties the cache.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries"); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to clear cache", err)
	}
	return nil
}

// Set serializes a value and stores it under a key.
func Set[T any](ctx context.Context, s *Store, key string, value T, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPayloadInvalid, "failed to encode cache value", err)
	}
	return s.SetRaw(ctx, key, payload, ttl)
}

// Get loads and deserializes a value by key. Returns ok=false on a miss or
// an expired entry.
func Get[T any](ctx context.Context, s *Store, key string) (T, bool, error) {
	var value T

	payload, ok, err := s.GetRaw(ctx, key)
	if err != nil || !ok {
		return value, false, err
	}
	if err := json.Unmarshal(payload, &value); err != nil {
		return value, false, apperrors.Wrap(apperrors.ErrPayloadInvalid, "failed to decode cache value", err)
	}
	return value, true, nil
}
