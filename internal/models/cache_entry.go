package models

import (
	"encoding/json"
	"time"
)

// CacheEntry is a cached read with an optional freshness window. ExpiresIn
// of zero means the entry never expires. Expiry is checked lazily on read;
// there is no background sweep.
type CacheEntry struct {
	Key       string          `db:"key" json:"key"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	Timestamp int64           `db:"timestamp" json:"timestamp"`  // epoch millis, set on write
	ExpiresIn int64           `db:"expires_in" json:"expiresIn"` // millis, 0 = no TTL
}

// TableName returns the table name for CacheEntry.
func (CacheEntry) TableName() string {
	return "cache_entries"
}

// Expired reports whether the entry is stale at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	if e.ExpiresIn <= 0 {
		return false
	}
	return now.UnixMilli()-e.Timestamp > e.ExpiresIn
}
