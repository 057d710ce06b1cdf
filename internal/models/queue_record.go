package models

import (
	"encoding/json"
	"time"
)

// QueueRecord is the persisted row form of a queue entry. The payload stays
// an opaque JSON document at this layer; the queue store decodes it into the
// kind's concrete payload type.
type QueueRecord struct {
	ID        string          `db:"id" json:"id"`
	Kind      string          `db:"kind" json:"kind"` // expense, payment, tab
	Payload   json.RawMessage `db:"payload" json:"payload"`
	Timestamp int64           `db:"timestamp" json:"timestamp"` // epoch millis, set at enqueue
	Synced    bool            `db:"synced" json:"synced"`
	Error     string          `db:"error" json:"error,omitempty"`
	Attempts  int             `db:"attempts" json:"attempts"`
}

// TableName returns the table name for QueueRecord.
func (QueueRecord) TableName() string {
	return "queue_entries"
}

// Time returns the enqueue timestamp as time.Time.
func (r *QueueRecord) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}
