// Package queue provides the durable store of pending offline writes.
//
// Each queue kind (expense, payment, tab) is a namespace inside a single
// SQLite table. Entries are appended while disconnected and drained by the
// sync orchestrator; an entry marked synced is never re-applied remotely.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/barvenue/tabsync/internal/db"
	apperrors "github.com/barvenue/tabsync/internal/errors"
	"github.com/barvenue/tabsync/internal/ident"
	"github.com/barvenue/tabsync/internal/models"
)

// Payload is implemented by every queue payload kind.
type Payload interface {
	Validate() error
}

// Entry is one pending write of a concrete payload kind.
type Entry[P Payload] struct {
	ID        string
	Payload   P
	Timestamp int64 // epoch millis, set at enqueue, never mutated
	Synced    bool
	Error     string
	Attempts  int
}

// Time returns the enqueue timestamp as time.Time.
func (e *Entry[P]) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Store persists queue entries of one kind.
type Store[P Payload] struct {
	db         *db.DB
	kind       string
	maxPending int // 0 = unbounded
	log        zerolog.Logger
	now        func() time.Time
}

// NewStore creates a queue store for one kind. maxPending bounds the number
// of unsynced entries accepted by Add; zero disables the bound.
func NewStore[P Payload](database *db.DB, kind string, maxPending int, log zerolog.Logger) *Store[P] {
	return &Store[P]{
		db:         database,
		kind:       kind,
		maxPending: maxPending,
		log:        log.With().Str("kind", kind).Logger(),
		now:        time.Now,
	}
}

// Kind returns the queue namespace this store persists.
func (s *Store[P]) Kind() string {
	return s.kind
}

// Add validates and persists a new unsynced entry, returning its id.
// Add is purely local and never depends on the network. A storage failure
// propagates to the caller.
func (s *Store[P]) Add(ctx context.Context, payload P) (string, error) {
	if err := payload.Validate(); err != nil {
		return "", apperrors.Wrap(apperrors.ErrPayloadInvalid, "invalid "+s.kind+" payload", err)
	}

	if s.maxPending > 0 {
		var pending int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM queue_entries WHERE kind = ? AND synced = 0", s.kind,
		).Scan(&pending)
		if err != nil {
			return "", apperrors.Wrap(apperrors.ErrStorage, "failed to count pending entries", err)
		}
		if pending >= s.maxPending {
			return "", apperrors.New(apperrors.ErrQueueFull,
				fmt.Sprintf("%s queue is full (max pending: %d)", s.kind, s.maxPending))
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrPayloadInvalid, "failed to encode payload", err)
	}

	now := s.now()
	id := ident.NewAt(s.kind, now)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO queue_entries (id, kind, payload, timestamp, synced, error, attempts)
		 VALUES (?, ?, ?, ?, 0, '', 0)`,
		id, s.kind, string(raw), now.UnixMilli())
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrStorage, "failed to persist entry", err)
	}

	s.log.Debug().Str("id", id).Msg("enqueued entry")

	return id, nil
}

// Get returns a single entry by id.
func (s *Store[P]) Get(ctx context.Context, id string) (*Entry[P], error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, payload, timestamp, synced, error, attempts
		 FROM queue_entries WHERE kind = ? AND id = ?`, s.kind, id)

	entry, err := s.scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.ErrEntryNotFound, "entry "+id+" not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to load entry", err)
	}
	return entry, nil
}

// GetAll returns every persisted entry of this kind, synced ones included,
// ordered by enqueue time.
func (s *Store[P]) GetAll(ctx context.Context) ([]Entry[P], error) {
	return s.query(ctx,
		`SELECT id, payload, timestamp, synced, error, attempts
		 FROM queue_entries WHERE kind = ? ORDER BY timestamp, id`, s.kind)
}

// GetUnsynced returns the entries still awaiting a successful remote apply,
// ordered by enqueue time.
func (s *Store[P]) GetUnsynced(ctx context.Context) ([]Entry[P], error) {
	return s.query(ctx,
		`SELECT id, payload, timestamp, synced, error, attempts
		 FROM queue_entries WHERE kind = ? AND synced = 0 ORDER BY timestamp, id`, s.kind)
}

// MarkSynced records a successful remote apply. Optional mutators adjust the
// payload in the same write, used by tab entries to record the server-issued
// id alongside the synced flag.
func (s *Store[P]) MarkSynced(ctx context.Context, id string, mutate ...func(*P)) error {
	if len(mutate) == 0 {
		res, err := s.db.ExecContext(ctx,
			"UPDATE queue_entries SET synced = 1 WHERE kind = ? AND id = ?", s.kind, id)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, "failed to mark entry synced", err)
		}
		return s.requireRow(res, id)
	}

	entry, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	for _, m := range mutate {
		m(&entry.Payload)
	}
	raw, err := json.Marshal(entry.Payload)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPayloadInvalid, "failed to encode payload", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE queue_entries SET synced = 1, payload = ? WHERE kind = ? AND id = ?",
		string(raw), s.kind, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to mark entry synced", err)
	}
	return s.requireRow(res, id)
}

// MarkError records a failed remote apply. The synced flag is untouched, the
// previous error message is overwritten and the attempt counter is bumped.
func (s *Store[P]) MarkError(ctx context.Context, id, message string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE queue_entries SET error = ?, attempts = attempts + 1 WHERE kind = ? AND id = ?",
		message, s.kind, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to record entry error", err)
	}
	return s.requireRow(res, id)
}

// Remove deletes a single entry regardless of sync state.
func (s *Store[P]) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM queue_entries WHERE kind = ? AND id = ?", s.kind, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to remove entry", err)
	}
	return s.requireRow(res, id)
}

// ClearSynced deletes every entry already applied remotely, returning the
// number of rows swept. Used as the post-sync sweep.
func (s *Store[P]) ClearSynced(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM queue_entries WHERE kind = ? AND synced = 1", s.kind)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to clear synced entries", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to count cleared entries", err)
	}
	if n > 0 {
		s.log.Debug().Int64("count", n).Msg("swept synced entries")
	}
	return int(n), nil
}

// ClearAll deletes every entry of this kind. Destructive reset, distinct
// from the post-sync sweep.
func (s *Store[P]) ClearAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM queue_entries WHERE kind = ?", s.kind)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to clear queue", err)
	}
	return nil
}

// Stats summarizes the current queue state by scanning persisted entries.
func (s *Store[P]) Stats(ctx context.Context) (models.SyncStats, error) {
	var stats models.SyncStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN synced = 0 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(synced), 0),
		        COALESCE(SUM(CASE WHEN error != '' AND synced = 0 THEN 1 ELSE 0 END), 0)
		 FROM queue_entries WHERE kind = ?`, s.kind,
	).Scan(&stats.Total, &stats.Pending, &stats.Synced, &stats.Errors)
	if err != nil {
		return models.SyncStats{}, apperrors.Wrap(apperrors.ErrStorage, "failed to compute stats", err)
	}
	return stats, nil
}

func (s *Store[P]) query(ctx context.Context, q string, args ...any) ([]Entry[P], error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to query entries", err)
	}
	defer rows.Close()

	var entries []Entry[P]
	for rows.Next() {
		entry, err := s.scanEntry(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to scan entry", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to iterate entries", err)
	}
	return entries, nil
}

func (s *Store[P]) scanEntry(scan func(...any) error) (*Entry[P], error) {
	var entry Entry[P]
	var raw string
	var synced int

	if err := scan(&entry.ID, &raw, &entry.Timestamp, &synced, &entry.Error, &entry.Attempts); err != nil {
		return nil, err
	}
	entry.Synced = synced == 1

	if err := json.Unmarshal([]byte(raw), &entry.Payload); err != nil {
		return nil, fmt.Errorf("corrupt payload for entry %s: %w", entry.ID, err)
	}
	return &entry, nil
}

func (s *Store[P]) requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to check affected rows", err)
	}
	if n == 0 {
		return apperrors.New(apperrors.ErrEntryNotFound, "entry "+id+" not found")
	}
	return nil
}
