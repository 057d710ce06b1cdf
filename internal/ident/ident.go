// Package ident provides identifier generation and validation for queue
// entries and offline placeholder ids.
package ident

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalTabPrefix marks a client-generated tab id created while offline. The
// prefix keeps placeholders textually distinct from numeric server ids until
// sync reconciles them.
const LocalTabPrefix = "tab_offline"

// Entry id format: <kind>_<epochMillis>_<suffix>
// where suffix is the first 8 hex characters of a UUID v4.
var entryIDRegex = regexp.MustCompile(`^([a-z]+(?:_[a-z]+)*)_(\d{10,})_([0-9a-f]{8})$`)

// New generates a unique id for a queue entry of the given kind, encoding the
// kind, the current time in epoch milliseconds and a random suffix.
func New(kind string) string {
	return NewAt(kind, time.Now())
}

// NewAt generates an entry id with an explicit timestamp. Exposed for tests
// that need deterministic time ordering.
func NewAt(kind string, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s", kind, at.UnixMilli(), suffix)
}

// NewLocalTab generates a placeholder id for a tab opened while offline.
func NewLocalTab() string {
	return NewAt(LocalTabPrefix, time.Now())
}

// IsLocalTab reports whether an id is an offline tab placeholder.
func IsLocalTab(id string) bool {
	return strings.HasPrefix(id, LocalTabPrefix+"_")
}

// Kind extracts the kind segment from an entry id.
// Returns an error if the id does not match the entry id format.
func Kind(id string) (string, error) {
	m := entryIDRegex.FindStringSubmatch(id)
	if m == nil {
		return "", fmt.Errorf("invalid entry id: %q", id)
	}
	return m[1], nil
}

// Timestamp extracts the embedded epoch-millisecond timestamp from an entry id.
func Timestamp(id string) (time.Time, error) {
	m := entryIDRegex.FindStringSubmatch(id)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid entry id: %q", id)
	}
	ms, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp in entry id %q: %w", id, err)
	}
	return time.UnixMilli(ms), nil
}

// IsValid checks if a string matches the entry id format.
func IsValid(id string) bool {
	return entryIDRegex.MatchString(id)
}

// Validate returns an error if the string does not match the entry id format.
func Validate(id string) error {
	if !IsValid(id) {
		return fmt.Errorf("invalid entry id format: %q", id)
	}
	return nil
}
