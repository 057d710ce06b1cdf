// Package models provides data model definitions for the tabsync core.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/barvenue/tabsync/internal/ident"
)

// TabRef identifies a tab either by a server-issued id or by a local
// placeholder generated while offline. The two cases are kept distinct so
// resolution logic never has to sniff string prefixes outside this type.
type TabRef struct {
	local  string
	remote string
}

// RemoteTab creates a reference to a server-issued tab id.
func RemoteTab(id string) TabRef {
	return TabRef{remote: id}
}

// LocalTab creates a reference to an offline placeholder id.
func LocalTab(id string) TabRef {
	return TabRef{local: id}
}

// NewLocalTab creates a reference with a freshly generated placeholder id.
func NewLocalTab() TabRef {
	return TabRef{local: ident.NewLocalTab()}
}

// IsLocal reports whether the reference is an offline placeholder.
func (r TabRef) IsLocal() bool {
	return r.local != ""
}

// IsZero reports whether the reference is empty.
func (r TabRef) IsZero() bool {
	return r.local == "" && r.remote == ""
}

// LocalID returns the placeholder id, or "" for remote references.
func (r TabRef) LocalID() string {
	return r.local
}

// RemoteID returns the server-issued id, or "" for local references.
func (r TabRef) RemoteID() string {
	return r.remote
}

// String returns the wire form of the reference. Local placeholders keep
// their distinct tab_offline_ prefix; remote ids pass through unchanged.
func (r TabRef) String() string {
	if r.IsLocal() {
		return r.local
	}
	return r.remote
}

// ParseTabRef parses the wire form of a tab reference. The serialization
// boundary is the only place the placeholder prefix is inspected.
func ParseTabRef(s string) (TabRef, error) {
	if s == "" {
		return TabRef{}, fmt.Errorf("empty tab reference")
	}
	if ident.IsLocalTab(s) {
		return LocalTab(s), nil
	}
	return RemoteTab(s), nil
}

// MarshalJSON encodes the reference as its wire string.
func (r TabRef) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes either a string or a bare number. The venue server
// issues numeric tab ids, so payloads recorded from its responses carry
// JSON numbers while placeholders carry strings.
func (r *TabRef) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = TabRef{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		ref, perr := ParseTabRef(s)
		if perr != nil {
			return perr
		}
		*r = ref
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("tab reference must be a string or number: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("invalid numeric tab id %q", n.String())
	}
	*r = RemoteTab(n.String())
	return nil
}
