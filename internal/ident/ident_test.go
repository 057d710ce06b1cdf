// Package ident provides unit tests for id generation and validation.
package ident

import (
	"strings"
	"testing"
	"time"
)

// TestNew tests that New() generates ids in the documented format.
func TestNew(t *testing.T) {
	id := New("expense")

	if id == "" {
		t.Fatal("Expected non-empty id")
	}
	if !strings.HasPrefix(id, "expense_") {
		t.Errorf("Expected expense_ prefix, got %q", id)
	}
	if !IsValid(id) {
		t.Errorf("Expected valid entry id, got %q", id)
	}
}

// TestNewUnique tests that consecutive ids do not collide.
func TestNewUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New("payment")
		if seen[id] {
			t.Fatalf("Duplicate id generated: %q", id)
		}
		seen[id] = true
	}
}

// TestKindAndTimestamp tests round-tripping the embedded segments.
func TestKindAndTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	id := NewAt("tab", at)

	kind, err := Kind(id)
	if err != nil {
		t.Fatalf("Kind failed: %v", err)
	}
	if kind != "tab" {
		t.Errorf("Expected kind tab, got %q", kind)
	}

	ts, err := Timestamp(id)
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if !ts.Equal(at) {
		t.Errorf("Expected timestamp %v, got %v", at, ts)
	}
}

// TestLocalTabPlaceholder tests placeholder generation and detection.
func TestLocalTabPlaceholder(t *testing.T) {
	id := NewLocalTab()

	if !IsLocalTab(id) {
		t.Errorf("Expected %q to be detected as a local tab", id)
	}
	kind, err := Kind(id)
	if err != nil {
		t.Fatalf("Kind failed: %v", err)
	}
	if kind != LocalTabPrefix {
		t.Errorf("Expected kind %q, got %q", LocalTabPrefix, kind)
	}

	if IsLocalTab("tab_1700000000000_abcdef01") {
		t.Error("Expected non-placeholder id to be rejected")
	}
	if IsLocalTab("42") {
		t.Error("Expected numeric server id to be rejected")
	}
}

// TestValidateRejectsMalformed tests the validation error paths.
func TestValidateRejectsMalformed(t *testing.T) {
	invalid := []string{
		"",
		"expense",
		"expense_abc_12345678",
		"expense_1700000000000",
		"expense_1700000000000_XYZ",
		"Expense_1700000000000_abcdef01",
	}

	for _, id := range invalid {
		if err := Validate(id); err == nil {
			t.Errorf("Expected Validate(%q) to fail", id)
		}
		if _, err := Kind(id); err == nil {
			t.Errorf("Expected Kind(%q) to fail", id)
		}
	}
}
