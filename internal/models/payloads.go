package models

import (
	"fmt"
)

// Queue kinds. Each kind is persisted in its own namespace of the queue
// store and drained by its own remote applier.
const (
	KindExpense = "expense"
	KindPayment = "payment"
	KindTab     = "tab"
)

// ExpensePayload is a pending "add item to tab" write.
type ExpensePayload struct {
	Tab      TabRef `json:"tabId"`
	ItemID   int64  `json:"itemId"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

// Validate checks the payload invariants before enqueueing.
func (p ExpensePayload) Validate() error {
	if p.Tab.IsZero() {
		return fmt.Errorf("expense requires a tab reference")
	}
	if p.ItemID <= 0 {
		return fmt.Errorf("expense requires a positive item id, got %d", p.ItemID)
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("expense quantity must be positive, got %d", p.Quantity)
	}
	return nil
}

// PaymentPayload is a pending "add payment to tab" write.
type PaymentPayload struct {
	Tab    TabRef  `json:"tabId"`
	Amount float64 `json:"amount"`
	Method string  `json:"paymentMethod"`
}

// Validate checks the payload invariants before enqueueing.
func (p PaymentPayload) Validate() error {
	if p.Tab.IsZero() {
		return fmt.Errorf("payment requires a tab reference")
	}
	if p.Amount <= 0 {
		return fmt.Errorf("payment amount must be positive, got %v", p.Amount)
	}
	if p.Method == "" {
		return fmt.Errorf("payment requires a method")
	}
	return nil
}

// TabPayload is a pending "open tab" write. LocalID is the placeholder id
// handed to the caller at enqueue time; ServerTabID is recorded only after a
// successful sync, letting dependent expenses and payments swap the
// placeholder for the authoritative id.
type TabPayload struct {
	LocalID     string `json:"localId"`
	CustomerID  string `json:"customerId,omitempty"`
	ServerTabID string `json:"serverTabId,omitempty"`
}

// Validate checks the payload invariants before enqueueing.
func (p TabPayload) Validate() error {
	if p.LocalID == "" {
		return fmt.Errorf("tab requires a local placeholder id")
	}
	return nil
}
