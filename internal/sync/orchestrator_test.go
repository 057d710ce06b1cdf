// Package sync provides unit tests for the sync orchestrator.
package sync

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/barvenue/tabsync/internal/models"
)

// TestSyncOfflinePrecondition tests that an offline pass touches nothing.
func TestSyncOfflinePrecondition(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.monitor.SetOnline(false)

	if _, err := fx.stores.Expenses.Add(ctx, models.ExpensePayload{
		Tab: models.RemoteTab("1"), ItemID: 10, Quantity: 2,
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	orch := fx.orchestrator(Options{})
	result, err := orch.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.Success {
		t.Error("Expected non-success result while offline")
	}
	if !strings.Contains(result.Message, "connectivity") {
		t.Errorf("Expected connectivity message, got %q", result.Message)
	}
	if fx.remote.expenseCount() != 0 {
		t.Error("Expected no applier calls while offline")
	}

	stats, _ := fx.stores.Stats(ctx)
	if stats.Expenses.Pending != 1 {
		t.Errorf("Expected entry untouched, got %+v", stats.Expenses)
	}
}

// TestSyncDrainsPendingEntries tests the happy path: both queues drained,
// marked synced and swept.
func TestSyncDrainsPendingEntries(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	fx.stores.Expenses.Add(ctx, models.ExpensePayload{
		Tab: models.RemoteTab("1"), ItemID: 10, Quantity: 2,
	})
	fx.stores.Payments.Add(ctx, models.PaymentPayload{
		Tab: models.RemoteTab("1"), Amount: 50, Method: "dinheiro",
	})

	orch := fx.orchestrator(Options{})
	result, err := orch.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if !result.Success {
		t.Errorf("Expected success, got %q", result.Message)
	}
	if result.SuccessCount != 2 || result.ErrorCount != 0 {
		t.Errorf("Expected 2 applied 0 failed, got %+v", result)
	}

	// The post-sync sweep removes applied entries.
	expenses, _ := fx.stores.Expenses.GetAll(ctx)
	payments, _ := fx.stores.Payments.GetAll(ctx)
	if len(expenses) != 0 || len(payments) != 0 {
		t.Errorf("Expected swept queues, got %d expenses %d payments", len(expenses), len(payments))
	}

	snap := orch.Metrics().Snapshot()
	if snap.Passes != 1 || snap.Applied != 2 {
		t.Errorf("Expected metrics to record the pass, got %+v", snap)
	}
	if snap.LastSync.IsZero() {
		t.Error("Expected LastSync to be set")
	}
}

// TestSyncNeverReappliesSyncedEntries tests that an entry marked synced is
// not handed to the appliers again.
func TestSyncNeverReappliesSyncedEntries(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	id, _ := fx.stores.Expenses.Add(ctx, models.ExpensePayload{
		Tab: models.RemoteTab("1"), ItemID: 10, Quantity: 2,
	})
	if err := fx.stores.Expenses.MarkSynced(ctx, id); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	orch := fx.orchestrator(Options{})
	if _, err := orch.Sync(ctx); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if fx.remote.expenseCount() != 0 {
		t.Errorf("Expected no applier call for synced entry, got %d", fx.remote.expenseCount())
	}

	// The already-synced entry is swept with the pass.
	all, _ := fx.stores.Expenses.GetAll(ctx)
	if len(all) != 0 {
		t.Errorf("Expected synced entry to be swept, got %d entries", len(all))
	}
}

// TestSyncPartialFailureIsolation tests that one failing entry neither
// aborts the batch nor taints the others.
func TestSyncPartialFailureIsolation(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.remote.failExpenseItem = 3

	for i := int64(1); i <= 4; i++ {
		if _, err := fx.stores.Expenses.Add(ctx, models.ExpensePayload{
			Tab: models.RemoteTab("1"), ItemID: i, Quantity: 1,
		}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	orch := fx.orchestrator(Options{})
	result, err := orch.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.SuccessCount != 3 {
		t.Errorf("Expected 3 applied, got %d", result.SuccessCount)
	}
	if result.ErrorCount != 1 {
		t.Errorf("Expected 1 failed, got %d", result.ErrorCount)
	}
	if !result.Success {
		t.Error("Expected pass-level success despite entry errors")
	}

	remaining, _ := fx.stores.Expenses.GetAll(ctx)
	if len(remaining) != 1 {
		t.Fatalf("Expected only the failed entry to remain, got %d", len(remaining))
	}
	if remaining[0].Payload.ItemID != 3 {
		t.Errorf("Expected item 3 to remain, got %d", remaining[0].Payload.ItemID)
	}
	if remaining[0].Synced {
		t.Error("Expected failed entry to stay unsynced")
	}
	if remaining[0].Error == "" {
		t.Error("Expected failed entry to carry an error message")
	}
	if remaining[0].Attempts != 1 {
		t.Errorf("Expected 1 attempt recorded, got %d", remaining[0].Attempts)
	}
}

// TestSyncResolvesPlaceholders tests that tabs drain first and dependent
// entries swap their placeholder for the server id.
func TestSyncResolvesPlaceholders(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.remote.nextTabID = "99"

	// A tab opened offline plus an expense referencing its placeholder.
	ref := models.NewLocalTab()
	if _, err := fx.stores.Tabs.Add(ctx, models.TabPayload{
		LocalID:    ref.LocalID(),
		CustomerID: "c1",
	}); err != nil {
		t.Fatalf("Add tab failed: %v", err)
	}
	if _, err := fx.stores.Expenses.Add(ctx, models.ExpensePayload{
		Tab: ref, ItemID: 10, Quantity: 1,
	}); err != nil {
		t.Fatalf("Add expense failed: %v", err)
	}

	orch := fx.orchestrator(Options{})
	result, err := orch.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if result.SuccessCount != 2 || result.ErrorCount != 0 {
		t.Fatalf("Expected 2 applied, got %+v", result)
	}

	// The applier must have seen the resolved server id.
	if fx.remote.expenseCount() != 1 {
		t.Fatalf("Expected one expense call, got %d", fx.remote.expenseCount())
	}
	applied := fx.remote.expenseCalls[0]
	if applied.Tab.IsLocal() {
		t.Error("Expected placeholder to be resolved before apply")
	}
	if applied.Tab.RemoteID() != "99" {
		t.Errorf("Expected server tab id 99, got %q", applied.Tab.RemoteID())
	}

	// The tab entry is retained with its server id so later passes can
	// still resolve stragglers; expenses are swept.
	tabs, _ := fx.stores.Tabs.GetAll(ctx)
	if len(tabs) != 1 {
		t.Fatalf("Expected tab entry retained, got %d", len(tabs))
	}
	if tabs[0].Payload.ServerTabID != "99" {
		t.Errorf("Expected recorded server id, got %q", tabs[0].Payload.ServerTabID)
	}
}

// TestSyncUnresolvedDependentAttempted tests the historical policy: an
// entry whose tab never synced is applied with the placeholder and the
// server rejection keeps it queued.
func TestSyncUnresolvedDependentAttempted(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.remote.tabErr = errTabRejected
	fx.remote.rejectLocalTabs = true

	ref := models.NewLocalTab()
	fx.stores.Tabs.Add(ctx, models.TabPayload{LocalID: ref.LocalID()})
	fx.stores.Expenses.Add(ctx, models.ExpensePayload{Tab: ref, ItemID: 10, Quantity: 1})

	orch := fx.orchestrator(Options{DeferUnresolved: false})
	result, err := orch.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.ErrorCount != 2 { // tab creation + dependent expense
		t.Errorf("Expected 2 failures, got %+v", result)
	}
	if fx.remote.expenseCount() != 1 {
		t.Errorf("Expected the dependent to be attempted, got %d calls", fx.remote.expenseCount())
	}

	remaining, _ := fx.stores.Expenses.GetUnsynced(ctx)
	if len(remaining) != 1 || remaining[0].Error == "" {
		t.Errorf("Expected dependent to remain queued with an error, got %+v", remaining)
	}
}

// TestSyncUnresolvedDependentDeferred tests the defer policy: the dependent
// is skipped without an applier call and without an error.
func TestSyncUnresolvedDependentDeferred(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.remote.tabErr = errTabRejected

	ref := models.NewLocalTab()
	fx.stores.Tabs.Add(ctx, models.TabPayload{LocalID: ref.LocalID()})
	fx.stores.Expenses.Add(ctx, models.ExpensePayload{Tab: ref, ItemID: 10, Quantity: 1})
	fx.stores.Payments.Add(ctx, models.PaymentPayload{Tab: ref, Amount: 5, Method: "pix"})

	orch := fx.orchestrator(Options{DeferUnresolved: true})
	result, err := orch.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.Deferred != 2 {
		t.Errorf("Expected 2 deferred entries, got %+v", result)
	}
	if result.ErrorCount != 1 { // only the tab creation failure
		t.Errorf("Expected 1 failure, got %+v", result)
	}
	if fx.remote.expenseCount() != 0 || fx.remote.paymentCount() != 0 {
		t.Error("Expected deferred entries to not reach the appliers")
	}

	// Deferred entries stay clean for the next pass.
	remaining, _ := fx.stores.Expenses.GetUnsynced(ctx)
	if len(remaining) != 1 || remaining[0].Error != "" {
		t.Errorf("Expected deferred entry without error, got %+v", remaining)
	}
}

// TestSyncRejectsConcurrentPass tests the syncing flag.
func TestSyncRejectsConcurrentPass(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.remote.block = make(chan struct{})

	fx.stores.Expenses.Add(ctx, models.ExpensePayload{
		Tab: models.RemoteTab("1"), ItemID: 10, Quantity: 1,
	})

	orch := fx.orchestrator(Options{})

	done := make(chan *Result, 1)
	go func() {
		result, err := orch.Sync(ctx)
		if err != nil {
			t.Errorf("Sync failed: %v", err)
		}
		done <- result
	}()

	// Wait until the first pass is inside the applier.
	deadline := time.After(time.Second)
	for !orch.Syncing() {
		select {
		case <-deadline:
			t.Fatal("First pass never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	second, err := orch.Sync(ctx)
	if err != nil {
		t.Fatalf("Second Sync failed: %v", err)
	}
	if second.Success {
		t.Error("Expected concurrent pass to be rejected")
	}
	if !strings.Contains(second.Message, "in progress") {
		t.Errorf("Expected in-progress message, got %q", second.Message)
	}

	close(fx.remote.block)
	first := <-done
	if !first.Success {
		t.Errorf("Expected first pass to complete, got %q", first.Message)
	}
	if orch.Syncing() {
		t.Error("Expected syncing flag cleared after the pass")
	}
}

// TestSyncApplyTimeout tests that a hung applier cannot stall the drain.
func TestSyncApplyTimeout(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.remote.block = make(chan struct{}) // never released: applier hangs

	fx.stores.Expenses.Add(ctx, models.ExpensePayload{
		Tab: models.RemoteTab("1"), ItemID: 10, Quantity: 1,
	})

	orch := fx.orchestrator(Options{ApplyTimeout: 50 * time.Millisecond})

	start := time.Now()
	result, err := orch.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected timeout to bound the pass, took %v", elapsed)
	}

	if result.ErrorCount != 1 {
		t.Errorf("Expected hung entry to be recorded as failed, got %+v", result)
	}

	remaining, _ := fx.stores.Expenses.GetUnsynced(ctx)
	if len(remaining) != 1 || !strings.Contains(remaining[0].Error, "context deadline") {
		t.Errorf("Expected deadline error on entry, got %+v", remaining)
	}
}
