// Package sync provides the orchestrator that drains the offline queues
// through caller-supplied remote appliers, plus the offline-aware operation
// facade and the background scheduler that triggers sync passes.
package sync

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/barvenue/tabsync/internal/models"
	"github.com/barvenue/tabsync/internal/netmon"
	"github.com/barvenue/tabsync/internal/queue"
)

// Appliers are the injected remote-write functions, one per queue kind.
// The orchestrator does not distinguish failure causes: any returned error
// marks the entry as failed and leaves it queued for the next pass.
type Appliers struct {
	// Tab performs the remote "open tab" call and returns the
	// server-issued tab id.
	Tab func(ctx context.Context, p models.TabPayload) (serverID string, err error)
	// Expense performs the remote "add item to tab" call.
	Expense func(ctx context.Context, p models.ExpensePayload) error
	// Payment performs the remote "add payment" call.
	Payment func(ctx context.Context, p models.PaymentPayload) error
}

// Options tune a sync pass.
type Options struct {
	// ApplyTimeout bounds each individual applier call so one hung request
	// cannot stall the whole drain. Zero disables the bound.
	ApplyTimeout time.Duration

	// DeferUnresolved controls what happens to an expense or payment whose
	// tab is still an unsynced local placeholder after the tab drain.
	// When true the entry is skipped and left queued without an error.
	// When false it is applied with the placeholder id, which the server
	// is expected to reject; the entry then stays queued like any other
	// failure. False matches the historical behavior.
	DeferUnresolved bool
}

// Result is the aggregate outcome of one sync pass. Success reports that
// the pass itself ran to completion; individual entry failures show up in
// ErrorCount, not in Success.
type Result struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	SuccessCount int           `json:"successCount"`
	ErrorCount   int           `json:"errorCount"`
	Deferred     int           `json:"deferred"`
	Duration     time.Duration `json:"duration"`
}

// Orchestrator drains unsynced queue entries through the appliers. It owns
// its own state and is constructed per process; there are no package-level
// globals. A second Sync while one is in flight is rejected via the syncing
// flag rather than queued.
type Orchestrator struct {
	stores   *queue.Stores
	monitor  *netmon.Monitor
	appliers Appliers
	opts     Options
	syncing  atomic.Bool
	metrics  *Recorder
	log      zerolog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(stores *queue.Stores, monitor *netmon.Monitor, appliers Appliers, opts Options, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		stores:   stores,
		monitor:  monitor,
		appliers: appliers,
		opts:     opts,
		metrics:  NewRecorder(),
		log:      log,
	}
}

// Syncing reports whether a sync pass is currently in flight.
func (o *Orchestrator) Syncing() bool {
	return o.syncing.Load()
}

// Metrics returns the pass-outcome recorder.
func (o *Orchestrator) Metrics() *Recorder {
	return o.metrics
}

// Sync runs one drain-and-report pass:
//
//  1. offline → immediate non-success result, no entries touched
//  2. tabs are drained first so dependent entries can resolve placeholders
//  3. expenses, then payments, in enumeration order; one failure never
//     aborts the batch
//  4. synced expenses and payments are swept; synced tab entries are kept
//     so later passes can still resolve placeholder references
//
// Storage failures propagate as the returned error; remote failures are
// recorded per entry.
func (o *Orchestrator) Sync(ctx context.Context) (*Result, error) {
	if !o.monitor.Online() {
		return &Result{
			Success: false,
			Message: "cannot sync: no connectivity",
		}, nil
	}

	if !o.syncing.CompareAndSwap(false, true) {
		return &Result{
			Success: false,
			Message: "sync already in progress",
		}, nil
	}
	defer o.syncing.Store(false)

	start := time.Now()
	result := &Result{}

	resolved, err := o.drainTabs(ctx, result)
	if err != nil {
		return nil, err
	}
	if err := o.drainExpenses(ctx, result, resolved); err != nil {
		return nil, err
	}
	if err := o.drainPayments(ctx, result, resolved); err != nil {
		return nil, err
	}

	if _, err := o.stores.Expenses.ClearSynced(ctx); err != nil {
		return nil, err
	}
	if _, err := o.stores.Payments.ClearSynced(ctx); err != nil {
		return nil, err
	}

	result.Success = true
	result.Duration = time.Since(start)
	result.Message = summarize(result)
	o.metrics.Record(result)

	o.log.Info().
		Int("applied", result.SuccessCount).
		Int("failed", result.ErrorCount).
		Int("deferred", result.Deferred).
		Dur("duration", result.Duration).
		Msg("sync pass complete")

	return result, nil
}

// drainTabs applies pending tab creations and returns the placeholder
// resolution map (local id -> server id), including tabs synced in earlier
// passes that have not been removed yet.
func (o *Orchestrator) drainTabs(ctx context.Context, result *Result) (map[string]string, error) {
	entries, err := o.stores.Tabs.GetUnsynced(ctx)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		serverID, applyErr := o.applyTab(ctx, entry.Payload)
		if applyErr != nil {
			if err := o.stores.Tabs.MarkError(ctx, entry.ID, applyErr.Error()); err != nil {
				return nil, err
			}
			result.ErrorCount++
			continue
		}

		err := o.stores.Tabs.MarkSynced(ctx, entry.ID, func(p *models.TabPayload) {
			p.ServerTabID = serverID
		})
		if err != nil {
			return nil, err
		}
		result.SuccessCount++
	}

	all, err := o.stores.Tabs.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	resolved := make(map[string]string)
	for _, entry := range all {
		if entry.Payload.ServerTabID != "" {
			resolved[entry.Payload.LocalID] = entry.Payload.ServerTabID
		}
	}
	return resolved, nil
}

func (o *Orchestrator) drainExpenses(ctx context.Context, result *Result, resolved map[string]string) error {
	entries, err := o.stores.Expenses.GetUnsynced(ctx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		payload, ok := resolveTab(entry.Payload.Tab, resolved, o.opts.DeferUnresolved)
		if !ok {
			result.Deferred++
			continue
		}
		entry.Payload.Tab = payload

		if applyErr := o.applyExpense(ctx, entry.Payload); applyErr != nil {
			if err := o.stores.Expenses.MarkError(ctx, entry.ID, applyErr.Error()); err != nil {
				return err
			}
			result.ErrorCount++
			continue
		}
		if err := o.stores.Expenses.MarkSynced(ctx, entry.ID); err != nil {
			return err
		}
		result.SuccessCount++
	}
	return nil
}

func (o *Orchestrator) drainPayments(ctx context.Context, result *Result, resolved map[string]string) error {
	entries, err := o.stores.Payments.GetUnsynced(ctx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		payload, ok := resolveTab(entry.Payload.Tab, resolved, o.opts.DeferUnresolved)
		if !ok {
			result.Deferred++
			continue
		}
		entry.Payload.Tab = payload

		if applyErr := o.applyPayment(ctx, entry.Payload); applyErr != nil {
			if err := o.stores.Payments.MarkError(ctx, entry.ID, applyErr.Error()); err != nil {
				return err
			}
			result.ErrorCount++
			continue
		}
		if err := o.stores.Payments.MarkSynced(ctx, entry.ID); err != nil {
			return err
		}
		result.SuccessCount++
	}
	return nil
}

// resolveTab swaps a local placeholder for the server-issued id when the
// referenced tab has synced. ok=false means the entry should be deferred.
func resolveTab(ref models.TabRef, resolved map[string]string, deferUnresolved bool) (models.TabRef, bool) {
	if !ref.IsLocal() {
		return ref, true
	}
	if serverID, ok := resolved[ref.LocalID()]; ok {
		return models.RemoteTab(serverID), true
	}
	if deferUnresolved {
		return ref, false
	}
	// Attempt with the placeholder; the server is expected to reject it
	// and the entry stays queued for the next pass.
	return ref, true
}

func (o *Orchestrator) applyTab(ctx context.Context, p models.TabPayload) (string, error) {
	ctx, cancel := o.applyContext(ctx)
	defer cancel()
	return o.appliers.Tab(ctx, p)
}

func (o *Orchestrator) applyExpense(ctx context.Context, p models.ExpensePayload) error {
	ctx, cancel := o.applyContext(ctx)
	defer cancel()
	return o.appliers.Expense(ctx, p)
}

func (o *Orchestrator) applyPayment(ctx context.Context, p models.PaymentPayload) error {
	ctx, cancel := o.applyContext(ctx)
	defer cancel()
	return o.appliers.Payment(ctx, p)
}

func (o *Orchestrator) applyContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.opts.ApplyTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.opts.ApplyTimeout)
}

func summarize(r *Result) string {
	msg := fmt.Sprintf("sync pass complete: %d applied, %d failed", r.SuccessCount, r.ErrorCount)
	if r.Deferred > 0 {
		msg += fmt.Sprintf(", %d deferred", r.Deferred)
	}
	return msg
}
