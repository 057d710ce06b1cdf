// Package sync provides shared test fixtures for the orchestrator, facade
// and scheduler tests.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/barvenue/tabsync/internal/cache"
	"github.com/barvenue/tabsync/internal/db"
	"github.com/barvenue/tabsync/internal/models"
	"github.com/barvenue/tabsync/internal/netmon"
	"github.com/barvenue/tabsync/internal/queue"
)

var errTabRejected = errors.New("tab rejected")

// fakeRemote is a controllable Remote with per-method call counts.
type fakeRemote struct {
	mu gosync.Mutex

	expenseCalls []models.ExpensePayload
	paymentCalls []models.PaymentPayload
	tabCalls     []string
	fetchCalls   int

	expenseErr error
	paymentErr error
	tabErr     error
	fetchErr   error

	// failExpenseItem fails AddExpense only for this item id.
	failExpenseItem int64
	// rejectLocalTabs fails expense/payment calls that still carry an
	// offline placeholder, mimicking the server's view.
	rejectLocalTabs bool

	nextTabID string
	fetchData json.RawMessage

	// block, when set, holds every applier call until released.
	block chan struct{}
}

func (f *fakeRemote) AddExpense(ctx context.Context, p models.ExpensePayload) error {
	f.mu.Lock()
	f.expenseCalls = append(f.expenseCalls, p)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.rejectLocalTabs && p.Tab.IsLocal() {
		return errors.New("unknown tab id")
	}
	if f.failExpenseItem != 0 && p.ItemID == f.failExpenseItem {
		return errors.New("item rejected")
	}
	return f.expenseErr
}

func (f *fakeRemote) AddPayment(ctx context.Context, p models.PaymentPayload) error {
	f.mu.Lock()
	f.paymentCalls = append(f.paymentCalls, p)
	f.mu.Unlock()

	if f.rejectLocalTabs && p.Tab.IsLocal() {
		return errors.New("unknown tab id")
	}
	return f.paymentErr
}

func (f *fakeRemote) CreateTab(ctx context.Context, customerID string) (string, error) {
	f.mu.Lock()
	f.tabCalls = append(f.tabCalls, customerID)
	f.mu.Unlock()

	if f.tabErr != nil {
		return "", f.tabErr
	}
	if f.nextTabID != "" {
		return f.nextTabID, nil
	}
	return "100", nil
}

func (f *fakeRemote) FetchTab(ctx context.Context, ref models.TabRef) (json.RawMessage, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()

	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.fetchData != nil {
		return f.fetchData, nil
	}
	return json.RawMessage(`{"id":7}`), nil
}

func (f *fakeRemote) expenseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.expenseCalls)
}

func (f *fakeRemote) paymentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paymentCalls)
}

// appliers adapts a fakeRemote to the orchestrator's injected functions,
// the same wiring the CLI uses with the real HTTP remote.
func (f *fakeRemote) appliers() Appliers {
	return RemoteAppliers(f)
}

type fixture struct {
	stores  *queue.Stores
	cache   *cache.Store
	monitor *netmon.Monitor
	remote  *fakeRemote
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return &fixture{
		stores:  queue.NewStores(database, 0, zerolog.Nop()),
		cache:   cache.New(database, zerolog.Nop()),
		monitor: netmon.New(nil, time.Second, zerolog.Nop()),
		remote:  &fakeRemote{},
	}
}

func (f *fixture) orchestrator(opts Options) *Orchestrator {
	return NewOrchestrator(f.stores, f.monitor, f.remote.appliers(), opts, zerolog.Nop())
}

func (f *fixture) service() *Service {
	return NewService(f.stores, f.cache, f.monitor, f.remote, time.Minute, zerolog.Nop())
}
