package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/barvenue/tabsync/internal/cache"
	apperrors "github.com/barvenue/tabsync/internal/errors"
	"github.com/barvenue/tabsync/internal/models"
	"github.com/barvenue/tabsync/internal/netmon"
	"github.com/barvenue/tabsync/internal/queue"
)

// Remote is the collaborator that performs the actual server calls. The
// core is transport-agnostic: any failure is an error, the facade does not
// distinguish causes.
type Remote interface {
	// AddExpense performs the remote "add item to tab" call.
	AddExpense(ctx context.Context, p models.ExpensePayload) error

	// AddPayment performs the remote "add payment" call.
	AddPayment(ctx context.Context, p models.PaymentPayload) error

	// CreateTab opens a tab on the server and returns its id.
	CreateTab(ctx context.Context, customerID string) (serverTabID string, err error)

	// FetchTab retrieves a tab by reference for the read cache.
	FetchTab(ctx context.Context, ref models.TabRef) (json.RawMessage, error)
}

// RemoteAppliers adapts a Remote into the orchestrator's per-kind apply
// functions, so both the facade and the drain loop use the same transport.
func RemoteAppliers(remote Remote) Appliers {
	return Appliers{
		Tab: func(ctx context.Context, p models.TabPayload) (string, error) {
			return remote.CreateTab(ctx, p.CustomerID)
		},
		Expense: remote.AddExpense,
		Payment: remote.AddPayment,
	}
}

// OpResult reports how a write-path action completed. Offline means the
// action was queued locally instead of applied remotely; the action itself
// still succeeded from the caller's point of view.
type OpResult struct {
	Offline bool
	QueueID string // set when the action was enqueued
}

// TabResult is the outcome of opening a tab.
type TabResult struct {
	Tab     models.TabRef
	Offline bool
	QueueID string
}

// TabView is the outcome of a cached read.
type TabView struct {
	Data      json.RawMessage
	FromCache bool
}

// Service is the offline-aware operation facade. Each action tries the
// remote first when online and falls back to the local queue on failure or
// when offline; a connectivity problem never fails an in-progress sale.
type Service struct {
	stores   *queue.Stores
	cache    *cache.Store
	monitor  *netmon.Monitor
	remote   Remote
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewService creates the facade. cacheTTL is the freshness window applied
// to tab reads written through to the cache.
func NewService(stores *queue.Stores, cacheStore *cache.Store, monitor *netmon.Monitor, remote Remote, cacheTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{
		stores:   stores,
		cache:    cacheStore,
		monitor:  monitor,
		remote:   remote,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// AddItem records an item on a tab. Online with a healthy server the write
// goes straight through; otherwise it is queued for the next sync pass.
func (s *Service) AddItem(ctx context.Context, tab models.TabRef, itemID int64, quantity int, notes string) (*OpResult, error) {
	payload := models.ExpensePayload{
		Tab:      tab,
		ItemID:   itemID,
		Quantity: quantity,
		Notes:    notes,
	}
	if err := payload.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "invalid item", err)
	}

	if !s.monitor.Online() {
		return s.enqueueExpense(ctx, payload)
	}

	if err := s.remote.AddExpense(ctx, payload); err != nil {
		s.log.Warn().Err(err).Msg("remote add item failed, queueing locally")
		return s.enqueueExpense(ctx, payload)
	}
	return &OpResult{Offline: false}, nil
}

// AddPayment records a payment on a tab with the same fallback policy as
// AddItem.
func (s *Service) AddPayment(ctx context.Context, tab models.TabRef, amount float64, method string) (*OpResult, error) {
	payload := models.PaymentPayload{
		Tab:    tab,
		Amount: amount,
		Method: method,
	}
	if err := payload.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "invalid payment", err)
	}

	if !s.monitor.Online() {
		return s.enqueuePayment(ctx, payload)
	}

	if err := s.remote.AddPayment(ctx, payload); err != nil {
		s.log.Warn().Err(err).Msg("remote add payment failed, queueing locally")
		return s.enqueuePayment(ctx, payload)
	}
	return &OpResult{Offline: false}, nil
}

// OpenTab opens a tab. Offline (or on a failed remote call) the caller gets
// a local placeholder reference that later sync passes reconcile with the
// server-issued id.
func (s *Service) OpenTab(ctx context.Context, customerID string) (*TabResult, error) {
	if s.monitor.Online() {
		serverID, err := s.remote.CreateTab(ctx, customerID)
		if err == nil {
			return &TabResult{Tab: models.RemoteTab(serverID), Offline: false}, nil
		}
		s.log.Warn().Err(err).Msg("remote open tab failed, queueing locally")
	}

	ref := models.NewLocalTab()
	id, err := s.stores.Tabs.Add(ctx, models.TabPayload{
		LocalID:    ref.LocalID(),
		CustomerID: customerID,
	})
	if err != nil {
		return nil, err
	}
	return &TabResult{Tab: ref, Offline: true, QueueID: id}, nil
}

// LoadTab fetches a tab for display. A successful remote fetch is written
// through to the cache; on failure or offline the last cached copy is
// served instead. When neither is available the caller gets
// errors.ErrNoOfflineData, distinct from a generic fetch error.
func (s *Service) LoadTab(ctx context.Context, tab models.TabRef) (*TabView, error) {
	key := cacheKey(tab)

	if s.monitor.Online() {
		data, err := s.remote.FetchTab(ctx, tab)
		if err == nil {
			if cerr := s.cache.SetRaw(ctx, key, data, s.cacheTTL); cerr != nil {
				return nil, cerr
			}
			return &TabView{Data: data, FromCache: false}, nil
		}
		s.log.Warn().Err(err).Str("tab", tab.String()).Msg("remote fetch failed, trying cache")
	}

	data, ok, err := s.cache.GetRaw(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("tab %s: %w", tab.String(), apperrors.ErrNoOfflineData)
	}
	return &TabView{Data: data, FromCache: true}, nil
}

// OfflineStats summarizes the pending backlog per queue kind.
func (s *Service) OfflineStats(ctx context.Context) (models.OfflineStats, error) {
	return s.stores.Stats(ctx)
}

// ClearAllOfflineData destructively resets every queue and the read cache.
func (s *Service) ClearAllOfflineData(ctx context.Context) error {
	if err := s.stores.ClearAll(ctx); err != nil {
		return err
	}
	return s.cache.Clear(ctx)
}

func (s *Service) enqueueExpense(ctx context.Context, payload models.ExpensePayload) (*OpResult, error) {
	id, err := s.stores.Expenses.Add(ctx, payload)
	if err != nil {
		return nil, err
	}
	return &OpResult{Offline: true, QueueID: id}, nil
}

func (s *Service) enqueuePayment(ctx context.Context, payload models.PaymentPayload) (*OpResult, error) {
	id, err := s.stores.Payments.Add(ctx, payload)
	if err != nil {
		return nil, err
	}
	return &OpResult{Offline: true, QueueID: id}, nil
}

func cacheKey(tab models.TabRef) string {
	return "tab_" + tab.String()
}
