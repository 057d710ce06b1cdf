package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/barvenue/tabsync/internal/db"
	"github.com/barvenue/tabsync/internal/models"
)

// Stores bundles the three queue kinds over one database.
type Stores struct {
	Expenses *Store[models.ExpensePayload]
	Payments *Store[models.PaymentPayload]
	Tabs     *Store[models.TabPayload]
}

// NewStores creates the per-kind stores. maxPending applies to each kind
// independently; zero disables the bound.
func NewStores(database *db.DB, maxPending int, log zerolog.Logger) *Stores {
	return &Stores{
		Expenses: NewStore[models.ExpensePayload](database, models.KindExpense, maxPending, log),
		Payments: NewStore[models.PaymentPayload](database, models.KindPayment, maxPending, log),
		Tabs:     NewStore[models.TabPayload](database, models.KindTab, maxPending, log),
	}
}

// Stats aggregates per-kind stats for the offline backlog.
func (s *Stores) Stats(ctx context.Context) (models.OfflineStats, error) {
	var stats models.OfflineStats
	var err error

	if stats.Expenses, err = s.Expenses.Stats(ctx); err != nil {
		return models.OfflineStats{}, err
	}
	if stats.Payments, err = s.Payments.Stats(ctx); err != nil {
		return models.OfflineStats{}, err
	}
	if stats.Tabs, err = s.Tabs.Stats(ctx); err != nil {
		return models.OfflineStats{}, err
	}
	return stats, nil
}

// ClearAll destructively resets every queue kind.
func (s *Stores) ClearAll(ctx context.Context) error {
	if err := s.Expenses.ClearAll(ctx); err != nil {
		return err
	}
	if err := s.Payments.ClearAll(ctx); err != nil {
		return err
	}
	return s.Tabs.ClearAll(ctx)
}
