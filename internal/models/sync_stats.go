package models

// SyncStats summarizes the state of one queue kind. Derived by scanning
// current entries, never persisted.
type SyncStats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Errors  int `json:"errors"`
}

// OfflineStats aggregates per-kind stats for callers that surface the size
// of the pending backlog.
type OfflineStats struct {
	Expenses SyncStats `json:"expenses"`
	Payments SyncStats `json:"payments"`
	Tabs     SyncStats `json:"tabs"`
}

// TotalPending returns the pending count across every kind.
func (s OfflineStats) TotalPending() int {
	return s.Expenses.Pending + s.Payments.Pending + s.Tabs.Pending
}
