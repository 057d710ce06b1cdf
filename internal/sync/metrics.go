package sync

import (
	gosync "sync"
	"time"
)

// Snapshot is a point-in-time view of recorded sync activity.
type Snapshot struct {
	Passes      int       `json:"passes"`
	Applied     int       `json:"applied"`
	Failed      int       `json:"failed"`
	Deferred    int       `json:"deferred"`
	LastSync    time.Time `json:"lastSync"`
	LastMessage string    `json:"lastMessage"`
}

// Recorder accumulates sync pass outcomes in memory for status reporting.
// Nothing is persisted or transmitted.
type Recorder struct {
	mu       gosync.Mutex
	passes   int
	applied  int
	failed   int
	deferred int
	lastSync time.Time
	lastMsg  string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record folds one completed pass into the counters.
func (r *Recorder) Record(result *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.passes++
	r.applied += result.SuccessCount
	r.failed += result.ErrorCount
	r.deferred += result.Deferred
	r.lastSync = time.Now()
	r.lastMsg = result.Message
}

// Snapshot returns the current counters.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		Passes:      r.passes,
		Applied:     r.applied,
		Failed:      r.failed,
		Deferred:    r.deferred,
		LastSync:    r.lastSync,
		LastMessage: r.lastMsg,
	}
}
