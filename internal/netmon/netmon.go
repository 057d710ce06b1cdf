// Package netmon tracks connectivity to the venue server and notifies
// subscribers on transitions.
//
// The connectivity signal comes from a pluggable Prober polled on a ticker.
// Notifications are edge-triggered: callbacks fire only when the state
// actually flips, never on repeated identical probes.
package netmon

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Prober reports whether the remote side is currently reachable.
type Prober interface {
	Probe(ctx context.Context) bool
}

// ProbeFunc adapts a function to the Prober interface.
type ProbeFunc func(ctx context.Context) bool

// Probe implements Prober.
func (f ProbeFunc) Probe(ctx context.Context) bool {
	return f(ctx)
}

type subscriber struct {
	onOnline  func()
	onOffline func()
}

// Monitor exposes the current connectivity as a boolean snapshot and fans
// out edge-triggered transition callbacks to any number of subscribers.
type Monitor struct {
	mu      sync.RWMutex
	online  bool
	subs    map[string]subscriber
	running bool

	prober   Prober
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	log      zerolog.Logger
}

// New creates a Monitor. The monitor assumes online until the first probe
// says otherwise. A nil prober disables polling; state then changes only
// through SetOnline.
func New(prober Prober, interval time.Duration, log zerolog.Logger) *Monitor {
	return &Monitor{
		online:   true,
		subs:     make(map[string]subscriber),
		prober:   prober,
		interval: interval,
		stopCh:   make(chan struct{}),
		log:      log,
	}
}

// Online returns a snapshot of the current connectivity.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline records a connectivity observation. Subscribers are notified
// only when the state flips. Callbacks run synchronously, outside the lock,
// in that observation's goroutine.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	subs := make([]subscriber, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	m.log.Info().Bool("online", online).Msg("connectivity changed")

	for _, sub := range subs {
		if online {
			if sub.onOnline != nil {
				sub.onOnline()
			}
		} else {
			if sub.onOffline != nil {
				sub.onOffline()
			}
		}
	}
}

// Subscribe registers transition callbacks and returns a function that
// deregisters them. Multiple subscribers coexist without clobbering each
// other.
func (m *Monitor) Subscribe(onOnline, onOffline func()) (unsubscribe func()) {
	id := uuid.New().String()

	m.mu.Lock()
	m.subs[id] = subscriber{onOnline: onOnline, onOffline: onOffline}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Start begins polling the prober. No-op without a prober or when already
// running.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running || m.prober == nil {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.pollLoop(ctx)
}

// Stop halts polling and waits for the poll loop to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()
}

func (m *Monitor) pollLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Probe once immediately so the snapshot is honest from the start.
	m.SetOnline(m.prober.Probe(ctx))

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.SetOnline(m.prober.Probe(ctx))
		}
	}
}

// NewHTTPProber probes connectivity with a HEAD request against the given
// URL, typically the venue server's health endpoint. Any HTTP response
// counts as reachable; only transport failures count as offline.
func NewHTTPProber(url string, timeout time.Duration) ProbeFunc {
	client := &http.Client{Timeout: timeout}

	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}
}
