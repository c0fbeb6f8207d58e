package lookup

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"quotedesk/backend/internal/domain"
	"quotedesk/backend/internal/metrics"
)

// DefaultDebounce is the trailing-edge delay applied to free-text queries.
const DefaultDebounce = 300 * time.Millisecond

// Result is one completed search delivered to the session callback. Results
// always arrive through a single synchronous apply path: the manager holds
// its lock while invoking the callback, so the consumer never sees two
// results interleaved or out of order.
type Result struct {
	RowID    string
	Query    string
	Products []domain.Product
}

// SessionManager runs at most one lookup session at a time. Opening a session
// invalidates the previous one; typing a new query invalidates the in-flight
// search. Superseded results are counted and dropped, never delivered.
type SessionManager struct {
	resolver Resolver
	debounce time.Duration
	log      zerolog.Logger

	mu        sync.Mutex
	token     uint64
	rowID     string
	priceList string
	open      bool
	onResult  func(Result)
	cancel    context.CancelFunc
	timer     *time.Timer
}

func NewSessionManager(resolver Resolver, debounce time.Duration, log zerolog.Logger) *SessionManager {
	if debounce < 0 {
		debounce = DefaultDebounce
	}
	return &SessionManager{
		resolver: resolver,
		debounce: debounce,
		log:      log,
	}
}

// Open starts a lookup session scoped to a row, replacing any live session.
// onResult receives completed searches until the session is superseded or
// closed. It runs with the manager lock held and must not call back into the
// manager.
func (m *SessionManager) Open(rowID string, priceList string, onResult func(Result)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidateLocked()
	m.rowID = rowID
	m.priceList = priceList
	m.onResult = onResult
	m.open = true
}

// Query schedules a debounced search for the live session. Each call
// supersedes the previous pending or in-flight one.
func (m *SessionManager) Query(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return
	}
	m.invalidateLocked()
	m.open = true

	token := m.token
	rowID := m.rowID
	priceList := m.priceList
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	run := func() {
		products, err := m.resolver.Search(ctx, text, priceList)
		if err != nil {
			// Transport failures behave as zero results.
			m.log.Warn().Err(err).Str("query", text).Msg("product lookup failed")
			products = nil
		}
		m.deliver(token, Result{RowID: rowID, Query: text, Products: products})
	}

	if m.debounce == 0 {
		go run()
		return
	}
	m.timer = time.AfterFunc(m.debounce, run)
}

// Close ends the live session and cancels any pending search.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidateLocked()
	m.rowID = ""
	m.onResult = nil
	m.open = false
}

// Current reports the row the live session is scoped to.
func (m *SessionManager) Current() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rowID, m.open
}

func (m *SessionManager) deliver(token uint64, result Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token != m.token || !m.open || m.onResult == nil {
		metrics.StaleLookupDrops.Inc()
		return
	}
	m.onResult(result)
}

// invalidateLocked bumps the token so any in-flight search becomes stale,
// stops the debounce timer, and cancels the search context.
func (m *SessionManager) invalidateLocked() {
	m.token++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.open = false
}
