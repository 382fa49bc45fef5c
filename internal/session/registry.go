// Package session provides the in-memory session registry.
//
// The registry owns the mapping from an opaque session identifier to the
// authenticated vendor client and its secret material. Records are created on
// successful login and removed only by logout or by the periodic sweep; there
// is no persistent storage. All mutation is guarded by the registry lock
// because handlers run on concurrent goroutines.
package session

import (
	"crypto/rand"
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	// MaxSessionAge is the fixed maximum age before a record is evicted.
	MaxSessionAge = 12 * time.Hour

	// SweepInterval is how often the background sweep runs.
	SweepInterval = 30 * time.Minute
)

// Handle is the external client owned by a record. Close releases the vendor
// session and stops any background polling the client owns.
type Handle interface {
	Close()
}

// Record binds a session identifier to an authenticated vendor client.
// SharedSecret and IdentitySecret are sensitive: they must never be logged or
// returned to callers. CreatedAt is set once and drives eviction.
type Record struct {
	ID             string
	Client         Handle
	SteamID        string
	AccountName    string
	SharedSecret   string
	IdentitySecret string
	DeviceID       string
	CreatedAt      time.Time
	LoggedIn       bool
}

// Registry is an in-memory session store with TTL eviction.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
	maxAge  time.Duration
	now     func() time.Time
	onEvict func(*Record)
	done    chan struct{}
	once    sync.Once
}

// NewRegistry creates an empty registry with the default maximum session age.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*Record),
		maxAge:  MaxSessionAge,
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// WithMaxAge sets a custom maximum session age.
func (r *Registry) WithMaxAge(d time.Duration) *Registry {
	r.maxAge = d
	return r
}

// WithClock sets a custom clock, used by tests to drive eviction.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// WithOnEvict registers a callback invoked for every record the sweep
// removes, after its client handle is closed. It is not called for explicit
// Delete or Close.
func (r *Registry) WithOnEvict(fn func(*Record)) *Registry {
	r.onEvict = fn
	return r
}

// Create stores a record and returns its identifier. When the record carries
// no identifier one is generated: a sortable timestamp prefix plus a random
// suffix. The suffix is not guaranteed collision-free; a collision would
// silently replace the older record, which is accepted as a theoretical
// defect rather than checked on every insert.
func (r *Registry) Create(rec *Record) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = generateID(r.now())
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	r.records[rec.ID] = rec
	return rec.ID
}

// Get returns the record for an identifier. Absence carries a single signal:
// callers treat a missing record as unauthenticated and never learn whether
// it expired or never existed.
func (r *Registry) Get(id string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	return rec, ok
}

// Delete removes a record and releases its client handle. Deleting an
// unknown identifier is a no-op.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	rec, ok := r.records[id]
	if ok {
		delete(r.records, id)
	}
	r.mu.Unlock()

	// The handle is closed outside the lock. A handler that already fetched
	// this record may still be mid-flight against the vendor; its call will
	// fail against the closed handle and surface that error.
	if ok && rec.Client != nil {
		rec.Client.Close()
	}
}

// Sweep evicts every record older than the maximum age at the given instant
// and returns how many were removed. The evicted set is a pure function of
// (now, contents).
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var evicted []*Record
	for id, rec := range r.records {
		if now.Sub(rec.CreatedAt) > r.maxAge {
			delete(r.records, id)
			evicted = append(evicted, rec)
		}
	}
	r.mu.Unlock()

	for _, rec := range evicted {
		if rec.Client != nil {
			rec.Client.Close()
		}
		log.Printf("[Registry] Session %s expired and removed", rec.ID)
		if r.onEvict != nil {
			r.onEvict(rec)
		}
	}
	return len(evicted)
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// StartSweeper runs the periodic sweep until Close is called. It is driven
// by wall-clock scheduling, independent of request handling.
func (r *Registry) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.Sweep(r.now())
			case <-r.done:
				return
			}
		}
	}()
}

// Close stops the sweeper and releases every remaining record.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.done) })

	r.mu.Lock()
	remaining := make([]*Record, 0, len(r.records))
	for id, rec := range r.records {
		delete(r.records, id)
		remaining = append(remaining, rec)
	}
	r.mu.Unlock()

	for _, rec := range remaining {
		if rec.Client != nil {
			rec.Client.Close()
		}
	}
}

// base36 digits for the random identifier suffix.
const idChars = "0123456789abcdefghijklmnopqrstuvwxyz"

// generateID builds "session_<unix-millis>_<9 random base36 chars>".
func generateID(now time.Time) string {
	raw := make([]byte, 9)
	rand.Read(raw)
	suffix := make([]byte, 9)
	for i, b := range raw {
		suffix[i] = idChars[int(b)%len(idChars)]
	}
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}
