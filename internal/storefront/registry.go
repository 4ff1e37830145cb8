package storefront

import (
	"context"
	"sync"
	"time"

	"boutique/internal/logger"
)

const (
	defaultIdleTTL       = 30 * time.Minute
	defaultBootstrapWait = 2 * time.Second
)

// StorageFactory opens the persisted storage of one client.
type StorageFactory func(clientID string) Storage

type entry struct {
	once     sync.Once
	ready    chan struct{}
	sf       *Storefront
	lastSeen time.Time
}

// Registry keeps one live Storefront per client id. Idle storefronts are
// dropped from memory; their state lives on in storage and is restored on
// the next request.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*entry
	api      API
	notifier Notifier
	storage  StorageFactory
	idleTTL  time.Duration
	wait     time.Duration
}

func NewRegistry(api API, notifier Notifier, storage StorageFactory) *Registry {
	return &Registry{
		entries:  make(map[string]*entry),
		api:      api,
		notifier: notifier,
		storage:  storage,
		idleTTL:  defaultIdleTTL,
		wait:     defaultBootstrapWait,
	}
}

// WithBootstrapWait bounds how long Get blocks on a new client's session
// restore. Requests arriving later than that see the session loading.
func (r *Registry) WithBootstrapWait(d time.Duration) *Registry {
	r.wait = d
	return r
}

// Get returns the storefront of clientID, creating it on first use. The
// cart is restored before Get returns. The session is restored in the
// background, which may call the API; Get waits for it up to the bootstrap
// wait and otherwise hands back a storefront whose session is still loading.
func (r *Registry) Get(ctx context.Context, clientID string) *Storefront {
	r.mu.Lock()
	e, ok := r.entries[clientID]
	if !ok {
		e = &entry{
			ready: make(chan struct{}),
			sf:    New(clientID, r.api, r.storage(clientID), r.notifier),
		}
		r.entries[clientID] = e
	}
	e.lastSeen = time.Now()
	r.mu.Unlock()

	e.once.Do(func() {
		bg := context.WithoutCancel(ctx)
		e.sf.restoreCart(bg)
		go func() {
			defer close(e.ready)
			e.sf.Session.Bootstrap(bg)
		}()
	})

	timer := time.NewTimer(r.wait)
	defer timer.Stop()
	select {
	case <-e.ready:
	case <-timer.C:
		logger.Debug("Session still restoring", "client_id", clientID)
	}
	return e.sf
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Cleanup evicts storefronts not seen for the idle TTL.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, e := range r.entries {
		if time.Since(e.lastSeen) > r.idleTTL {
			delete(r.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		logger.Debug("Evicted idle storefronts", "count", evicted)
	}
	return evicted
}

// Run calls Cleanup every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cleanup()
		}
	}
}
