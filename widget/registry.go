package widget

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrViewNotFound is returned for ids that were never mounted or have been
// unmounted or swept.
var ErrViewNotFound = errors.New("view not found")

// Limits bounds how many views the registry keeps. Zero values disable the
// corresponding limit.
type Limits struct {
	MaxViews     int
	MaxPerClient int
	TTL          time.Duration
}

// Registry tracks the views mounted by connected pages. Each page mount gets
// its own view; the state is discarded on unmount or after ttl of inactivity.
// A client over its own quota recycles its own oldest view, so one client
// cannot push out the views of others until the global cap is reached.
type Registry struct {
	defaults DisplayConfig
	limits   Limits

	mu      sync.Mutex
	views   map[string]*View
	owners  map[string]string // view id -> client
	perUser map[string]int    // client -> live views
	log     *slog.Logger
}

// NewRegistry creates a registry whose views start from defaults.
func NewRegistry(defaults DisplayConfig, limits Limits, log *slog.Logger) *Registry {
	return &Registry{
		defaults: defaults,
		limits:   limits,
		views:    make(map[string]*View),
		owners:   make(map[string]string),
		perUser:  make(map[string]int),
		log:      log,
	}
}

// Mount creates a new view with the default configuration on behalf of
// client (typically the remote address).
func (r *Registry) Mount(client string) (string, *View) {
	id := uuid.NewString()
	v := NewView(r.defaults)

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.limits.MaxPerClient > 0 && r.perUser[client] >= r.limits.MaxPerClient:
		r.evictOldestLocked(client)
	case r.limits.MaxViews > 0 && len(r.views) >= r.limits.MaxViews:
		r.evictOldestLocked("")
	}
	r.views[id] = v
	r.owners[id] = client
	r.perUser[client]++
	r.log.Debug("view mounted", "view_id", id, "client", client, "views", len(r.views))
	return id, v
}

// Get returns the view mounted under id.
func (r *Registry) Get(id string) (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[id]
	if !ok {
		return nil, ErrViewNotFound
	}
	return v, nil
}

// Unmount discards the view mounted under id.
func (r *Registry) Unmount(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[id]; !ok {
		return ErrViewNotFound
	}
	r.removeLocked(id)
	r.log.Debug("view unmounted", "view_id", id, "views", len(r.views))
	return nil
}

// Len returns the number of live views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Sweep removes views idle for longer than the ttl and returns how many were
// removed.
func (r *Registry) Sweep() int {
	if r.limits.TTL <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(time.Now().Add(-r.limits.TTL))
}

// sweepLocked removes views idle since before cutoff. The caller MUST hold
// r.mu.
func (r *Registry) sweepLocked(cutoff time.Time) int {
	removed := 0
	for id, v := range r.views {
		if v.IdleSince().Before(cutoff) {
			r.removeLocked(id)
			removed++
		}
	}
	return removed
}

// evictOldestLocked drops the least recently used view, restricted to the
// views of client when client is non-empty. The caller MUST hold r.mu.
func (r *Registry) evictOldestLocked(client string) {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, v := range r.views {
		if client != "" && r.owners[id] != client {
			continue
		}
		t := v.IdleSince()
		if oldestID == "" || t.Before(oldest) {
			oldestID, oldest = id, t
		}
	}
	if oldestID != "" {
		r.log.Info("view evicted", "view_id", oldestID, "client", r.owners[oldestID])
		r.removeLocked(oldestID)
	}
}

// removeLocked deletes view id and its ownership record. The caller MUST hold
// r.mu.
func (r *Registry) removeLocked(id string) {
	client := r.owners[id]
	delete(r.views, id)
	delete(r.owners, id)
	if r.perUser[client] <= 1 {
		delete(r.perUser, client)
	} else {
		r.perUser[client]--
	}
}
