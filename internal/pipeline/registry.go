package pipeline

import (
	"log/slog"
	"sync"
	"time"
)

// Registry hands out one Session per dashboard view key (player +
// character) and tears idle sessions down after a TTL, bounding the
// additive-only caches to roughly the lifetime of the view that uses them.
type Registry struct {
	stats   StatsAPI
	streams StreamAPI
	logger  *slog.Logger
	ttl     time.Duration

	mu       sync.Mutex
	sessions map[string]*registryEntry

	done      chan struct{}
	closeOnce sync.Once
}

type registryEntry struct {
	session  *Session
	lastSeen time.Time
}

// NewRegistry creates a session registry and starts its sweep loop.
func NewRegistry(stats StatsAPI, streams StreamAPI, ttl time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		stats:    stats,
		streams:  streams,
		logger:   logger,
		ttl:      ttl,
		sessions: make(map[string]*registryEntry),
		done:     make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

// Close stops the sweep loop. Live sessions stay usable.
func (r *Registry) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

// Session returns the live session for a view key, creating it on first use.
func (r *Registry) Session(key string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[key]; ok {
		e.lastSeen = time.Now()
		return e.session
	}
	e := &registryEntry{
		session:  NewSession(r.stats, r.streams, r.logger),
		lastSeen: time.Now(),
	}
	r.sessions[key] = e
	return e.session
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			r.sweep(now)
		case <-r.done:
			return
		}
	}
}

func (r *Registry) sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.sessions {
		if now.Sub(e.lastSeen) > r.ttl {
			delete(r.sessions, key)
		}
	}
}
