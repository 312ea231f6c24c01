package mana

import (
	"sort"
	"sync"
)

// Registry maps actor ids to their ledger. It is the only owner of ledgers.
type Registry struct {
	cfg Config

	mu      sync.RWMutex
	ledgers map[string]*Ledger
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg, ledgers: map[string]*Ledger{}}
}

func (r *Registry) Config() Config { return r.cfg }

// GetOrCreate returns the actor's ledger, creating a full one on first
// access. Concurrent callers for the same actor all get the first ledger.
func (r *Registry) GetOrCreate(actorID string) *Ledger {
	r.mu.RLock()
	l, ok := r.ledgers[actorID]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.ledgers[actorID]; ok {
		return l
	}
	l = NewLedger(r.cfg)
	r.ledgers[actorID] = l
	return l
}

func (r *Registry) Lookup(actorID string) (*Ledger, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.ledgers[actorID]
	return l, ok
}

// Adopt restores a persisted snapshot into the actor's ledger, creating it
// if needed.
func (r *Registry) Adopt(actorID string, s Snapshot) *Ledger {
	l := r.GetOrCreate(actorID)
	l.Restore(s)
	return l
}

func (r *Registry) Remove(actorID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ledgers[actorID]; !ok {
		return false
	}
	delete(r.ledgers, actorID)
	return true
}

// TickAll regenerates every live ledger. It is meant to be called from the
// single tick goroutine.
func (r *Registry) TickAll() {
	r.mu.RLock()
	ledgers := make([]*Ledger, 0, len(r.ledgers))
	for _, l := range r.ledgers {
		ledgers = append(ledgers, l)
	}
	r.mu.RUnlock()

	for _, l := range ledgers {
		l.Tick()
	}
}

func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ledgers = map[string]*Ledger{}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ledgers)
}

// Actors returns the ids of every live ledger, sorted.
func (r *Registry) Actors() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.ledgers))
	for id := range r.ledgers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
