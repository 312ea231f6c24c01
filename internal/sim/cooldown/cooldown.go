package cooldown

import (
	"sync"
	"time"
)

type key struct {
	actor  string
	action string
}

// Tracker records the last successful use of an action per actor.
type Tracker struct {
	mu   sync.Mutex
	last map[key]time.Time
}

func NewTracker() *Tracker {
	return &Tracker{last: map[key]time.Time{}}
}

func (t *Tracker) Last(actorID, action string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.last[key{actorID, action}]
	return ts, ok
}

// Remaining returns how long until the action is available again, or 0 if
// it is ready now. An action never used is ready.
func (t *Tracker) Remaining(actorID, action string, cooldown time.Duration, now time.Time) time.Duration {
	last, ok := t.Last(actorID, action)
	if !ok {
		return 0
	}
	if rem := cooldown - now.Sub(last); rem > 0 {
		return rem
	}
	return 0
}

func (t *Tracker) Ready(actorID, action string, cooldown time.Duration, now time.Time) bool {
	return t.Remaining(actorID, action, cooldown, now) == 0
}

// Mark records a successful use at now.
func (t *Tracker) Mark(actorID, action string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[key{actorID, action}] = now
}

func (t *Tracker) Reset(actorID, action string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key{actorID, action}
	if _, ok := t.last[k]; !ok {
		return false
	}
	delete(t.last, k)
	return true
}

// Forget drops every entry of an actor and returns how many were removed.
func (t *Tracker) Forget(actorID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k := range t.last {
		if k.actor == actorID {
			delete(t.last, k)
			n++
		}
	}
	return n
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}
