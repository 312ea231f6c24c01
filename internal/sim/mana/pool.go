package mana

import (
	"math"
	"sync"

	"manacraft.ai/internal/sim/failure"
)

type PoolState struct {
	Kind    Kind    `json:"kind"`
	Current float64 `json:"current"`
	Max     float64 `json:"max"`
}

// Pool is a single reserve. Every mutation runs under the pool's own lock,
// which keeps 0 <= current <= max and makes Consume a single check-and-subtract.
type Pool struct {
	kind  Kind
	regen float64

	mu      sync.Mutex
	current float64
	max     float64
}

// ValidAmount reports whether amount is a finite, non-negative quantity.
func ValidAmount(amount float64) bool {
	return amount >= 0 && !math.IsInf(amount, 1)
}

// NewPool returns a full pool.
func NewPool(kind Kind, max, regen float64) *Pool {
	if !ValidAmount(max) {
		max = 0
	}
	if !ValidAmount(regen) {
		regen = 0
	}
	return &Pool{kind: kind, regen: regen, current: max, max: max}
}

func (p *Pool) Kind() Kind         { return p.kind }
func (p *Pool) RegenRate() float64 { return p.regen }

// Add credits amount, clamped to max, and returns the delta actually applied.
func (p *Pool) Add(amount float64) (float64, error) {
	if !ValidAmount(amount) {
		return 0, failure.ErrInvalidAmount
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addLocked(amount), nil
}

func (p *Pool) addLocked(amount float64) float64 {
	old := p.current
	p.current = min(p.current+amount, p.max)
	return p.current - old
}

// Consume debits amount iff the pool holds at least that much. On false
// nothing changed.
func (p *Pool) Consume(amount float64) (bool, error) {
	if !ValidAmount(amount) {
		return false, failure.ErrInvalidAmount
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current < amount {
		return false, nil
	}
	p.current -= amount
	if p.current < 0 {
		p.current = 0
	}
	return true, nil
}

func (p *Pool) Has(amount float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current >= amount
}

// Regenerate adds one tick of regeneration and returns the delta applied.
func (p *Pool) Regenerate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addLocked(p.regen)
}

// Set stores amount clamped into [0, max]. NaN and infinities are rejected.
func (p *Pool) Set(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return failure.ErrInvalidAmount
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = max(0, min(amount, p.max))
	return nil
}

// SetMax changes the capacity, clamping current. A negative max counts as 0.
func (p *Pool) SetMax(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return failure.ErrInvalidAmount
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.max = max(0, amount)
	if p.current > p.max {
		p.current = p.max
	}
	return nil
}

// Fill sets current to max.
func (p *Pool) Fill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = p.max
}

func (p *Pool) State() PoolState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolState{Kind: p.kind, Current: p.current, Max: p.max}
}

func (p *Pool) Current() float64 { return p.State().Current }
func (p *Pool) Max() float64     { return p.State().Max }

func (p *Pool) Percentage() float64 {
	s := p.State()
	if s.Max <= 0 {
		return 0
	}
	return s.Current / s.Max * 100
}

func (p *Pool) IsFull() bool {
	s := p.State()
	return s.Current >= s.Max
}

func (p *Pool) IsEmpty() bool { return p.State().Current <= 0 }
