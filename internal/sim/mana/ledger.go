package mana

import (
	"fmt"
)

// Snapshot is the persisted form of a ledger: kind -> {current, max}.
type Snapshot struct {
	Pools map[Kind]PoolState `json:"pools"`
}

// States returns the pools in Kinds order, skipping kinds the snapshot lacks.
func (s Snapshot) States() []PoolState {
	out := make([]PoolState, 0, len(s.Pools))
	for _, k := range Kinds {
		if ps, ok := s.Pools[k]; ok {
			out = append(out, ps)
		}
	}
	return out
}

// Total sums the current amount across the snapshot's pools.
func (s Snapshot) Total() float64 {
	var sum float64
	for _, ps := range s.Pools {
		sum += ps.Current
	}
	return sum
}

// Ledger owns one pool per kind for a single actor. The pool map never
// changes after construction, so only the pools themselves synchronise.
type Ledger struct {
	cfg   Config
	pools map[Kind]*Pool
}

func NewLedger(cfg Config) *Ledger {
	l := &Ledger{cfg: cfg, pools: make(map[Kind]*Pool, len(Kinds))}
	for _, k := range Kinds {
		kc := cfg[k]
		l.pools[k] = NewPool(k, kc.Max, kc.Regen)
	}
	return l
}

// Pool returns the pool for kind, or nil for a kind outside Kinds.
func (l *Ledger) Pool(kind Kind) *Pool { return l.pools[kind] }

func (l *Ledger) pool(kind Kind) (*Pool, error) {
	p, ok := l.pools[kind]
	if !ok {
		return nil, fmt.Errorf("unknown mana kind %q", kind)
	}
	return p, nil
}

func (l *Ledger) Consume(kind Kind, amount float64) (bool, error) {
	p, err := l.pool(kind)
	if err != nil {
		return false, err
	}
	return p.Consume(amount)
}

func (l *Ledger) Add(kind Kind, amount float64) (float64, error) {
	p, err := l.pool(kind)
	if err != nil {
		return 0, err
	}
	return p.Add(amount)
}

func (l *Ledger) Has(kind Kind, amount float64) bool {
	p, ok := l.pools[kind]
	return ok && p.Has(amount)
}

// Tick regenerates every pool once.
func (l *Ledger) Tick() {
	for _, k := range Kinds {
		l.pools[k].Regenerate()
	}
}

func (l *Ledger) Snapshot() Snapshot {
	s := Snapshot{Pools: make(map[Kind]PoolState, len(l.pools))}
	for k, p := range l.pools {
		s.Pools[k] = p.State()
	}
	return s
}

// Restore loads a persisted snapshot. The configured max stays
// authoritative: a stored current above it is clamped. Kinds missing from
// the snapshot are left untouched, and an unreadable current refills.
func (l *Ledger) Restore(s Snapshot) {
	for k, ps := range s.Pools {
		p, ok := l.pools[k]
		if !ok {
			continue
		}
		_ = p.SetMax(l.cfg[k].Max)
		if err := p.Set(ps.Current); err != nil {
			p.Fill()
		}
	}
}

func (l *Ledger) RestorePool(kind Kind) error {
	p, err := l.pool(kind)
	if err != nil {
		return err
	}
	p.Fill()
	return nil
}

func (l *Ledger) RestoreAll() {
	for _, p := range l.pools {
		p.Fill()
	}
}

func (l *Ledger) Total() float64 {
	var sum float64
	for _, p := range l.pools {
		sum += p.Current()
	}
	return sum
}

func (l *Ledger) TotalMax() float64 {
	var sum float64
	for _, p := range l.pools {
		sum += p.Max()
	}
	return sum
}
