package mana

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"manacraft.ai/internal/sim/failure"
)

func TestPool_InvariantUnderRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	p := NewPool(Personal, 100, 0.5)
	for i := 0; i < 10000; i++ {
		amount := rng.Float64() * 80
		switch rng.Intn(5) {
		case 0:
			_, _ = p.Add(amount)
		case 1:
			_, _ = p.Consume(amount)
		case 2:
			p.Regenerate()
		case 3:
			p.Set(amount*2 - 40)
		case 4:
			p.SetMax(amount * 2)
		}
		s := p.State()
		if s.Current < 0 || s.Current > s.Max || s.Max < 0 {
			t.Fatalf("step %d: invariant broken: %+v", i, s)
		}
	}
}

func TestPool_ConsumeInsufficientLeavesBalance(t *testing.T) {
	p := NewPool(Personal, 100, 0)
	p.Set(10)
	ok, err := p.Consume(15)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if ok {
		t.Fatalf("expected consume(15) on 10 to fail")
	}
	if got := p.Current(); got != 10 {
		t.Fatalf("expected current=10, got %v", got)
	}
}

func TestPool_ConsumeThenAddRestoresExactly(t *testing.T) {
	p := NewPool(Aura, 500, 0.2)
	p.Set(123.456)
	before := p.Current()
	for _, amt := range []float64{0.1, 1.0 / 3.0, 42.42, 100} {
		ok, err := p.Consume(amt)
		if err != nil || !ok {
			t.Fatalf("consume(%v): ok=%v err=%v", amt, ok, err)
		}
		if _, err := p.Add(amt); err != nil {
			t.Fatalf("add: %v", err)
		}
		if math.Abs(p.Current()-before) > 1e-9 {
			t.Fatalf("refund drift after %v: got %v want %v", amt, p.Current(), before)
		}
	}
}

func TestPool_AddClampsAndReportsDelta(t *testing.T) {
	p := NewPool(Personal, 100, 0)
	p.Set(95)
	got, err := p.Add(20)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got != 5 {
		t.Fatalf("expected delta 5, got %v", got)
	}
	if !p.IsFull() {
		t.Fatalf("expected full pool")
	}
}

func TestPool_NegativeAmountsRejected(t *testing.T) {
	p := NewPool(Personal, 100, 0)
	p.Set(50)
	if _, err := p.Add(-1); !errors.Is(err, failure.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount from Add, got %v", err)
	}
	if _, err := p.Consume(-1); !errors.Is(err, failure.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount from Consume, got %v", err)
	}
	if p.Current() != 50 {
		t.Fatalf("negative request mutated pool: %v", p.Current())
	}
}

func TestPool_SetMaxClampsCurrent(t *testing.T) {
	p := NewPool(Reserve, 3000, 0.05)
	p.SetMax(200)
	if s := p.State(); s.Current != 200 || s.Max != 200 {
		t.Fatalf("unexpected state after SetMax: %+v", s)
	}
	p.SetMax(-5)
	if s := p.State(); s.Current != 0 || s.Max != 0 {
		t.Fatalf("negative max should clamp to 0: %+v", s)
	}
	if p.Percentage() != 0 || !p.IsEmpty() {
		t.Fatalf("zero-capacity pool should report 0%% and empty")
	}
}

func TestPool_RejectsNonFiniteAmounts(t *testing.T) {
	p := NewPool(Personal, 10, 0)
	for _, amt := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := p.Add(amt); !errors.Is(err, failure.ErrInvalidAmount) {
			t.Fatalf("Add(%v): err=%v", amt, err)
		}
		if ok, err := p.Consume(amt); ok || !errors.Is(err, failure.ErrInvalidAmount) {
			t.Fatalf("Consume(%v): ok=%v err=%v", amt, ok, err)
		}
		if err := p.Set(amt); !errors.Is(err, failure.ErrInvalidAmount) {
			t.Fatalf("Set(%v): err=%v", amt, err)
		}
		if err := p.SetMax(amt); !errors.Is(err, failure.ErrInvalidAmount) {
			t.Fatalf("SetMax(%v): err=%v", amt, err)
		}
	}
	if s := p.State(); s.Current != 10 || s.Max != 10 {
		t.Fatalf("pool changed: %+v", s)
	}
	if ok, _ := p.Consume(1e9); ok {
		t.Fatalf("consume beyond balance succeeded")
	}

	if q := NewPool(Aura, math.NaN(), math.NaN()); q.Max() != 0 || q.RegenRate() != 0 {
		t.Fatalf("NaN config: max=%v regen=%v", q.Max(), q.RegenRate())
	}
}

func TestLedger_RestoreIgnoresNaN(t *testing.T) {
	l := NewLedger(DefaultConfig())
	l.Restore(Snapshot{Pools: map[Kind]PoolState{Personal: {Kind: Personal, Current: math.NaN(), Max: 1000}}})
	if got := l.Pool(Personal).Current(); got != 1000 {
		t.Fatalf("expected refill on NaN record, got %v", got)
	}
}

func TestPool_RegenerateStopsAtMax(t *testing.T) {
	p := NewPool(Personal, 10, 4)
	p.Set(3)
	p.Regenerate()
	p.Regenerate()
	if got := p.Regenerate(); got != 0 {
		t.Fatalf("regen on a full pool should apply nothing, got %v", got)
	}
	if p.Current() != 10 {
		t.Fatalf("expected 10, got %v", p.Current())
	}
}

func TestPool_ConcurrentConsumeOnlyOneWins(t *testing.T) {
	for round := 0; round < 200; round++ {
		p := NewPool(Personal, 100, 0)
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			wins  int
			start = make(chan struct{})
		)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				ok, _ := p.Consume(60)
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		close(start)
		wg.Wait()
		if wins != 1 {
			t.Fatalf("round %d: expected exactly one winner, got %d", round, wins)
		}
		if got := p.Current(); got != 40 {
			t.Fatalf("round %d: expected current=40, got %v", round, got)
		}
	}
}
