package mana

import (
	"sync"
	"testing"
)

func testConfig() Config {
	return Config{
		Personal: {Max: 1000, Regen: 0.5},
		Aura:     {Max: 500, Regen: 0.2},
		Reserve:  {Max: 3000, Regen: 0.05},
	}
}

func TestLedger_StartsFullAndTicks(t *testing.T) {
	l := NewLedger(testConfig())
	if l.Total() != 4500 || l.TotalMax() != 4500 {
		t.Fatalf("expected full ledger, total=%v max=%v", l.Total(), l.TotalMax())
	}
	if ok, _ := l.Consume(Personal, 100); !ok {
		t.Fatalf("consume personal failed")
	}
	if ok, _ := l.Consume(Aura, 100); !ok {
		t.Fatalf("consume aura failed")
	}
	l.Tick()
	if got := l.Pool(Personal).Current(); got != 900.5 {
		t.Fatalf("personal after tick: %v", got)
	}
	if got := l.Pool(Aura).Current(); got != 400.2 {
		t.Fatalf("aura after tick: %v", got)
	}
	if got := l.Pool(Reserve).Current(); got != 3000 {
		t.Fatalf("reserve should stay full: %v", got)
	}
}

func TestLedger_UnknownKind(t *testing.T) {
	l := NewLedger(testConfig())
	if _, err := l.Consume(Kind("blood"), 1); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if l.Has(Kind("blood"), 0) {
		t.Fatalf("unknown kind should never report funds")
	}
	if l.Pool(Kind("blood")) != nil {
		t.Fatalf("expected nil pool for unknown kind")
	}
}

func TestLedger_SnapshotRoundTripAndReclamp(t *testing.T) {
	l := NewLedger(testConfig())
	_, _ = l.Consume(Personal, 250)
	_, _ = l.Consume(Reserve, 2900)
	snap := l.Snapshot()

	// Configuration shrank the personal pool since the snapshot was taken.
	cfg := testConfig()
	cfg[Personal] = KindConfig{Max: 600, Regen: 0.5}
	restored := NewLedger(cfg)
	restored.Restore(snap)

	if s := restored.Pool(Personal).State(); s.Max != 600 || s.Current != 600 {
		t.Fatalf("personal not re-clamped: %+v", s)
	}
	if got := restored.Pool(Reserve).Current(); got != 100 {
		t.Fatalf("reserve current: got %v want 100", got)
	}
	if got := restored.Pool(Aura).Current(); got != 500 {
		t.Fatalf("aura current: got %v want 500", got)
	}
}

func TestLedger_RestoreMissingKindsStayFull(t *testing.T) {
	l := NewLedger(testConfig())
	l.Restore(Snapshot{Pools: map[Kind]PoolState{Aura: {Kind: Aura, Current: 12, Max: 500}}})
	if got := l.Pool(Aura).Current(); got != 12 {
		t.Fatalf("aura: %v", got)
	}
	if !l.Pool(Personal).IsFull() || !l.Pool(Reserve).IsFull() {
		t.Fatalf("kinds absent from snapshot should stay full")
	}
	if got := len(l.Snapshot().States()); got != 3 {
		t.Fatalf("expected 3 states, got %d", got)
	}
}

func TestLedger_RestorePools(t *testing.T) {
	l := NewLedger(testConfig())
	for _, k := range Kinds {
		l.Pool(k).Set(1)
	}
	if err := l.RestorePool(Aura); err != nil {
		t.Fatalf("restore aura: %v", err)
	}
	if !l.Pool(Aura).IsFull() || l.Pool(Personal).IsFull() {
		t.Fatalf("RestorePool touched the wrong pools")
	}
	l.RestoreAll()
	for _, k := range Kinds {
		if !l.Pool(k).IsFull() {
			t.Fatalf("%s not full after RestoreAll", k)
		}
	}
}

func TestRegistry_GetOrCreateIdempotentUnderRace(t *testing.T) {
	r := NewRegistry(testConfig())
	const n = 32
	got := make([]*Ledger, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = r.GetOrCreate("steve")
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if got[i] != got[0] {
			t.Fatalf("caller %d got a different ledger", i)
		}
	}
	if r.Len() != 1 {
		t.Fatalf("expected one ledger, got %d", r.Len())
	}
}

func TestRegistry_LifecycleAndTickAll(t *testing.T) {
	r := NewRegistry(testConfig())
	a := r.GetOrCreate("alex")
	b := r.GetOrCreate("steve")
	_, _ = a.Consume(Personal, 10)
	_, _ = b.Consume(Personal, 20)
	r.TickAll()
	if got := a.Pool(Personal).Current(); got != 990.5 {
		t.Fatalf("alex: %v", got)
	}
	if got := b.Pool(Personal).Current(); got != 980.5 {
		t.Fatalf("steve: %v", got)
	}
	if ids := r.Actors(); len(ids) != 2 || ids[0] != "alex" || ids[1] != "steve" {
		t.Fatalf("actors: %v", ids)
	}
	if !r.Remove("alex") || r.Remove("alex") {
		t.Fatalf("remove should succeed once")
	}
	if _, ok := r.Lookup("alex"); ok {
		t.Fatalf("alex still present")
	}
	if fresh := r.GetOrCreate("alex"); !fresh.Pool(Personal).IsFull() {
		t.Fatalf("recreated ledger should start full")
	}
	r.Clear()
	if r.Len() != 0 {
		t.Fatalf("clear left %d ledgers", r.Len())
	}
}

func TestRegistry_Adopt(t *testing.T) {
	r := NewRegistry(testConfig())
	l := r.Adopt("alex", Snapshot{Pools: map[Kind]PoolState{Personal: {Kind: Personal, Current: 42, Max: 1000}}})
	if got := l.Pool(Personal).Current(); got != 42 {
		t.Fatalf("adopted personal: %v", got)
	}
	if again, _ := r.Lookup("alex"); again != l {
		t.Fatalf("adopt should register the ledger")
	}
}

func TestSnapshotTotal(t *testing.T) {
	s := Snapshot{Pools: map[Kind]PoolState{
		Personal: {Kind: Personal, Current: 10, Max: 100},
		Aura:     {Kind: Aura, Current: 2.5, Max: 50},
	}}
	if got := s.Total(); got != 12.5 {
		t.Fatalf("total=%v", got)
	}
	if (Snapshot{}).Total() != 0 {
		t.Fatalf("empty snapshot should total 0")
	}
}
