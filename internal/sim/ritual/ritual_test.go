package ritual

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"manacraft.ai/internal/sim/catalogs"
	"manacraft.ai/internal/sim/cooldown"
	"manacraft.ai/internal/sim/effects"
	"manacraft.ai/internal/sim/failure"
	"manacraft.ai/internal/sim/mana"
	"manacraft.ai/internal/sim/mathx"
	"manacraft.ai/internal/sim/ritual/pattern"
	"manacraft.ai/internal/sim/world"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type faulty struct{ err error }

func (f faulty) RunRitual(effects.World, string, catalogs.RitualDef, mathx.Vec3i) error { return f.err }

var origin = mathx.Vec3i{X: 5, Y: 64, Z: 5}

func testRituals() *catalogs.Catalogs {
	return catalogs.New(nil, []catalogs.RitualDef{
		{
			ID: "mam:verdant_circle", ManaCost: 100, CooldownSeconds: 300, LevelRequirement: 1,
			Pattern: &catalogs.Pattern{
				CenterBlock: "minecraft:gold_block",
				Rings:       []catalogs.Ring{{Material: "minecraft:gold_block", Count: 8, Radius: 3}},
			},
			Effect: &catalogs.Effect{Tag: catalogs.TagNatureHeal, Buffs: []string{"minecraft:regeneration"}, DurationSeconds: 10},
		},
		{
			ID: "mam:ascension", ManaCost: 250, CooldownSeconds: 600, LevelRequirement: 15,
			Items:  []string{"mam:mana_crystal"},
			Effect: &catalogs.Effect{Tag: catalogs.TagAscend, DurationSeconds: 60},
		},
		{
			ID: "mam:costly", ManaCost: 2000, CooldownSeconds: 1,
		},
	})
}

type fixture struct {
	eng     *Engine
	ledgers *mana.Registry
	world   *world.World
	clock   *clock
	settled []Outcome
}

func newFixture(t *testing.T, fx Effects) *fixture {
	t.Helper()
	w := world.New()
	w.Join("alice", origin.Center())
	cats := testRituals()
	r, _ := cats.Ritual("mam:verdant_circle")
	w.SetBlock(origin, r.Pattern.CenterBlock)
	for _, pos := range pattern.Positions(origin, r.Pattern.Rings[0]) {
		w.SetBlock(pos, "minecraft:gold_block")
	}
	if fx == nil {
		fx = effects.NewDispatcher(effects.Options{})
	}
	f := &fixture{
		ledgers: mana.NewRegistry(mana.DefaultConfig()),
		world:   w,
		clock:   &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	f.eng = New(Config{
		Rituals:   cats,
		Ledgers:   f.ledgers,
		Cooldowns: cooldown.NewTracker(),
		Effects:   fx,
		World:     w,
		Blocks:    w,
		Inventory: w,
		Levels:    w,
		Clock:     f.clock.Now,
		OnSettled: func(o Outcome) { f.settled = append(f.settled, o) },
	})
	return f
}

func (f *fixture) personal(t *testing.T) float64 {
	t.Helper()
	l, ok := f.ledgers.Lookup("alice")
	if !ok {
		t.Fatalf("alice has no ledger")
	}
	return l.Pool(mana.Personal).Current()
}

func TestExecute_Success(t *testing.T) {
	f := newFixture(t, nil)
	out, err := f.eng.Execute("alice", "verdant_circle", origin)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Stage != Succeeded || out.TxID == "" || out.Cost != 100 {
		t.Fatalf("outcome: %+v", out)
	}
	if got := f.personal(t); got != 900 {
		t.Fatalf("personal=%v want 900", got)
	}
	if rem, ok := f.eng.Remaining("alice", "mam:verdant_circle"); !ok || rem != 300*time.Second {
		t.Fatalf("remaining=%v ok=%v", rem, ok)
	}
	if st := f.world.ActiveStatuses("alice"); len(st) != 1 || st[0] != "minecraft:regeneration" {
		t.Fatalf("statuses=%v", st)
	}
	if len(f.settled) != 1 || f.settled[0].Stage != Succeeded {
		t.Fatalf("settled=%+v", f.settled)
	}
}

func TestExecute_CooldownGating(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.eng.Execute("alice", "mam:verdant_circle", origin); err != nil {
		t.Fatalf("first: %v", err)
	}
	f.clock.Advance(100 * time.Second)
	_, err := f.eng.Execute("alice", "mam:verdant_circle", origin)
	var cd *failure.OnCooldownError
	if !errors.As(err, &cd) || cd.Remaining != 200*time.Second {
		t.Fatalf("err=%v", err)
	}
	if got := f.personal(t); got != 900 {
		t.Fatalf("cooldown rejection mutated balance: %v", got)
	}
	f.clock.Advance(200 * time.Second)
	if _, err := f.eng.Execute("alice", "mam:verdant_circle", origin); err != nil {
		t.Fatalf("after cooldown: %v", err)
	}
	if got := f.personal(t); got != 800 {
		t.Fatalf("personal=%v want 800", got)
	}
}

func TestExecute_RollbackLeavesBalanceAndCooldown(t *testing.T) {
	cause := errors.New("altar cracked")
	f := newFixture(t, faulty{err: cause})
	l := f.ledgers.GetOrCreate("alice")
	l.Pool(mana.Personal).Set(437.25)

	out, err := f.eng.Execute("alice", "mam:verdant_circle", origin)
	var fault *failure.EffectExecutionError
	if !errors.As(err, &fault) || !errors.Is(err, cause) {
		t.Fatalf("err=%v", err)
	}
	if out.Stage != RolledBack {
		t.Fatalf("stage=%v", out.Stage)
	}
	if got := f.personal(t); math.Abs(got-437.25) > 1e-9 {
		t.Fatalf("personal=%v want 437.25", got)
	}
	if rem, _ := f.eng.Remaining("alice", "mam:verdant_circle"); rem != 0 {
		t.Fatalf("rollback set a cooldown: %v", rem)
	}
	if len(f.settled) != 1 || f.settled[0].Stage != RolledBack {
		t.Fatalf("settled=%+v", f.settled)
	}
}

func TestExecute_ValidationOrder(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.eng.Execute("alice", "mam:nope", origin)
	var unknown *failure.UnknownDefinitionError
	if !errors.As(err, &unknown) || unknown.Kind != "ritual" {
		t.Fatalf("unknown: %v", err)
	}

	// Level is checked before funds, cooldown, pattern and items.
	_, err = f.eng.Execute("alice", "mam:ascension", mathx.Vec3i{})
	var lvl *failure.LevelTooLowError
	if !errors.As(err, &lvl) || lvl.Required != 15 || lvl.Actual != 1 {
		t.Fatalf("level: %v", err)
	}

	_ = f.world.SetLevel("alice", 20)
	_, err = f.eng.Execute("alice", "mam:ascension", mathx.Vec3i{})
	if !errors.Is(err, failure.ErrItemsMissing) {
		t.Fatalf("items: %v", err)
	}

	_, err = f.eng.Execute("alice", "mam:costly", origin)
	var funds *failure.InsufficientFundsError
	if !errors.As(err, &funds) || funds.Needed != 2000 || funds.Available != 1000 {
		t.Fatalf("funds: %v", err)
	}

	_, err = f.eng.Execute("alice", "mam:verdant_circle", mathx.Vec3i{X: 100})
	if !errors.Is(err, failure.ErrPatternMismatch) {
		t.Fatalf("pattern: %v", err)
	}
	if _, ok := f.ledgers.Lookup("alice"); ok {
		t.Fatalf("validation failures must not create a ledger")
	}
	if len(f.settled) != 0 {
		t.Fatalf("validation failures must not settle")
	}

	_ = f.world.GiveItem("alice", "mam:mana_crystal", 1)
	if _, err := f.eng.Execute("alice", "mam:ascension", mathx.Vec3i{}); err != nil {
		t.Fatalf("ascension: %v", err)
	}
}

func TestExecute_CooldownCheckedBeforePattern(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.eng.Execute("alice", "mam:verdant_circle", origin); err != nil {
		t.Fatalf("first: %v", err)
	}
	_, err := f.eng.Execute("alice", "mam:verdant_circle", mathx.Vec3i{X: 100})
	var cd *failure.OnCooldownError
	if !errors.As(err, &cd) {
		t.Fatalf("expected cooldown before pattern, got %v", err)
	}
}

func TestResetCooldownAndRemaining(t *testing.T) {
	f := newFixture(t, nil)
	if _, ok := f.eng.Remaining("alice", "mam:nope"); ok {
		t.Fatalf("unknown ritual should report !ok")
	}
	if rem, ok := f.eng.Remaining("alice", "mam:verdant_circle"); !ok || rem != 0 {
		t.Fatalf("absent entry should be ready: %v", rem)
	}
	if _, err := f.eng.Execute("alice", "mam:verdant_circle", origin); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !f.eng.ResetCooldown("alice", "verdant_circle") {
		t.Fatalf("reset should report an entry")
	}
	if f.eng.ResetCooldown("alice", "verdant_circle") {
		t.Fatalf("second reset has nothing to clear")
	}
	if _, err := f.eng.Execute("alice", "mam:verdant_circle", origin); err != nil {
		t.Fatalf("after reset: %v", err)
	}
}

func TestStageString(t *testing.T) {
	if Succeeded.String() != "succeeded" || RolledBack.String() != "rolled_back" || Stage(42).String() != "unknown" {
		t.Fatalf("stage strings")
	}
}

type slowEffect struct {
	clock *clock
	took  time.Duration
}

func (s *slowEffect) RunRitual(effects.World, string, catalogs.RitualDef, mathx.Vec3i) error {
	s.clock.Advance(s.took)
	return nil
}

func TestExecute_CooldownStartsAtRequestTime(t *testing.T) {
	fx := &slowEffect{took: 10 * time.Second}
	f := newFixture(t, fx)
	fx.clock = f.clock
	if _, err := f.eng.Execute("alice", "verdant_circle", origin); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	rem, ok := f.eng.Remaining("alice", "verdant_circle")
	if !ok || rem != 290*time.Second {
		t.Fatalf("remaining=%v ok=%v, want 290s", rem, ok)
	}
}
