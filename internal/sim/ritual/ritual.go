// Package ritual executes multi-block rituals as debit, effect, refund
// transactions gated by level, cooldown, pattern and items.
package ritual

import (
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"manacraft.ai/internal/sim/catalogs"
	"manacraft.ai/internal/sim/cooldown"
	"manacraft.ai/internal/sim/effects"
	"manacraft.ai/internal/sim/failure"
	"manacraft.ai/internal/sim/mana"
	"manacraft.ai/internal/sim/mathx"
	"manacraft.ai/internal/sim/ritual/pattern"
)

type RitualSource interface {
	Ritual(id string) (catalogs.RitualDef, bool)
}

type Inventory interface {
	HasItems(actor string, items []string) bool
}

type Levels interface {
	Level(actor string) int
}

type Effects interface {
	RunRitual(w effects.World, actor string, r catalogs.RitualDef, origin mathx.Vec3i) error
}

// Rituals always draw from the personal pool.
const Kind = mana.Personal

type Stage int

const (
	Idle Stage = iota
	Validating
	Committed
	Executing
	Succeeded
	RolledBack
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Committed:
		return "committed"
	case Executing:
		return "executing"
	case Succeeded:
		return "succeeded"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

type Outcome struct {
	TxID     string
	Actor    string
	RitualID string
	Origin   mathx.Vec3i
	Cost     float64
	Stage    Stage
	Err      error
}

type Config struct {
	Rituals   RitualSource
	Ledgers   *mana.Registry
	Cooldowns *cooldown.Tracker
	Effects   Effects
	World     effects.World
	Blocks    pattern.BlockReader
	Inventory Inventory
	Levels    Levels
	Clock     func() time.Time
	Logger    *log.Logger

	// OnSettled is called once a ritual reached Succeeded or RolledBack.
	OnSettled func(Outcome)
}

type Engine struct {
	rituals   RitualSource
	ledgers   *mana.Registry
	cooldowns *cooldown.Tracker
	fx        Effects
	world     effects.World
	blocks    pattern.BlockReader
	inv       Inventory
	levels    Levels
	now       func() time.Time
	log       *log.Logger
	onSettled func(Outcome)
}

func New(cfg Config) *Engine {
	e := &Engine{
		rituals:   cfg.Rituals,
		ledgers:   cfg.Ledgers,
		cooldowns: cfg.Cooldowns,
		fx:        cfg.Effects,
		world:     cfg.World,
		blocks:    cfg.Blocks,
		inv:       cfg.Inventory,
		levels:    cfg.Levels,
		now:       cfg.Clock,
		log:       cfg.Logger,
		onSettled: cfg.OnSettled,
	}
	if e.cooldowns == nil {
		e.cooldowns = cooldown.NewTracker()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = log.New(io.Discard, "", 0)
	}
	return e
}

// Execute validates, debits, runs and settles one ritual. Validation
// failures leave no trace; an effect fault refunds the debit and leaves the
// cooldown untouched. The cooldown starts at the time the request arrived.
func (e *Engine) Execute(actor, ritualID string, origin mathx.Vec3i) (Outcome, error) {
	now := e.now()
	r, ok := e.rituals.Ritual(ritualID)
	if !ok {
		return Outcome{}, &failure.UnknownDefinitionError{Kind: "ritual", ID: ritualID}
	}
	out := Outcome{
		TxID:     uuid.NewString(),
		Actor:    actor,
		RitualID: r.ID,
		Origin:   origin,
		Cost:     r.ManaCost,
		Stage:    Validating,
	}
	if err := e.validate(actor, r, origin, now); err != nil {
		e.log.Printf("ritual %s: %s %s rejected: %v", out.TxID, actor, r.ID, err)
		return Outcome{}, err
	}

	l := e.ledgers.GetOrCreate(actor)
	ok, err := l.Consume(Kind, r.ManaCost)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		// Lost a race against another debit since validation.
		return Outcome{}, &failure.InsufficientFundsError{Kind: string(Kind), Needed: r.ManaCost, Available: l.Pool(Kind).Current()}
	}
	out.Stage = Committed
	e.log.Printf("ritual %s: %s, %s paid %.1f %s mana for %s", out.TxID, out.Stage, actor, r.ManaCost, Kind, r.ID)

	out.Stage = Executing
	if fault := e.fx.RunRitual(e.world, actor, r, origin); fault != nil {
		if _, err := l.Add(Kind, r.ManaCost); err != nil {
			e.log.Printf("ritual %s: refund failed: %v", out.TxID, err)
		}
		out.Stage = RolledBack
		out.Err = &failure.EffectExecutionError{Cause: fault}
		e.log.Printf("ritual %s: %s %s rolled back: %v", out.TxID, actor, r.ID, fault)
		e.settle(out)
		return out, out.Err
	}

	e.cooldowns.Mark(actor, r.ID, now)
	out.Stage = Succeeded
	e.log.Printf("ritual %s: %s performed %s at %v (cost %.1f)", out.TxID, actor, r.ID, origin, r.ManaCost)
	e.settle(out)
	return out, nil
}

func (e *Engine) validate(actor string, r catalogs.RitualDef, origin mathx.Vec3i, now time.Time) error {
	if lvl := e.level(actor); lvl < r.LevelRequirement {
		return &failure.LevelTooLowError{Required: r.LevelRequirement, Actual: lvl}
	}
	if avail := e.available(actor); avail < r.ManaCost {
		return &failure.InsufficientFundsError{Kind: string(Kind), Needed: r.ManaCost, Available: avail}
	}
	if rem := e.cooldowns.Remaining(actor, r.ID, r.Cooldown(), now); rem > 0 {
		return &failure.OnCooldownError{Remaining: rem}
	}
	if e.blocks != nil && !pattern.Validate(e.blocks, origin, r.Pattern) {
		return failure.ErrPatternMismatch
	}
	if len(r.Items) > 0 && (e.inv == nil || !e.inv.HasItems(actor, r.Items)) {
		return failure.ErrItemsMissing
	}
	return nil
}

func (e *Engine) level(actor string) int {
	if e.levels == nil {
		return 0
	}
	return e.levels.Level(actor)
}

// available reads the personal balance without creating a ledger.
func (e *Engine) available(actor string) float64 {
	if l, ok := e.ledgers.Lookup(actor); ok {
		return l.Pool(Kind).Current()
	}
	return e.ledgers.Config()[Kind].Max
}

func (e *Engine) settle(o Outcome) {
	if e.onSettled != nil {
		e.onSettled(o)
	}
}

// Remaining returns the cooldown left for the actor's ritual. The bool is
// false for an unknown ritual.
func (e *Engine) Remaining(actor, ritualID string) (time.Duration, bool) {
	r, ok := e.rituals.Ritual(ritualID)
	if !ok {
		return 0, false
	}
	return e.cooldowns.Remaining(actor, r.ID, r.Cooldown(), e.now()), true
}

// ResetCooldown clears the actor's cooldown entry for the ritual.
func (e *Engine) ResetCooldown(actor, ritualID string) bool {
	r, ok := e.rituals.Ritual(ritualID)
	if !ok {
		return false
	}
	return e.cooldowns.Reset(actor, r.ID)
}

// Cooldowns exposes the tracker for lifecycle pruning.
func (e *Engine) Cooldowns() *cooldown.Tracker { return e.cooldowns }
