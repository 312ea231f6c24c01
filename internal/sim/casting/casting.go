// Package casting runs the debit, effect, refund transaction for spells.
package casting

import (
	"io"
	"log"

	"github.com/google/uuid"

	"manacraft.ai/internal/sim/catalogs"
	"manacraft.ai/internal/sim/effects"
	"manacraft.ai/internal/sim/failure"
	"manacraft.ai/internal/sim/mana"
)

type SpellSource interface {
	Spell(id string) (catalogs.SpellDef, bool)
}

type Effects interface {
	CastSpell(w effects.World, actor string, spell catalogs.SpellDef) error
}

// schoolKinds maps every school to the pool it draws from.
var schoolKinds = map[catalogs.School]mana.Kind{
	catalogs.SchoolAir:     mana.Personal,
	catalogs.SchoolDark:    mana.Personal,
	catalogs.SchoolEarth:   mana.Personal,
	catalogs.SchoolFire:    mana.Personal,
	catalogs.SchoolIce:     mana.Personal,
	catalogs.SchoolThunder: mana.Personal,
	catalogs.SchoolArcane:  mana.Aura,
	catalogs.SchoolLight:   mana.Aura,
	catalogs.SchoolNature:  mana.Aura,
	catalogs.SchoolWater:   mana.Aura,
	catalogs.SchoolBlood:   mana.Reserve,
	catalogs.SchoolChaos:   mana.Reserve,
	catalogs.SchoolVoid:    mana.Reserve,
}

// KindFor returns the pool a school draws from; unknown schools use personal.
func KindFor(school catalogs.School) mana.Kind {
	if k, ok := schoolKinds[school]; ok {
		return k
	}
	return mana.Personal
}

// Outcome describes a settled cast. Err is nil for a committed cast and the
// effect fault for a rolled-back one.
type Outcome struct {
	CastID  string
	Actor   string
	SpellID string
	Kind    mana.Kind
	Cost    float64
	Err     error
}

func (o Outcome) Committed() bool { return o.Err == nil }

type Config struct {
	Spells  SpellSource
	Ledgers *mana.Registry
	Effects Effects
	World   effects.World
	Logger  *log.Logger

	// OnSettled is called after every cast that debited mana, whether the
	// effect committed or was rolled back.
	OnSettled func(Outcome)
}

type Caster struct {
	spells    SpellSource
	ledgers   *mana.Registry
	fx        Effects
	world     effects.World
	log       *log.Logger
	onSettled func(Outcome)
}

func New(cfg Config) *Caster {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Caster{
		spells:    cfg.Spells,
		ledgers:   cfg.Ledgers,
		fx:        cfg.Effects,
		world:     cfg.World,
		log:       logger,
		onSettled: cfg.OnSettled,
	}
}

// Cost returns the spell's mana cost.
func (c *Caster) Cost(spellID string) (float64, bool) {
	s, ok := c.spells.Spell(spellID)
	if !ok {
		return 0, false
	}
	return s.ManaCost, true
}

// CanCast reports whether the actor could currently pay for the spell.
func (c *Caster) CanCast(actor, spellID string) bool {
	s, ok := c.spells.Spell(spellID)
	if !ok {
		return false
	}
	l, ok := c.ledgers.Lookup(actor)
	if !ok {
		// A fresh ledger starts full.
		return s.ManaCost <= c.ledgers.Config()[KindFor(s.School)].Max
	}
	return l.Has(KindFor(s.School), s.ManaCost)
}

// Cast debits the spell's cost, runs its effect and refunds the exact debit
// if the effect faults. Validation failures never mutate.
func (c *Caster) Cast(actor, spellID string) (Outcome, error) {
	s, ok := c.spells.Spell(spellID)
	if !ok {
		c.log.Printf("cast: %s attempted unknown spell %q", actor, spellID)
		return Outcome{}, &failure.UnknownDefinitionError{Kind: "spell", ID: spellID}
	}
	kind := KindFor(s.School)
	out := Outcome{
		CastID:  uuid.NewString(),
		Actor:   actor,
		SpellID: s.ID,
		Kind:    kind,
		Cost:    s.ManaCost,
	}

	l := c.ledgers.GetOrCreate(actor)
	ok, err := l.Consume(kind, s.ManaCost)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, &failure.InsufficientFundsError{
			Kind:      string(kind),
			Needed:    s.ManaCost,
			Available: l.Pool(kind).Current(),
		}
	}

	if fault := c.fx.CastSpell(c.world, actor, s); fault != nil {
		if _, err := l.Add(kind, s.ManaCost); err != nil {
			c.log.Printf("cast %s: refund failed: %v", out.CastID, err)
		}
		c.log.Printf("cast %s: %s %s rolled back: %v", out.CastID, actor, s.ID, fault)
		out.Err = &failure.EffectExecutionError{Cause: fault}
		c.settle(out)
		return out, out.Err
	}
	c.world.Message(actor, "Cast "+catalogs.Path(s.ID)+"!")
	c.log.Printf("cast %s: %s cast %s (cost %.1f %s)", out.CastID, actor, s.ID, s.ManaCost, kind)
	c.settle(out)
	return out, nil
}

func (c *Caster) settle(o Outcome) {
	if c.onSettled != nil {
		c.onSettled(o)
	}
}
