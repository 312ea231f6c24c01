// Package arcana is the engine facade: it owns the ledgers and cooldowns,
// runs the regeneration tick and routes cast and ritual requests.
package arcana

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"manacraft.ai/internal/sim/casting"
	"manacraft.ai/internal/sim/catalogs"
	"manacraft.ai/internal/sim/cooldown"
	"manacraft.ai/internal/sim/effects"
	"manacraft.ai/internal/sim/failure"
	"manacraft.ai/internal/sim/mana"
	"manacraft.ai/internal/sim/mathx"
	"manacraft.ai/internal/sim/ritual"
	"manacraft.ai/internal/sim/ritual/pattern"
	"manacraft.ai/internal/sim/tuning"
	"manacraft.ai/internal/sim/world"
)

type Store interface {
	Save(actorID string, s mana.Snapshot) error
	Load(actorID string) (mana.Snapshot, bool, error)
}

type Notifier interface {
	NotifyPoolChanged(actorID string, s mana.Snapshot)
}

type Journal interface {
	WriteCast(entry CastEntry) error
}

// CastEntry is one settled spell or ritual, as written to the journal.
type CastEntry struct {
	Time    time.Time `json:"time"`
	Tick    uint64    `json:"tick"`
	TxID    string    `json:"tx_id"`
	Actor   string    `json:"actor"`
	Type    string    `json:"type"` // "spell" or "ritual"
	DefID   string    `json:"def_id"`
	Pool    string    `json:"pool"`
	Cost    float64   `json:"cost"`
	Outcome string    `json:"outcome"` // "committed" or "rolled_back"
	Error   string    `json:"error,omitempty"`
	Origin  *[3]int   `json:"origin,omitempty"`
}

// Journals fans one entry out to several journals.
type Journals []Journal

func (js Journals) WriteCast(entry CastEntry) error {
	var errs []error
	for _, j := range js {
		if err := j.WriteCast(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	// ErrNoLedger is returned by pool edits for an actor that has not joined.
	ErrNoLedger       = errors.New("actor has no live ledger")
	ErrReloadDisabled = errors.New("catalog reload disabled")
)

const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
)

type Config struct {
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs
	World    *world.World

	// CatalogDir is reread by ReloadCatalogs; empty disables reloads.
	CatalogDir string
	// CatalogsLoaded runs after every successful reload.
	CatalogsLoaded func(*catalogs.Catalogs)

	Store    Store
	Notifier Notifier
	Journal  Journal

	Clock  func() time.Time
	Logger *log.Logger
}

type Engine struct {
	tune     tuning.Tuning
	cats     atomic.Pointer[catalogs.Catalogs]
	catDir   string
	onCats   func(*catalogs.Catalogs)
	world    *world.World
	ledgers  *mana.Registry
	cooldown *cooldown.Tracker
	caster   *casting.Caster
	rituals  *ritual.Engine

	store    Store
	notifier Notifier
	journal  Journal
	now      func() time.Time
	log      *log.Logger

	tick atomic.Uint64
}

func New(cfg Config) (*Engine, error) {
	if cfg.Catalogs == nil {
		return nil, fmt.Errorf("arcana: catalogs required")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("arcana: %w", err)
	}
	e := &Engine{
		tune:     cfg.Tuning,
		catDir:   cfg.CatalogDir,
		onCats:   cfg.CatalogsLoaded,
		world:    cfg.World,
		ledgers:  mana.NewRegistry(mana.ConfigFromTuning(cfg.Tuning)),
		cooldown: cooldown.NewTracker(),
		store:    cfg.Store,
		notifier: cfg.Notifier,
		journal:  cfg.Journal,
		now:      cfg.Clock,
		log:      cfg.Logger,
	}
	e.cats.Store(cfg.Catalogs)
	if e.world == nil {
		e.world = world.New()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = log.New(io.Discard, "", 0)
	}
	fx := effects.NewDispatcher(effects.Options{StrictTags: cfg.Tuning.Effects.StrictTags, Logger: e.log})
	e.caster = casting.New(casting.Config{
		Spells:    e,
		Ledgers:   e.ledgers,
		Effects:   fx,
		World:     e.world,
		Logger:    e.log,
		OnSettled: e.spellSettled,
	})
	e.rituals = ritual.New(ritual.Config{
		Rituals:   e,
		Ledgers:   e.ledgers,
		Cooldowns: e.cooldown,
		Effects:   fx,
		World:     e.world,
		Blocks:    e.world,
		Inventory: e.world,
		Levels:    e.world,
		Clock:     e.now,
		Logger:    e.log,
		OnSettled: e.ritualSettled,
	})
	e.warnUnknownTags(cfg.Catalogs)
	return e, nil
}

func (e *Engine) warnUnknownTags(c *catalogs.Catalogs) {
	for _, id := range c.UnknownEffectTags {
		e.log.Printf("catalogs: ritual %s has an unknown effect tag", id)
	}
}

func (e *Engine) Catalogs() *catalogs.Catalogs { return e.cats.Load() }
func (e *Engine) World() *world.World          { return e.world }
func (e *Engine) CurrentTick() uint64          { return e.tick.Load() }

// Spell and Ritual resolve against the catalogs in effect at call time.
func (e *Engine) Spell(id string) (catalogs.SpellDef, bool)   { return e.Catalogs().Spell(id) }
func (e *Engine) Ritual(id string) (catalogs.RitualDef, bool) { return e.Catalogs().Ritual(id) }

// ReloadCatalogs rereads the definition directory and swaps it in. Casts in
// flight finish against the definitions they started with. On error the
// current catalogs stay.
func (e *Engine) ReloadCatalogs() (*catalogs.Catalogs, error) {
	if e.catDir == "" {
		return nil, ErrReloadDisabled
	}
	c, err := catalogs.Load(e.catDir)
	if err != nil {
		return nil, fmt.Errorf("reload catalogs: %w", err)
	}
	e.cats.Store(c)
	e.warnUnknownTags(c)
	e.log.Printf("catalogs reloaded: %d spells (digest %s), %d rituals (digest %s)",
		len(c.Spells.ByID), c.Spells.Digest, len(c.Rituals.ByID), c.Rituals.Digest)
	if e.onCats != nil {
		e.onCats(c)
	}
	return c, nil
}

// BuildRitual places the ritual's pattern around origin and returns the
// number of blocks set.
func (e *Engine) BuildRitual(ritualID string, origin mathx.Vec3i) (int, error) {
	r, ok := e.Ritual(ritualID)
	if !ok {
		return 0, &failure.UnknownDefinitionError{Kind: "ritual", ID: ritualID}
	}
	n := pattern.Build(e.world, origin, r.Pattern)
	e.log.Printf("world: built %s at %v (%d blocks)", r.ID, origin, n)
	return n, nil
}

// SetNotifier installs the pool-change sink. Call it before the tick loop
// starts; transports are built after the engine.
func (e *Engine) SetNotifier(n Notifier) { e.notifier = n }

func (e *Engine) CastSpell(actorID, spellID string) (casting.Outcome, error) {
	return e.caster.Cast(actorID, spellID)
}

func (e *Engine) CanCast(actorID, spellID string) bool { return e.caster.CanCast(actorID, spellID) }

func (e *Engine) SpellCost(spellID string) (float64, bool) { return e.caster.Cost(spellID) }

func (e *Engine) ExecuteRitual(actorID, ritualID string, origin mathx.Vec3i) (ritual.Outcome, error) {
	return e.rituals.Execute(actorID, ritualID, origin)
}

func (e *Engine) RitualCooldown(actorID, ritualID string) (time.Duration, bool) {
	return e.rituals.Remaining(actorID, ritualID)
}

func (e *Engine) ResetCooldown(actorID, ritualID string) bool {
	return e.rituals.ResetCooldown(actorID, ritualID)
}

// Pool returns one pool of a live ledger.
func (e *Engine) Pool(actorID string, kind mana.Kind) (mana.PoolState, bool) {
	l, ok := e.ledgers.Lookup(actorID)
	if !ok {
		return mana.PoolState{}, false
	}
	p := l.Pool(kind)
	if p == nil {
		return mana.PoolState{}, false
	}
	return p.State(), true
}

// Pools returns a snapshot of a live ledger.
func (e *Engine) Pools(actorID string) (mana.Snapshot, bool) {
	l, ok := e.ledgers.Lookup(actorID)
	if !ok {
		return mana.Snapshot{}, false
	}
	return l.Snapshot(), true
}

// RestoreAll fills every pool of the actor and pushes the new state.
func (e *Engine) RestoreAll(actorID string) bool {
	l, ok := e.ledgers.Lookup(actorID)
	if !ok {
		return false
	}
	l.RestoreAll()
	e.notify(actorID, l)
	return true
}

// SetPool sets one pool, clamped into [0, max], and pushes the new state.
func (e *Engine) SetPool(actorID string, kind mana.Kind, amount float64) (mana.PoolState, error) {
	if !mana.ValidAmount(amount) {
		return mana.PoolState{}, failure.ErrInvalidAmount
	}
	p, err := e.livePool(actorID, kind)
	if err != nil {
		return mana.PoolState{}, err
	}
	if err := p.Set(amount); err != nil {
		return mana.PoolState{}, err
	}
	e.log.Printf("admin: set %s %s mana to %.1f", actorID, kind, amount)
	return e.poolChanged(actorID, p), nil
}

// AddPool credits one pool up to its max and pushes the new state.
func (e *Engine) AddPool(actorID string, kind mana.Kind, amount float64) (mana.PoolState, error) {
	if !mana.ValidAmount(amount) {
		return mana.PoolState{}, failure.ErrInvalidAmount
	}
	p, err := e.livePool(actorID, kind)
	if err != nil {
		return mana.PoolState{}, err
	}
	if _, err := p.Add(amount); err != nil {
		return mana.PoolState{}, err
	}
	e.log.Printf("admin: added %.1f %s mana to %s", amount, kind, actorID)
	return e.poolChanged(actorID, p), nil
}

func (e *Engine) livePool(actorID string, kind mana.Kind) (*mana.Pool, error) {
	l, ok := e.ledgers.Lookup(actorID)
	if !ok {
		return nil, ErrNoLedger
	}
	p := l.Pool(kind)
	if p == nil {
		return nil, fmt.Errorf("unknown mana kind %q", kind)
	}
	return p, nil
}

func (e *Engine) poolChanged(actorID string, p *mana.Pool) mana.PoolState {
	if l, ok := e.ledgers.Lookup(actorID); ok {
		e.notify(actorID, l)
	}
	return p.State()
}

func (e *Engine) Actors() []string { return e.ledgers.Actors() }

// Join loads the actor's persisted ledger, or starts a full one.
func (e *Engine) Join(actorID string) (mana.Snapshot, error) {
	if actorID == "" {
		return mana.Snapshot{}, fmt.Errorf("empty actor id")
	}
	var l *mana.Ledger
	if e.store != nil {
		snap, ok, err := e.store.Load(actorID)
		if err != nil {
			return mana.Snapshot{}, fmt.Errorf("load %s: %w", actorID, err)
		}
		if ok {
			l = e.ledgers.Adopt(actorID, snap)
		}
	}
	if l == nil {
		l = e.ledgers.GetOrCreate(actorID)
	}
	e.log.Printf("join: %s", actorID)
	return l.Snapshot(), nil
}

// Leave persists and drops the actor's ledger.
func (e *Engine) Leave(actorID string) error {
	l, ok := e.ledgers.Lookup(actorID)
	if !ok {
		return nil
	}
	var err error
	if e.store != nil {
		err = e.store.Save(actorID, l.Snapshot())
	}
	e.ledgers.Remove(actorID)
	if !e.tune.Cooldowns.KeepAcrossSessions {
		e.cooldown.Forget(actorID)
	}
	e.log.Printf("leave: %s", actorID)
	if err != nil {
		return fmt.Errorf("save %s: %w", actorID, err)
	}
	return nil
}

// Tick advances the simulation by one step: every pool regenerates, the
// world steps, and pools are pushed and saved on their cadences.
func (e *Engine) Tick() uint64 {
	n := e.tick.Add(1)
	e.ledgers.TickAll()
	e.world.Step()
	if every := uint64(e.tune.SyncEveryTicks); every > 0 && n%every == 0 {
		e.syncAll()
	}
	if every := uint64(e.tune.AutosaveEveryTicks); every > 0 && n%every == 0 {
		if err := e.SaveAll(); err != nil {
			e.log.Printf("autosave: %v", err)
		}
	}
	return n
}

func (e *Engine) syncAll() {
	if e.notifier == nil {
		return
	}
	for _, id := range e.ledgers.Actors() {
		if l, ok := e.ledgers.Lookup(id); ok {
			e.notifier.NotifyPoolChanged(id, l.Snapshot())
		}
	}
}

func (e *Engine) SaveAll() error {
	if e.store == nil {
		return nil
	}
	var errs []error
	for _, id := range e.ledgers.Actors() {
		l, ok := e.ledgers.Lookup(id)
		if !ok {
			continue
		}
		if err := e.store.Save(id, l.Snapshot()); err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Close saves every ledger and clears the registry.
func (e *Engine) Close() error {
	err := e.SaveAll()
	e.ledgers.Clear()
	return err
}

func (e *Engine) notify(actorID string, l *mana.Ledger) {
	if e.notifier != nil {
		e.notifier.NotifyPoolChanged(actorID, l.Snapshot())
	}
}

func (e *Engine) spellSettled(o casting.Outcome) {
	if l, ok := e.ledgers.Lookup(o.Actor); ok {
		e.notify(o.Actor, l)
	}
	e.record(CastEntry{
		TxID:  o.CastID,
		Actor: o.Actor,
		Type:  "spell",
		DefID: o.SpellID,
		Pool:  string(o.Kind),
		Cost:  o.Cost,
	}, o.Err)
}

func (e *Engine) ritualSettled(o ritual.Outcome) {
	if l, ok := e.ledgers.Lookup(o.Actor); ok {
		e.notify(o.Actor, l)
	}
	origin := [3]int{o.Origin.X, o.Origin.Y, o.Origin.Z}
	e.record(CastEntry{
		TxID:   o.TxID,
		Actor:  o.Actor,
		Type:   "ritual",
		DefID:  o.RitualID,
		Pool:   string(ritual.Kind),
		Cost:   o.Cost,
		Origin: &origin,
	}, o.Err)
}

func (e *Engine) record(entry CastEntry, fault error) {
	if e.journal == nil {
		return
	}
	entry.Time = e.now().UTC()
	entry.Tick = e.tick.Load()
	entry.Outcome = OutcomeCommitted
	if fault != nil {
		entry.Outcome = OutcomeRolledBack
		entry.Error = fault.Error()
	}
	if err := e.journal.WriteCast(entry); err != nil {
		e.log.Printf("journal: %v", err)
	}
}
