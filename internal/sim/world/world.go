package world

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"manacraft.ai/internal/sim/mathx"
)

const (
	Air = "minecraft:air"

	// TicksPerSecond converts definition durations into world ticks.
	TicksPerSecond = 20
)

// NormalizeBlock adds the minecraft namespace to bare block ids.
func NormalizeBlock(id string) string {
	id = strings.TrimSpace(strings.ToLower(id))
	if id == "" {
		return Air
	}
	if !strings.Contains(id, ":") {
		return "minecraft:" + id
	}
	return id
}

// World is a sparse block map plus the living entities standing in it.
// All methods are safe for concurrent use.
type World struct {
	mu sync.Mutex

	tick     uint64
	blocks   map[mathx.Vec3i]string
	entities map[string]*Entity
	spawn    map[string]EntityType
	inbox    map[string][]string
}

func New() *World {
	w := &World{
		blocks:   map[mathx.Vec3i]string{},
		entities: map[string]*Entity{},
		spawn:    map[string]EntityType{},
		inbox:    map[string][]string{},
	}
	for _, t := range DefaultEntityTypes() {
		w.spawn[t.ID] = t
	}
	return w
}

func (w *World) Tick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

func (w *World) BlockAt(pos mathx.Vec3i) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.blocks[pos]; ok {
		return b
	}
	return Air
}

// SetBlock places a block; air clears the position.
func (w *World) SetBlock(pos mathx.Vec3i, block string) {
	block = NormalizeBlock(block)
	w.mu.Lock()
	defer w.mu.Unlock()
	if block == Air {
		delete(w.blocks, pos)
		return
	}
	w.blocks[pos] = block
}

// BlockCount returns the number of non-air blocks.
func (w *World) BlockCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.blocks)
}

// RegisterEntityType makes a type available to Spawn.
func (w *World) RegisterEntityType(t EntityType) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.spawn[t.ID] = t
}

// Join places an actor in the world, or moves it if it is already present.
func (w *World) Join(id string, pos mathx.Vec3) Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entities[id]; ok {
		e.Pos = pos
		return e.clone()
	}
	e := &Entity{ID: id, Type: ActorType, Pos: pos}
	e.initDefaults()
	w.entities[id] = e
	return e.clone()
}

func (w *World) Remove(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.entities[id]
	delete(w.entities, id)
	delete(w.inbox, id)
	return ok
}

// Entity returns a copy of the entity.
func (w *World) Entity(id string) (Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return Entity{}, false
	}
	return e.clone(), true
}

func (w *World) EntityIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.entities))
	for id := range w.entities {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (w *World) PositionOf(id string) (mathx.Vec3, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return mathx.Vec3{}, false
	}
	return e.Pos, true
}

func (w *World) MoveTo(id string, pos mathx.Vec3) error {
	return w.mutate(id, func(e *Entity) { e.Pos = pos })
}

// LivingNear lists living entities inside the box of half-size radius around
// center, ordered by distance then id.
func (w *World) LivingNear(center mathx.Vec3, radius float64, exclude string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	type hit struct {
		id string
		d  float64
	}
	var hits []hit
	for id, e := range w.entities {
		if id == exclude || !e.Alive() {
			continue
		}
		if mathx.WithinBox(center, e.Pos, radius) {
			hits = append(hits, hit{id, center.DistSq(e.Pos)})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].d != hits[j].d {
			return hits[i].d < hits[j].d
		}
		return hits[i].id < hits[j].id
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.id
	}
	return out
}

// Spawn creates an entity of a registered type and returns its id.
func (w *World) Spawn(entityType string, pos mathx.Vec3, owner string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.spawn[entityType]
	if !ok {
		return "", fmt.Errorf("unknown entity type: %s", entityType)
	}
	e := &Entity{
		ID:        uuid.NewString(),
		Type:      t.ID,
		Owner:     owner,
		Pos:       pos,
		Health:    t.MaxHealth,
		MaxHealth: t.MaxHealth,
		Level:     1,
		TTL:       t.LifetimeTicks,
	}
	e.initDefaults()
	w.entities[e.ID] = e
	return e.ID, nil
}

// Message queues a line of text for an actor.
func (w *World) Message(id, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; !ok {
		return
	}
	w.inbox[id] = append(w.inbox[id], text)
}

// DrainMessages returns and clears the actor's queued messages.
func (w *World) DrainMessages(id string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.inbox[id]
	delete(w.inbox, id)
	return out
}

func (w *World) mutate(id string, fn func(e *Entity)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("unknown entity: %s", id)
	}
	fn(e)
	return nil
}
