package world

import (
	"sync"
	"testing"

	"manacraft.ai/internal/sim/mathx"
)

func TestBlocksNormalizeAndClear(t *testing.T) {
	w := New()
	p := mathx.Vec3i{X: 1, Y: 64, Z: -2}
	if got := w.BlockAt(p); got != Air {
		t.Fatalf("empty world block: %q", got)
	}
	w.SetBlock(p, "Gold_Block")
	if got := w.BlockAt(p); got != "minecraft:gold_block" {
		t.Fatalf("block: %q", got)
	}
	w.SetBlock(p, "mam:arcane_altar")
	if got := w.BlockAt(p); got != "mam:arcane_altar" {
		t.Fatalf("namespaced block: %q", got)
	}
	w.SetBlock(p, "air")
	if w.BlockCount() != 0 {
		t.Fatalf("air should clear the position")
	}
}

func TestJoinDefaultsAndLevels(t *testing.T) {
	w := New()
	e := w.Join("alice", mathx.Vec3{})
	if e.Health != 20 || e.MaxHealth != 20 || e.Level != 1 || e.Type != ActorType {
		t.Fatalf("unexpected defaults: %+v", e)
	}
	if err := w.SetLevel("alice", 15); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if w.Level("alice") != 15 {
		t.Fatalf("level=%d", w.Level("alice"))
	}
	if w.Level("nobody") != 0 {
		t.Fatalf("absent actor should have level 0")
	}
	if err := w.SetLevel("nobody", 3); err == nil {
		t.Fatalf("expected error for unknown entity")
	}
}

func TestInventory(t *testing.T) {
	w := New()
	w.Join("a", mathx.Vec3{})
	if !w.HasItems("a", nil) {
		t.Fatalf("no items required should pass")
	}
	if w.HasItems("a", []string{"mam:mana_crystal"}) {
		t.Fatalf("empty inventory should not have crystal")
	}
	if err := w.GiveItem("a", "mam:mana_crystal", 1); err != nil {
		t.Fatalf("GiveItem: %v", err)
	}
	if err := w.GiveItem("a", "diamond", 2); err != nil {
		t.Fatalf("GiveItem: %v", err)
	}
	if !w.HasItems("a", []string{"mam:mana_crystal", "minecraft:diamond"}) {
		t.Fatalf("items should be present")
	}
	if err := w.GiveItem("a", "diamond", 0); err == nil {
		t.Fatalf("expected error for zero count")
	}
}

func TestLivingNearOrderAndExclude(t *testing.T) {
	w := New()
	w.Join("caster", mathx.Vec3{})
	w.Join("far", mathx.Vec3{X: 10})
	w.Join("b", mathx.Vec3{X: 2})
	w.Join("a", mathx.Vec3{Z: 2})
	w.Join("near", mathx.Vec3{X: 1})
	got := w.LivingNear(mathx.Vec3{}, 4, "caster")
	want := []string{"near", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
	_ = w.Damage("near", 100)
	if got := w.LivingNear(mathx.Vec3{}, 4, "caster"); len(got) != 2 {
		t.Fatalf("dead entity should be skipped: %v", got)
	}
}

func TestHealthMutations(t *testing.T) {
	w := New()
	w.Join("a", mathx.Vec3{})
	_ = w.Damage("a", 15)
	_ = w.Heal("a", 3)
	e, _ := w.Entity("a")
	if e.Health != 8 {
		t.Fatalf("health=%v want 8", e.Health)
	}
	_ = w.Heal("a", 100)
	e, _ = w.Entity("a")
	if e.Health != 20 {
		t.Fatalf("heal should clamp to max, got %v", e.Health)
	}
	if err := w.SetHealthFraction("a", 0.5); err != nil {
		t.Fatalf("SetHealthFraction: %v", err)
	}
	e, _ = w.Entity("a")
	if e.Health != 10 {
		t.Fatalf("health=%v want 10", e.Health)
	}
	if err := w.Heal("ghost", 1); err == nil {
		t.Fatalf("expected error for unknown entity")
	}
	if err := w.Damage("a", -1); err == nil {
		t.Fatalf("expected error for negative damage")
	}
}

func TestStatusesExpire(t *testing.T) {
	w := New()
	w.Join("a", mathx.Vec3{})
	if err := w.ApplyStatus("a", "speed", 2, 0); err != nil {
		t.Fatalf("ApplyStatus: %v", err)
	}
	if err := w.ApplyStatus("a", "minecraft:speed", 1, 2); err != nil {
		t.Fatalf("ApplyStatus: %v", err)
	}
	e, _ := w.Entity("a")
	s := e.Statuses["minecraft:speed"]
	if s.Amplifier != 2 || s.RemainingTicks != 2 {
		t.Fatalf("merge: %+v", s)
	}
	w.Step()
	if got := w.ActiveStatuses("a"); len(got) != 1 || got[0] != "minecraft:speed" {
		t.Fatalf("active: %v", got)
	}
	w.Step()
	if got := w.ActiveStatuses("a"); len(got) != 0 {
		t.Fatalf("status should expire: %v", got)
	}
}

func TestFireAndMotion(t *testing.T) {
	w := New()
	w.Join("a", mathx.Vec3{})
	_ = w.Ignite("a", 4*TicksPerSecond)
	_ = w.Push("a", mathx.Vec3{X: 1})
	for i := 0; i < 4*TicksPerSecond; i++ {
		w.Step()
	}
	e, _ := w.Entity("a")
	if e.Health != 16 {
		t.Fatalf("health=%v want 16 after four seconds of fire", e.Health)
	}
	if e.Pos.X <= 1 || e.Velocity != (mathx.Vec3{}) {
		t.Fatalf("motion: pos=%+v vel=%+v", e.Pos, e.Velocity)
	}
}

func TestSpawnAndExpire(t *testing.T) {
	w := New()
	if _, err := w.Spawn("mam:unicorn", mathx.Vec3{}, "a"); err == nil {
		t.Fatalf("expected unknown entity type error")
	}
	w.RegisterEntityType(EntityType{ID: "mam:wisp", MaxHealth: 2, LifetimeTicks: 3})
	id, err := w.Spawn("mam:wisp", mathx.Vec3{Y: 1}, "a")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	e, ok := w.Entity(id)
	if !ok || e.Owner != "a" || e.Health != 2 {
		t.Fatalf("spawned: %+v ok=%v", e, ok)
	}
	w.Step()
	w.Step()
	if removed := w.Step(); len(removed) != 1 || removed[0] != id {
		t.Fatalf("removed=%v", removed)
	}
	if _, ok := w.Entity(id); ok {
		t.Fatalf("expired summon still present")
	}
}

func TestMessages(t *testing.T) {
	w := New()
	w.Message("ghost", "ignored")
	w.Join("a", mathx.Vec3{})
	w.Message("a", "one")
	w.Message("a", "two")
	if got := w.DrainMessages("a"); len(got) != 2 || got[1] != "two" {
		t.Fatalf("messages: %v", got)
	}
	if got := w.DrainMessages("a"); len(got) != 0 {
		t.Fatalf("drain should clear: %v", got)
	}
}

func TestConcurrentMutations(t *testing.T) {
	w := New()
	w.Join("a", mathx.Vec3{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.GiveItem("a", "mam:mana_crystal", 1)
			w.Step()
		}()
	}
	wg.Wait()
	e, _ := w.Entity("a")
	if e.Inventory["mam:mana_crystal"] != 50 {
		t.Fatalf("inventory=%d", e.Inventory["mam:mana_crystal"])
	}
	if w.Tick() != 50 {
		t.Fatalf("tick=%d", w.Tick())
	}
}
