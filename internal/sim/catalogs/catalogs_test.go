package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad_ShippedConfigs(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	fb, ok := c.Spell("mam:fireball")
	if !ok {
		t.Fatalf("fireball missing")
	}
	if fb.School != SchoolFire || fb.CastType != CastProjectile || fb.ManaCost != 25 {
		t.Fatalf("fireball decoded wrong: %+v", fb)
	}
	if _, ok := c.Spell("fireball"); !ok {
		t.Fatalf("lookup without namespace should resolve to mam:")
	}
	asc, ok := c.Ritual("mam:ascension")
	if !ok {
		t.Fatalf("ascension missing")
	}
	if asc.Pattern == nil || len(asc.Pattern.Rings) != 2 || asc.Effect.Tag != TagAscend {
		t.Fatalf("ascension decoded wrong: %+v", asc)
	}
	if asc.Cooldown() != 600*time.Second {
		t.Fatalf("cooldown: %v", asc.Cooldown())
	}
	if len(c.UnknownEffectTags) != 0 {
		t.Fatalf("shipped rituals should only use known tags: %v", c.UnknownEffectTags)
	}
	if c.Spells.Digest == "" || c.Rituals.Digest == "" {
		t.Fatalf("digests not computed")
	}
	all := c.AllSpells()
	if len(all) != len(c.Spells.ByID) {
		t.Fatalf("AllSpells: %d of %d", len(all), len(c.Spells.ByID))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("AllSpells not sorted: %s before %s", all[i-1].ID, all[i].ID)
		}
	}
	if rs := c.AllRituals(); len(rs) != 4 || rs[0].ID != "mam:ascension" {
		t.Fatalf("AllRituals: %+v", rs)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "spells", "water", "splash.json"), `{"id":"splash","school":"water","castType":"bogus"}`)
	writeFile(t, filepath.Join(dir, "rituals", "legacy.json"), `{
	  "id":"mam:legacy","category":"circle",
	  "pattern":{"ring2":{"material":"minecraft:stone"},"ring1":{"material":"minecraft:dirt","count":4,"radius":1,"height":-1}},
	  "effect":{"buffs":["minecraft:luck"]}
	}`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s, ok := c.Spell("mam:splash")
	if !ok {
		t.Fatalf("splash missing")
	}
	if s.Name != "splash" || s.CastType != CastUtility || s.ManaCost != 10 || s.Tier != 1 || s.RequiredLevel != 1 || s.Range != 10 || s.ProjectileSpeed != 1 {
		t.Fatalf("spell defaults not applied: %+v", s)
	}

	r, _ := c.Ritual("mam:legacy")
	if r.ManaCost != 100 || r.DurationSeconds != 60 || r.CooldownSeconds != 300 || r.LevelRequirement != 1 {
		t.Fatalf("ritual defaults not applied: %+v", r)
	}
	if r.Pattern.CenterBlock != "minecraft:gold_block" || r.Pattern.Type != "circle" {
		t.Fatalf("pattern defaults not applied: %+v", r.Pattern)
	}
	if len(r.Pattern.Rings) != 2 {
		t.Fatalf("expected two legacy rings, got %d", len(r.Pattern.Rings))
	}
	if got := r.Pattern.Rings[0]; got.Material != "minecraft:dirt" || got.Count != 4 || got.Radius != 1 || got.Height != -1 {
		t.Fatalf("ring1 wrong: %+v", got)
	}
	if got := r.Pattern.Rings[1]; got.Count != 8 || got.Radius != 3 || got.Height != 0 {
		t.Fatalf("ring2 defaults wrong: %+v", got)
	}
	if r.Effect.Tag != TagBuff || r.Effect.DurationSeconds != 60 {
		t.Fatalf("effect defaults wrong: %+v", r.Effect)
	}
}

func TestLoad_SchemaRejectsBadDefinitions(t *testing.T) {
	cases := map[string]string{
		"spells/bad_school.json": `{"id":"x","school":"plasma"}`,
		"spells/neg_cost.json":   `{"id":"x","school":"fire","manaCost":-5}`,
		"rituals/no_cat.json":    `{"id":"x"}`,
		"rituals/bad_ring.json":  `{"id":"x","category":"circle","pattern":{"rings":[{"count":3}]}}`,
	}
	for name, body := range cases {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, name), body)
		_, err := Load(dir)
		if err == nil {
			t.Fatalf("%s: expected schema rejection", name)
		}
		if !strings.Contains(err.Error(), filepath.Base(name)) {
			t.Fatalf("%s: error should name the file, got %v", name, err)
		}
	}
}

func TestLoad_DuplicateIDsRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "spells", "a.json"), `{"id":"mam:bolt","school":"thunder"}`)
	writeFile(t, filepath.Join(dir, "spells", "b.json"), `{"id":"bolt","school":"thunder"}`)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestLoad_UnknownEffectTagIsReported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "rituals", "typo.json"), `{"id":"mam:typo","category":"cosmic","effect":{"type":"cosmik"}}`)
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.UnknownEffectTags) != 1 || c.UnknownEffectTags[0] != "mam:typo" {
		t.Fatalf("unknown tags: %v", c.UnknownEffectTags)
	}
}

func TestNewAndSpellsBySchool(t *testing.T) {
	c := New([]SpellDef{
		{ID: "b", School: SchoolFire},
		{ID: "a", School: SchoolFire},
		{ID: "c", School: SchoolIce},
	}, nil)
	fire := c.SpellsBySchool(SchoolFire)
	if len(fire) != 2 || fire[0].ID != "mam:a" || fire[1].ID != "mam:b" {
		t.Fatalf("fire spells: %+v", fire)
	}
	if _, ok := c.Ritual("anything"); ok {
		t.Fatalf("empty ritual catalog returned a definition")
	}
}
