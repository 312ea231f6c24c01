package main

import (
	"os"
	"path/filepath"
	"testing"

	"manacraft.ai/internal/sim/arcana"
	"manacraft.ai/internal/sim/catalogs"
)

func testCatalogs() *catalogs.Catalogs {
	return catalogs.New(
		[]catalogs.SpellDef{
			{ID: "mam:fireball", School: catalogs.SchoolFire, ManaCost: 25},
			{ID: "mam:heal", School: catalogs.SchoolLight, ManaCost: 40},
		},
		[]catalogs.RitualDef{{ID: "mam:storm", ManaCost: 200}},
	)
}

func TestAuditor_Consistent(t *testing.T) {
	a := newAuditor(testCatalogs())
	a.add(arcana.CastEntry{TxID: "1", Actor: "alice", Type: "spell", DefID: "mam:fireball", Pool: "personal", Cost: 25, Outcome: arcana.OutcomeCommitted})
	a.add(arcana.CastEntry{TxID: "2", Actor: "alice", Type: "spell", DefID: "mam:heal", Pool: "aura", Cost: 40, Outcome: arcana.OutcomeCommitted})
	a.add(arcana.CastEntry{TxID: "3", Actor: "alice", Type: "ritual", DefID: "mam:storm", Pool: "personal", Cost: 200, Outcome: arcana.OutcomeCommitted})
	a.add(arcana.CastEntry{TxID: "4", Actor: "bob", Type: "ritual", DefID: "mam:storm", Pool: "personal", Cost: 200, Outcome: arcana.OutcomeRolledBack})

	if len(a.problems) != 0 {
		t.Fatalf("problems: %v", a.problems)
	}
	sums := a.summaries()
	if len(sums) != 2 || sums[0].Actor != "alice" || sums[1].Actor != "bob" {
		t.Fatalf("summaries: %+v", sums)
	}
	alice := sums[0]
	if alice.Committed != 3 || alice.Spent["personal"] != 225 || alice.Spent["aura"] != 40 || alice.Rituals["mam:storm"] != 1 {
		t.Fatalf("alice: %+v", alice)
	}
	if sums[1].RolledBack != 1 || len(sums[1].Spent) != 0 {
		t.Fatalf("rolled back entries must not count as spent: %+v", sums[1])
	}
	if a.entries != 4 || a.committed != 3 || a.rolledBack != 1 {
		t.Fatalf("counts: entries=%d committed=%d rolled_back=%d", a.entries, a.committed, a.rolledBack)
	}
}

func TestAuditor_Mismatches(t *testing.T) {
	a := newAuditor(testCatalogs())
	a.add(arcana.CastEntry{TxID: "1", Actor: "a", Type: "spell", DefID: "mam:fireball", Pool: "aura", Cost: 25, Outcome: arcana.OutcomeCommitted})
	a.add(arcana.CastEntry{TxID: "2", Actor: "a", Type: "spell", DefID: "mam:fireball", Pool: "personal", Cost: 30, Outcome: arcana.OutcomeCommitted})
	a.add(arcana.CastEntry{TxID: "3", Actor: "a", Type: "spell", DefID: "mam:gone", Pool: "personal", Cost: 1, Outcome: arcana.OutcomeCommitted})
	a.add(arcana.CastEntry{TxID: "3", Actor: "a", Type: "spell", DefID: "mam:fireball", Pool: "personal", Cost: 25, Outcome: arcana.OutcomeCommitted})
	a.add(arcana.CastEntry{TxID: "4", Actor: "a", Type: "dance", Outcome: arcana.OutcomeCommitted})
	a.add(arcana.CastEntry{TxID: "5", Actor: "a", Type: "spell", Outcome: "maybe"})
	if len(a.problems) != 6 {
		t.Fatalf("want 6 problems, got %d: %v", len(a.problems), a.problems)
	}
}

func TestListJournalFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"casts-2026-01-01-02.jsonl.zst", "casts-2026-01-01-01.jsonl.zst", "events-2026-01-01-01.jsonl.zst", "casts.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	_ = os.Mkdir(filepath.Join(dir, "casts-dir.jsonl.zst"), 0o755)
	files, err := listJournalFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "casts-2026-01-01-01.jsonl.zst" {
		t.Fatalf("files: %v", files)
	}
}
