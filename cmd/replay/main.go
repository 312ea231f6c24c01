package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	persistlog "manacraft.ai/internal/persistence/log"
	"manacraft.ai/internal/sim/arcana"
	"manacraft.ai/internal/sim/casting"
	"manacraft.ai/internal/sim/catalogs"
	"manacraft.ai/internal/sim/ritual"
)

func main() {
	var (
		dataDir   = flag.String("data", "./data", "runtime data directory")
		journal   = flag.String("journal", "", "journal dir containing casts-*.jsonl.zst (default: <data>/journal)")
		configDir = flag.String("configs", "./configs", "config directory")
		since     = flag.String("since", "", "skip entries before this RFC3339 time (optional)")
		actor     = flag.String("actor", "", "only replay this actor (optional)")
	)
	flag.Parse()

	dir := strings.TrimSpace(*journal)
	if dir == "" {
		dir = filepath.Join(*dataDir, "journal")
	}
	var from time.Time
	if s := strings.TrimSpace(*since); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -since:", err)
			os.Exit(2)
		}
		from = t
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	files, err := listJournalFiles(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journal:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files found in", dir)
		os.Exit(1)
	}

	a := newAuditor(cats)
	for _, path := range files {
		entries, err := persistlog.ReadCasts(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(path), err)
			os.Exit(1)
		}
		for _, e := range entries {
			if !from.IsZero() && e.Time.Before(from) {
				continue
			}
			if *actor != "" && e.Actor != *actor {
				continue
			}
			a.add(e)
		}
	}

	for _, s := range a.summaries() {
		printJSON(s)
	}
	for _, p := range a.problems {
		fmt.Fprintln(os.Stderr, "mismatch:", p)
	}
	fmt.Printf("replay: files=%d entries=%d committed=%d rolled_back=%d mismatches=%d\n",
		len(files), a.entries, a.committed, a.rolledBack, len(a.problems))
	if len(a.problems) > 0 {
		os.Exit(1)
	}
}

func listJournalFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "casts-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// actorSummary is the net effect of one actor's journaled casts.
type actorSummary struct {
	Actor      string             `json:"actor"`
	Committed  int                `json:"committed"`
	RolledBack int                `json:"rolled_back"`
	Spent      map[string]float64 `json:"spent"`
	Rituals    map[string]int     `json:"rituals,omitempty"`
}

// auditor replays journal entries against the current catalogs: a committed
// entry must name a known definition, draw from the pool its school maps to
// and cost what the definition costs.
type auditor struct {
	cats *catalogs.Catalogs

	byActor    map[string]*actorSummary
	seen       map[string]bool
	entries    int
	committed  int
	rolledBack int
	problems   []string
}

func newAuditor(cats *catalogs.Catalogs) *auditor {
	return &auditor{cats: cats, byActor: map[string]*actorSummary{}, seen: map[string]bool{}}
}

func (a *auditor) add(e arcana.CastEntry) {
	a.entries++
	if a.seen[e.TxID] {
		a.problemf("%s: duplicate tx id", e.TxID)
		return
	}
	a.seen[e.TxID] = true

	s := a.byActor[e.Actor]
	if s == nil {
		s = &actorSummary{Actor: e.Actor, Spent: map[string]float64{}}
		a.byActor[e.Actor] = s
	}
	switch e.Outcome {
	case arcana.OutcomeRolledBack:
		a.rolledBack++
		s.RolledBack++
		return
	case arcana.OutcomeCommitted:
	default:
		a.problemf("%s: unknown outcome %q", e.TxID, e.Outcome)
		return
	}
	a.committed++
	s.Committed++
	s.Spent[e.Pool] += e.Cost

	switch e.Type {
	case "spell":
		d, ok := a.cats.Spell(e.DefID)
		if !ok {
			a.problemf("%s: unknown spell %s", e.TxID, e.DefID)
			return
		}
		if want := string(casting.KindFor(d.School)); e.Pool != want {
			a.problemf("%s: %s drew from %s, school %s uses %s", e.TxID, e.DefID, e.Pool, d.School, want)
		}
		if e.Cost != d.ManaCost {
			a.problemf("%s: %s cost %.1f, definition says %.1f", e.TxID, e.DefID, e.Cost, d.ManaCost)
		}
	case "ritual":
		d, ok := a.cats.Ritual(e.DefID)
		if !ok {
			a.problemf("%s: unknown ritual %s", e.TxID, e.DefID)
			return
		}
		if s.Rituals == nil {
			s.Rituals = map[string]int{}
		}
		s.Rituals[d.ID]++
		if e.Pool != string(ritual.Kind) {
			a.problemf("%s: ritual %s drew from %s", e.TxID, e.DefID, e.Pool)
		}
		if e.Cost != d.ManaCost {
			a.problemf("%s: %s cost %.1f, definition says %.1f", e.TxID, e.DefID, e.Cost, d.ManaCost)
		}
	default:
		a.problemf("%s: unknown entry type %q", e.TxID, e.Type)
	}
}

func (a *auditor) summaries() []actorSummary {
	out := make([]actorSummary, 0, len(a.byActor))
	for _, s := range a.byActor {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Actor < out[j].Actor })
	return out
}

func (a *auditor) problemf(format string, args ...any) {
	a.problems = append(a.problems, fmt.Sprintf(format, args...))
}
