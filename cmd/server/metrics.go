package main

import (
	"fmt"
	"io"

	"manacraft.ai/internal/persistence/ledgerdb"
	"manacraft.ai/internal/persistence/r2s3"
)

type runtimeMetrics struct {
	Tick     uint64
	Actors   int
	Sessions int
	DB       *ledgerdb.Stats
	Mirror   *r2s3.Stats
}

// writeMetrics renders m in the Prometheus text format.
func writeMetrics(w io.Writer, m runtimeMetrics) {
	gauge(w, "manacraft_tick", "Current simulation tick.", m.Tick)
	gauge(w, "manacraft_actors", "Actors with a live mana ledger.", m.Actors)
	gauge(w, "manacraft_sessions", "Connected websocket sessions.", m.Sessions)

	if db := m.DB; db != nil {
		gauge(w, "manacraft_ledgerdb_queue_depth", "Ledger store writer backlog.", db.QueueDepth)
		counter(w, "manacraft_ledgerdb_saved_total", "Ledger snapshots written.", db.Saved)
		counter(w, "manacraft_ledgerdb_save_errors_total", "Ledger writer batch failures.", db.SaveErrors)
		counter(w, "manacraft_ledgerdb_casts_indexed_total", "Cast entries indexed.", db.CastsIndexed)
		counter(w, "manacraft_ledgerdb_casts_dropped_total", "Cast entries dropped on a full queue.", db.CastsDropped)
	}
	if mr := m.Mirror; mr != nil {
		gauge(w, "manacraft_mirror_queue_depth", "Journal mirror backlog.", mr.QueueDepth)
		counter(w, "manacraft_mirror_uploaded_total", "Journal segments uploaded.", mr.Uploaded)
		counter(w, "manacraft_mirror_failed_total", "Journal segments that failed after retries.", mr.Failed)
		counter(w, "manacraft_mirror_dropped_total", "Journal segments dropped on a full queue.", mr.Dropped)
	}
}

func gauge(w io.Writer, name, help string, v any) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %v\n", name, help, name, name, v)
}

func counter(w io.Writer, name, help string, v any) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %v\n", name, help, name, name, v)
}
