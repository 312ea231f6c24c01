package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type ledgerRow struct {
	Actor     string  `json:"actor_id"`
	Kind      string  `json:"kind"`
	Current   float64 `json:"current"`
	Max       float64 `json:"max"`
	UpdatedAt string  `json:"updated_at"`
}

type castRow struct {
	TxID    string  `json:"tx_id"`
	Time    string  `json:"time"`
	Tick    int64   `json:"tick"`
	Type    string  `json:"type"`
	DefID   string  `json:"def_id"`
	Pool    string  `json:"pool"`
	Cost    float64 `json:"cost"`
	Outcome string  `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

type catalogRow struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	UpdatedAt string `json:"updated_at"`
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite path (default: <data>/ledgers.sqlite)")
	actor := fs.String("actor", "", "actor id filter")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "ledgers"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "ledgers.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fail("open %s: %v", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fail("open: %v", err)
	}
	defer db.Close()

	switch q {
	case "ledgers":
		rows, err := queryLedgers(db, strings.TrimSpace(*actor))
		if err != nil {
			fail("query: %v", err)
		}
		for _, r := range rows {
			printJSON(r)
		}
	case "casts":
		rows, err := queryCasts(db, required("actor", *actor), *limit)
		if err != nil {
			fail("query: %v", err)
		}
		for _, r := range rows {
			printJSON(r)
		}
	case "catalogs":
		rows, err := queryCatalogs(db)
		if err != nil {
			fail("query: %v", err)
		}
		for _, r := range rows {
			printJSON(r)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown db query %q (ledgers, casts, catalogs)\n", q)
		os.Exit(2)
	}
}

func queryLedgers(db *sql.DB, actor string) ([]ledgerRow, error) {
	query := `SELECT actor_id,kind,current,max,updated_at FROM ledgers`
	var args []any
	if actor != "" {
		query += ` WHERE actor_id = ?`
		args = append(args, actor)
	}
	query += ` ORDER BY actor_id, kind`
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledgerRow
	for rows.Next() {
		var r ledgerRow
		if err := rows.Scan(&r.Actor, &r.Kind, &r.Current, &r.Max, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func queryCasts(db *sql.DB, actor string, limit int) ([]castRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`SELECT tx_id,time,tick,type,def_id,pool,cost,outcome,COALESCE(error,'') FROM casts WHERE actor = ? ORDER BY time DESC, tx_id LIMIT ?`, actor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []castRow
	for rows.Next() {
		var r castRow
		if err := rows.Scan(&r.TxID, &r.Time, &r.Tick, &r.Type, &r.DefID, &r.Pool, &r.Cost, &r.Outcome, &r.Error); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func queryCatalogs(db *sql.DB) ([]catalogRow, error) {
	rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []catalogRow
	for rows.Next() {
		var r catalogRow
		if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
