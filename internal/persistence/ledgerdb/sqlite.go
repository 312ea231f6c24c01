// Package ledgerdb persists mana ledgers and indexes settled casts in SQLite.
package ledgerdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"manacraft.ai/internal/sim/arcana"
	"manacraft.ai/internal/sim/catalogs"
	"manacraft.ai/internal/sim/mana"
	"manacraft.ai/internal/sim/tuning"
)

var ErrClosed = errors.New("ledgerdb: closed")

// timeLayout is fixed-width so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store writes through a single goroutine. Saves are never dropped and a
// Load always sees the latest queued Save for the actor; cast index rows are
// dropped when the queue is full.
type Store struct {
	db *sql.DB

	sendMu sync.RWMutex
	ch     chan req
	wg     sync.WaitGroup
	once   sync.Once
	closed atomic.Bool

	mu      sync.Mutex
	seq     uint64
	pending map[string]pendingSave

	saved      atomic.Uint64
	saveErrors atomic.Uint64
	casts      atomic.Uint64
	dropCasts  atomic.Uint64
}

type pendingSave struct {
	seq  uint64
	snap mana.Snapshot
}

type reqKind int

const (
	reqSave reqKind = iota + 1
	reqCast
	reqFlush
)

type req struct {
	kind reqKind

	actor string
	seq   uint64
	snap  mana.Snapshot
	at    time.Time

	cast arcana.CastEntry
	done chan struct{}
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	Saved         uint64
	SaveErrors    uint64
	CastsIndexed  uint64
	CastsDropped  uint64
}

func Open(path string) (*Store, error) {
	return open(path, 4096)
}

func open(path string, queue int) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:      db,
		ch:      make(chan req, queue),
		pending: map[string]pendingSave{},
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ledgers (
			actor_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			current REAL NOT NULL,
			max REAL NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (actor_id, kind)
		);`,
		`CREATE TABLE IF NOT EXISTS casts (
			tx_id TEXT PRIMARY KEY,
			time TEXT NOT NULL,
			tick INTEGER NOT NULL,
			actor TEXT NOT NULL,
			type TEXT NOT NULL,
			def_id TEXT NOT NULL,
			pool TEXT NOT NULL,
			cost REAL NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_casts_actor_time ON casts(actor, time);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.sendMu.Lock()
		s.closed.Store(true)
		close(s.ch)
		s.sendMu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Save queues the actor's snapshot. It blocks while the queue is full.
func (s *Store) Save(actorID string, snap mana.Snapshot) error {
	if actorID == "" {
		return fmt.Errorf("empty actor id")
	}
	snap = copySnapshot(snap)
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.pending[actorID] = pendingSave{seq: seq, snap: snap}
	s.mu.Unlock()
	s.ch <- req{kind: reqSave, actor: actorID, seq: seq, snap: snap, at: time.Now().UTC()}
	return nil
}

// Load returns the actor's latest snapshot, including a save still queued.
func (s *Store) Load(actorID string) (mana.Snapshot, bool, error) {
	s.mu.Lock()
	if p, ok := s.pending[actorID]; ok {
		s.mu.Unlock()
		return copySnapshot(p.snap), true, nil
	}
	s.mu.Unlock()
	if s.closed.Load() {
		return mana.Snapshot{}, false, ErrClosed
	}

	rows, err := s.db.Query(`SELECT kind, current, max FROM ledgers WHERE actor_id = ?`, actorID)
	if err != nil {
		return mana.Snapshot{}, false, err
	}
	defer rows.Close()
	snap := mana.Snapshot{Pools: map[mana.Kind]mana.PoolState{}}
	for rows.Next() {
		var (
			kind    string
			cur, mx float64
		)
		if err := rows.Scan(&kind, &cur, &mx); err != nil {
			return mana.Snapshot{}, false, err
		}
		k, ok := mana.ParseKind(kind)
		if !ok {
			continue
		}
		snap.Pools[k] = mana.PoolState{Kind: k, Current: cur, Max: mx}
	}
	if err := rows.Err(); err != nil {
		return mana.Snapshot{}, false, err
	}
	if len(snap.Pools) == 0 {
		return mana.Snapshot{}, false, nil
	}
	return snap, true, nil
}

// WriteCast indexes a settled cast. Rows are dropped if the writer falls
// behind; the JSONL journal remains the source of truth.
func (s *Store) WriteCast(entry arcana.CastEntry) error {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqCast, cast: entry}:
	default:
		s.dropCasts.Add(1)
	}
	return nil
}

// Flush waits until everything queued before the call is committed.
func (s *Store) Flush() error {
	done := make(chan struct{})
	s.sendMu.RLock()
	if s.closed.Load() {
		s.sendMu.RUnlock()
		return ErrClosed
	}
	s.ch <- req{kind: reqFlush, done: done}
	s.sendMu.RUnlock()
	<-done
	return nil
}

// Casts returns the actor's most recent indexed casts, newest first.
func (s *Store) Casts(actorID string, limit int) ([]arcana.CastEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT raw_json FROM casts WHERE actor = ? ORDER BY time DESC, tx_id LIMIT ?`, actorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []arcana.CastEntry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e arcana.CastEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Stats() Stats {
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		Saved:         s.saved.Load(),
		SaveErrors:    s.saveErrors.Load(),
		CastsIndexed:  s.casts.Load(),
		CastsDropped:  s.dropCasts.Load(),
	}
}

// UpsertCatalogs records the definitions and tuning the server runs with.
func (s *Store) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	now := time.Now().UTC().Format(timeLayout)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	{
		spells := make([]catalogs.SpellDef, 0, len(cats.Spells.ByID))
		for _, d := range cats.Spells.ByID {
			spells = append(spells, d)
		}
		sort.Slice(spells, func(i, j int) bool { return spells[i].ID < spells[j].ID })
		b, err := json.Marshal(spells)
		if err != nil {
			return err
		}
		rows = append(rows, kv{name: "spells", digest: cats.Spells.Digest, json: b})
	}
	{
		rituals := make([]catalogs.RitualDef, 0, len(cats.Rituals.ByID))
		for _, d := range cats.Rituals.ByID {
			rituals = append(rituals, d)
		}
		sort.Slice(rituals, func(i, j int) bool { return rituals[i].ID < rituals[j].ID })
		b, err := json.Marshal(rituals)
		if err != nil {
			return err
		}
		rows = append(rows, kv{name: "rituals", digest: cats.Rituals.Digest, json: b})
	}
	{
		b, err := json.Marshal(tune)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CatalogDigest returns the recorded digest for a catalog row.
func (s *Store) CatalogDigest(name string) (string, bool, error) {
	var d string
	err := s.db.QueryRow(`SELECT digest FROM catalogs WHERE name = ?`, name).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return d, true, nil
}

func (s *Store) loop() {
	ctx := context.Background()

	upsertPool, _ := s.db.Prepare(`INSERT OR REPLACE INTO ledgers(actor_id,kind,current,max,updated_at) VALUES(?,?,?,?,?)`)
	insertCast, _ := s.db.Prepare(`INSERT OR REPLACE INTO casts(tx_id,time,tick,actor,type,def_id,pool,cost,outcome,error,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if upsertPool != nil {
			_ = upsertPool.Close()
		}
		if insertCast != nil {
			_ = insertCast.Close()
		}
	}()

	var (
		tx      *sql.Tx
		opCount int
		saves   []req
		casts   uint64

		commitEvery = 500
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
	}
	settle := func(ok bool) {
		s.mu.Lock()
		for _, r := range saves {
			if !ok {
				continue
			}
			if p, found := s.pending[r.actor]; found && p.seq == r.seq {
				delete(s.pending, r.actor)
			}
		}
		s.mu.Unlock()
		if ok {
			s.saved.Add(uint64(len(saves)))
			s.casts.Add(casts)
		} else {
			s.saveErrors.Add(uint64(len(saves)))
		}
		saves = saves[:0]
		casts = 0
	}
	commit := func() {
		if tx == nil {
			return
		}
		err := tx.Commit()
		tx = nil
		opCount = 0
		settle(err == nil)
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		settle(false)
	}

	for r := range s.ch {
		switch r.kind {
		case reqFlush:
			commit()
			close(r.done)
			continue

		case reqSave:
			begin()
			if tx == nil || upsertPool == nil {
				s.saveErrors.Add(1)
				continue
			}
			at := r.at.UTC().Format(timeLayout)
			failed := false
			for _, k := range mana.Kinds {
				st, ok := r.snap.Pools[k]
				if !ok {
					continue
				}
				if _, err := tx.Stmt(upsertPool).Exec(r.actor, string(k), st.Current, st.Max, at); err != nil {
					failed = true
					break
				}
				opCount++
			}
			saves = append(saves, r)
			if failed {
				rollback()
				continue
			}

		case reqCast:
			begin()
			if tx == nil || insertCast == nil {
				continue
			}
			c := r.cast
			raw, _ := json.Marshal(c)
			if _, err := tx.Stmt(insertCast).Exec(
				c.TxID,
				c.Time.UTC().Format(timeLayout),
				int64(c.Tick),
				c.Actor,
				c.Type,
				c.DefID,
				c.Pool,
				c.Cost,
				c.Outcome,
				c.Error,
				string(raw),
			); err != nil {
				rollback()
				continue
			}
			casts++
			opCount++
		}
		if opCount >= commitEvery || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}

func copySnapshot(s mana.Snapshot) mana.Snapshot {
	out := mana.Snapshot{Pools: make(map[mana.Kind]mana.PoolState, len(s.Pools))}
	for k, v := range s.Pools {
		out.Pools[k] = v
	}
	return out
}
