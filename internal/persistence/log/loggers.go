package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"manacraft.ai/internal/sim/arcana"
)

var (
	ErrMissingTx   = errors.New("cast entry has no tx id")
	ErrDuplicateTx = errors.New("tx id already journaled in this segment")
)

// Segment summarises one finished journal file.
type Segment struct {
	Path       string
	Hour       string
	Entries    int
	Committed  int
	RolledBack int
	FirstTx    string
	LastTx     string
}

// CastLogger journals every settled spell and ritual into hourly zstd
// segments named casts-YYYY-MM-DD-HH.jsonl.zst under <dataDir>/journal.
//
// The segment hour comes from the entry's settlement time (now() when the
// entry carries none). Segments only move forward: an entry settled in an
// hour that is already closed lands in the open segment.
type CastLogger struct {
	dir string
	now func() time.Time

	mu       sync.Mutex
	seg      Segment
	seen     map[string]struct{}
	onClosed func(Segment)
	f        *os.File
	enc      *zstd.Encoder
	w        *bufio.Writer
}

func NewCastLogger(dataDir string) *CastLogger {
	return &CastLogger{
		dir: filepath.Join(dataDir, "journal"),
		now: time.Now,
	}
}

// OnSegmentClosed registers fn to run with the summary of every segment the
// logger finishes, on rotation and on Close.
func (l *CastLogger) OnSegmentClosed(fn func(Segment)) {
	l.mu.Lock()
	l.onClosed = fn
	l.mu.Unlock()
}

func (l *CastLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *CastLogger) WriteCast(e arcana.CastEntry) error {
	if e.TxID == "" {
		return ErrMissingTx
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	at := e.Time
	if at.IsZero() {
		at = l.now()
	}
	hour := at.UTC().Format("2006-01-02-15")
	if l.w == nil || hour > l.seg.Hour {
		if err := l.rotateLocked(hour); err != nil {
			return err
		}
	}
	if _, dup := l.seen[e.TxID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateTx, e.TxID)
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := l.w.Flush(); err != nil {
		return err
	}

	l.seen[e.TxID] = struct{}{}
	l.seg.Entries++
	switch e.Outcome {
	case arcana.OutcomeCommitted:
		l.seg.Committed++
	case arcana.OutcomeRolledBack:
		l.seg.RolledBack++
	}
	if l.seg.FirstTx == "" {
		l.seg.FirstTx = e.TxID
	}
	l.seg.LastTx = e.TxID
	return nil
}

func (l *CastLogger) rotateLocked(hour string) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	p := filepath.Join(l.dir, fmt.Sprintf("casts-%s.jsonl.zst", hour))
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.enc = enc
	l.w = bufio.NewWriterSize(enc, 128*1024)
	l.seg = Segment{Path: p, Hour: hour}
	l.seen = make(map[string]struct{})
	return nil
}

func (l *CastLogger) closeLocked() error {
	if l.f == nil {
		return nil
	}
	var err error
	if l.w != nil {
		err = l.w.Flush()
	}
	if cerr := l.enc.Close(); err == nil {
		err = cerr
	}
	_ = l.f.Close()
	seg := l.seg
	l.f, l.enc, l.w = nil, nil, nil
	l.seen = nil
	if l.onClosed != nil {
		l.onClosed(seg)
	}
	return err
}
