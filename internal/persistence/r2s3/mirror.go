package r2s3

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Uploader is satisfied by *Client.
type Uploader interface {
	PutFile(ctx context.Context, key, localPath string) error
}

type MirrorConfig struct {
	Uploader Uploader
	// Root is the local directory keys are made relative to.
	Root   string
	Prefix string

	Workers  int
	Queue    int
	Attempts int
	Backoff  time.Duration
	Logger   *log.Logger
}

type Stats struct {
	QueueDepth int    `json:"queue_depth"`
	Enqueued   uint64 `json:"enqueued"`
	Dropped    uint64 `json:"dropped"`
	Uploaded   uint64 `json:"uploaded"`
	Failed     uint64 `json:"failed"`
}

// Mirror uploads closed segments in the background. Enqueue never blocks;
// a full queue drops the segment, which stays on local disk.
type Mirror struct {
	up       Uploader
	root     string
	prefix   string
	attempts int
	backoff  time.Duration
	log      *log.Logger

	jobs chan string
	wg   sync.WaitGroup
	once sync.Once

	enqueued atomic.Uint64
	dropped  atomic.Uint64
	uploaded atomic.Uint64
	failed   atomic.Uint64
}

func NewMirror(cfg MirrorConfig) *Mirror {
	m := &Mirror{
		up:       cfg.Uploader,
		root:     cfg.Root,
		prefix:   strings.Trim(strings.ReplaceAll(cfg.Prefix, "\\", "/"), "/"),
		attempts: cfg.Attempts,
		backoff:  cfg.Backoff,
		log:      cfg.Logger,
	}
	queue := cfg.Queue
	if queue <= 0 {
		queue = 256
	}
	m.jobs = make(chan string, queue)
	if m.attempts <= 0 {
		m.attempts = 4
	}
	if m.backoff <= 0 {
		m.backoff = 200 * time.Millisecond
	}
	if m.log == nil {
		m.log = log.New(io.Discard, "", 0)
	}
	for i := 0; i < max(cfg.Workers, 1); i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m
}

func (m *Mirror) Enqueue(localPath string) bool {
	m.enqueued.Add(1)
	select {
	case m.jobs <- localPath:
		return true
	default:
		m.dropped.Add(1)
		m.log.Printf("mirror: queue full, dropped %s", localPath)
		return false
	}
}

// Close drains the queue and waits for in-flight uploads.
func (m *Mirror) Close() {
	m.once.Do(func() { close(m.jobs) })
	m.wg.Wait()
}

func (m *Mirror) Stats() Stats {
	return Stats{
		QueueDepth: len(m.jobs),
		Enqueued:   m.enqueued.Load(),
		Dropped:    m.dropped.Load(),
		Uploaded:   m.uploaded.Load(),
		Failed:     m.failed.Load(),
	}
}

func (m *Mirror) worker() {
	defer m.wg.Done()
	for p := range m.jobs {
		key, err := m.key(p)
		if err != nil {
			m.failed.Add(1)
			m.log.Printf("mirror: skip %s: %v", p, err)
			continue
		}
		if err := m.upload(key, p); err != nil {
			m.failed.Add(1)
			m.log.Printf("mirror: upload %s: %v", key, err)
			continue
		}
		m.uploaded.Add(1)
		m.log.Printf("mirror: uploaded %s", key)
	}
}

func (m *Mirror) upload(key, localPath string) error {
	var err error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = m.up.PutFile(ctx, key, localPath)
		cancel()
		if err == nil {
			return nil
		}
		if attempt < m.attempts {
			time.Sleep(time.Duration(attempt*attempt) * m.backoff)
		}
	}
	return err
}

// key maps a local path under Root to its object key.
func (m *Mirror) key(localPath string) (string, error) {
	root, err := filepath.Abs(m.root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", abs, root)
	}
	if m.prefix != "" {
		return path.Join(m.prefix, rel), nil
	}
	return rel, nil
}
