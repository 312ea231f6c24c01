package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"manacraft.ai/internal/persistence/ledgerdb"
	persistlog "manacraft.ai/internal/persistence/log"
	"manacraft.ai/internal/persistence/r2s3"
	"manacraft.ai/internal/sim/arcana"
	"manacraft.ai/internal/sim/catalogs"
	"manacraft.ai/internal/sim/tuning"
	"manacraft.ai/internal/transport/admin"
	"manacraft.ai/internal/transport/ws"
)

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := loadConfig(os.Args[1:], nil)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if err := run(cfg, logger); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(cfg serverConfig, logger *log.Logger) error {
	cats, err := catalogs.Load(cfg.ConfigDir)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	logger.Printf("catalogs: %d spells (digest %s), %d rituals (digest %s)",
		len(cats.Spells.ByID), cats.Spells.Digest, len(cats.Rituals.ByID), cats.Rituals.Digest)

	tune, err := tuning.Load(cfg.TuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("load tuning: %w", err)
		}
		logger.Printf("tuning not found (%s); using defaults", cfg.TuningPath)
		tune = tuning.Defaults()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	var db *ledgerdb.Store
	if !cfg.DisableDB {
		db, err = ledgerdb.Open(filepath.Join(cfg.DataDir, "ledgers.sqlite"))
		if err != nil {
			return fmt.Errorf("open ledger store: %w", err)
		}
		defer db.Close()
		if err := db.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("ledgerdb: record catalogs: %v", err)
		}
	} else {
		logger.Printf("ledger store disabled; pools reset on every join")
	}

	castLog := persistlog.NewCastLogger(cfg.DataDir)
	var mirror *r2s3.Mirror
	if cfg.Mirror.Enabled {
		client, err := r2s3.New(cfg.Mirror.S3)
		if err != nil {
			return fmt.Errorf("journal mirror: %w", err)
		}
		mirror = r2s3.NewMirror(r2s3.MirrorConfig{
			Uploader: client,
			Root:     cfg.DataDir,
			Prefix:   cfg.Mirror.Prefix,
			Workers:  cfg.Mirror.Workers,
			Logger:   logger,
		})
		castLog.OnSegmentClosed(func(seg persistlog.Segment) {
			logger.Printf("journal: closed %s (%d entries, %d rolled back)", filepath.Base(seg.Path), seg.Entries, seg.RolledBack)
			mirror.Enqueue(seg.Path)
		})
		logger.Printf("journal mirror enabled (bucket %s, prefix %q)", cfg.Mirror.S3.Bucket, cfg.Mirror.Prefix)
	}

	ecfg := arcana.Config{
		Tuning:     tune,
		Catalogs:   cats,
		CatalogDir: cfg.ConfigDir,
		Journal:    arcana.Journals{castLog},
		Logger:     logger,
	}
	if db != nil {
		ecfg.Store = db
		ecfg.Journal = arcana.Journals{castLog, db}
		ecfg.CatalogsLoaded = func(c *catalogs.Catalogs) {
			if err := db.UpsertCatalogs(c, tune); err != nil {
				logger.Printf("ledgerdb: record catalogs: %v", err)
			}
		}
	}
	eng, err := arcana.New(ecfg)
	if err != nil {
		return err
	}
	wsSrv := ws.NewServer(eng, logger)
	eng.SetNotifier(wsSrv)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := runtimeMetrics{Tick: eng.CurrentTick(), Actors: len(eng.Actors()), Sessions: wsSrv.Sessions()}
		if db != nil {
			st := db.Stats()
			m.DB = &st
		}
		if mirror != nil {
			st := mirror.Stats()
			m.Mirror = &st
		}
		writeMetrics(rw, m)
	})
	if cfg.EnableAdminHTTP {
		acfg := admin.Config{Engine: eng, Logger: logger, AllowRemote: cfg.AdminAllowRemote}
		if db != nil {
			acfg.History = db
		}
		admin.New(acfg).Register(mux)
	} else {
		logger.Printf("admin endpoints disabled (MC_ENABLE_ADMIN_HTTP=false)")
	}
	if cfg.EnablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runTicks(ctx, eng, tune.TickRateHz)
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", cfg.Addr)
	serveErr := srv.ListenAndServe()
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}
	stop()
	wg.Wait()

	if err := eng.Close(); err != nil {
		logger.Printf("save ledgers: %v", err)
	}
	if err := castLog.Close(); err != nil {
		logger.Printf("close journal: %v", err)
	}
	if mirror != nil {
		mirror.Close()
	}
	if db != nil {
		if err := db.Flush(); err != nil {
			logger.Printf("flush ledger store: %v", err)
		}
	}
	logger.Printf("stopped at tick %d", eng.CurrentTick())
	if serveErr != nil {
		return fmt.Errorf("listen: %w", serveErr)
	}
	return nil
}

// runTicks drives the engine at the configured rate until ctx ends.
func runTicks(ctx context.Context, eng *arcana.Engine, hz int) {
	if hz <= 0 {
		hz = 20
	}
	t := time.NewTicker(time.Second / time.Duration(hz))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			eng.Tick()
		}
	}
}
