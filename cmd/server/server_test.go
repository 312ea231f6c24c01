package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"manacraft.ai/internal/persistence/ledgerdb"
	"manacraft.ai/internal/persistence/r2s3"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(nil, map[string]string{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.DataDir != "./data" || !cfg.EnableAdminHTTP || cfg.Mirror.Enabled {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.TuningPath != filepath.Join("./configs", "tuning.yaml") {
		t.Fatalf("tuning path: %q", cfg.TuningPath)
	}
	if cfg.Mirror.Workers != 2 || cfg.Mirror.S3.Region != "auto" {
		t.Fatalf("mirror defaults: %+v", cfg.Mirror)
	}
}

func TestLoadConfig_EnvThenFlags(t *testing.T) {
	environ := map[string]string{
		"MC_ADDR":              ":9000",
		"MC_CONFIGS":           "/etc/manacraft",
		"MC_DISABLE_DB":        "true",
		"MC_ENABLE_ADMIN_HTTP": "false",
		"MC_R2_MIRROR":         "true",
		"MC_R2_BUCKET":         "journals",
		"MC_R2_ENDPOINT":       "r2.example.com",
		"MC_R2_UPLOAD_WORKERS": "0",
	}
	cfg, err := loadConfig([]string{"-addr", ":7000"}, environ)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("flag should win, addr=%q", cfg.Addr)
	}
	if cfg.ConfigDir != "/etc/manacraft" || !cfg.DisableDB || cfg.EnableAdminHTTP {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.TuningPath != filepath.Join("/etc/manacraft", "tuning.yaml") {
		t.Fatalf("tuning path: %q", cfg.TuningPath)
	}
	if !cfg.Mirror.Enabled || cfg.Mirror.S3.Bucket != "journals" || cfg.Mirror.S3.Endpoint != "r2.example.com" || cfg.Mirror.Workers != 1 {
		t.Fatalf("mirror: %+v", cfg.Mirror)
	}
}

func TestLoadConfig_BadInput(t *testing.T) {
	if _, err := loadConfig(nil, map[string]string{"MC_DISABLE_DB": "maybe"}); err == nil {
		t.Fatalf("expected env parse error")
	}
	if _, err := loadConfig([]string{"-nope"}, map[string]string{}); err == nil {
		t.Fatalf("expected flag error")
	}
}

func TestWriteMetrics(t *testing.T) {
	var buf bytes.Buffer
	writeMetrics(&buf, runtimeMetrics{Tick: 42, Actors: 3, Sessions: 2})
	out := buf.String()
	for _, want := range []string{"manacraft_tick 42\n", "manacraft_actors 3\n", "manacraft_sessions 2\n", "# TYPE manacraft_tick gauge\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ledgerdb") || strings.Contains(out, "mirror") {
		t.Fatalf("optional sections should be absent:\n%s", out)
	}

	buf.Reset()
	writeMetrics(&buf, runtimeMetrics{
		DB:     &ledgerdb.Stats{QueueDepth: 5, CastsDropped: 7},
		Mirror: &r2s3.Stats{Uploaded: 9},
	})
	out = buf.String()
	for _, want := range []string{"manacraft_ledgerdb_queue_depth 5\n", "manacraft_ledgerdb_casts_dropped_total 7\n", "# TYPE manacraft_mirror_uploaded_total counter\n", "manacraft_mirror_uploaded_total 9\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
