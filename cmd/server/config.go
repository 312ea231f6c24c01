package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"

	"manacraft.ai/internal/persistence/r2s3"
)

type serverConfig struct {
	Addr       string `env:"MC_ADDR" envDefault:":8080"`
	ConfigDir  string `env:"MC_CONFIGS" envDefault:"./configs"`
	DataDir    string `env:"MC_DATA_DIR" envDefault:"./data"`
	TuningPath string `env:"MC_TUNING"`
	DisableDB  bool   `env:"MC_DISABLE_DB"`

	EnableAdminHTTP  bool `env:"MC_ENABLE_ADMIN_HTTP" envDefault:"true"`
	AdminAllowRemote bool `env:"MC_ADMIN_ALLOW_REMOTE"`
	EnablePprofHTTP  bool `env:"MC_ENABLE_PPROF_HTTP"`

	Mirror mirrorConfig `envPrefix:"MC_R2_"`
}

// mirrorConfig enables uploading closed journal segments.
type mirrorConfig struct {
	Enabled bool   `env:"MIRROR"`
	Prefix  string `env:"PREFIX"`
	Workers int    `env:"UPLOAD_WORKERS" envDefault:"2"`
	S3      r2s3.Config
}

// loadConfig reads the environment first; flags given in args win over it.
// A nil environ means the process environment.
func loadConfig(args []string, environ map[string]string) (serverConfig, error) {
	var cfg serverConfig
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "http listen address")
	fs.StringVar(&cfg.ConfigDir, "configs", cfg.ConfigDir, "config directory (tuning.yaml, spells/, rituals/)")
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "runtime data directory")
	fs.StringVar(&cfg.TuningPath, "tuning", cfg.TuningPath, "path to tuning.yaml (default: <configs>/tuning.yaml)")
	fs.BoolVar(&cfg.DisableDB, "disable_db", cfg.DisableDB, "keep ledgers in memory only (no sqlite store or cast index)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if strings.TrimSpace(cfg.TuningPath) == "" {
		cfg.TuningPath = filepath.Join(cfg.ConfigDir, "tuning.yaml")
	}
	if cfg.Mirror.Workers <= 0 {
		cfg.Mirror.Workers = 1
	}
	return cfg, nil
}
