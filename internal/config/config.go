package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Detection groups the threshold knobs of the pipeline. Defaults are the
// documented policy values; severity band boundaries themselves are fixed
// in the domain and not configurable.
type Detection struct {
	// ConfidenceFloor is the minimum classifier confidence required for a
	// category to win the ensemble vote.
	ConfidenceFloor float64 `yaml:"confidenceFloor"`
	// AlertingFloor is the minimum severity that produces an alert.
	AlertingFloor string `yaml:"alertingFloor"`
	// ModelTimeout bounds one model invocation; timed-out models are
	// excluded from fusion.
	ModelTimeout time.Duration `yaml:"modelTimeout"`
	// DedupWindow is the rolling window in which an open anomaly absorbs
	// repeated detections. Zero means no expiry.
	DedupWindow time.Duration `yaml:"dedupWindow"`
	// Weights holds per-model-version fusion weights. Versions absent from
	// the map weigh 1.0 (equal weighting).
	Weights map[string]float64 `yaml:"weights"`
}

// Config holds all application configuration.
type Config struct {
	Addr       string        `yaml:"addr"`
	DBPath     string        `yaml:"dbPath"`
	MockMode   bool          `yaml:"mockMode"`
	MockRate   time.Duration `yaml:"mockRate"`
	Debug      bool          `yaml:"debug"`
	IngestRate int           `yaml:"ingestRate"` // requests per minute per client
	Detection  Detection     `yaml:"detection"`
}

// Load populates Config from defaults, an optional YAML file, environment
// variables and command line flags, in increasing order of precedence.
func Load() *Config {
	return load(flag.CommandLine, os.Args[1:])
}

// load layers the sources in order: defaults, file, env, then only the flags
// the caller actually set.
func load(fs *flag.FlagSet, args []string) *Config {
	cfg := defaults()

	configFile := fs.String("config", getEnv("NETWARDEN_CONFIG", ""), "Path to YAML config file")
	addr := fs.String("addr", cfg.Addr, "HTTP server address")
	db := fs.String("db", cfg.DBPath, "Path to SQLite database")
	mock := fs.Bool("mock", cfg.MockMode, "Run in mock mode (synthetic flow generator)")
	debug := fs.Bool("debug", cfg.Debug, "Enable verbose debug logging")
	ingestRate := fs.Int("ingest-rate", cfg.IngestRate, "Ingestion rate limit per client per minute")
	if err := fs.Parse(args); err != nil {
		log.Printf("Warning: could not parse flags: %v", err)
	}

	if *configFile != "" {
		if err := cfg.mergeFile(*configFile); err != nil {
			log.Printf("Warning: could not load config file %s: %v", *configFile, err)
		}
	}

	applyEnvOverrides(cfg)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "db":
			cfg.DBPath = *db
		case "mock":
			cfg.MockMode = *mock
		case "debug":
			cfg.Debug = *debug
		case "ingest-rate":
			cfg.IngestRate = *ingestRate
		}
	})

	return cfg
}

func defaults() *Config {
	return &Config{
		Addr:       ":8080",
		DBPath:     defaultDBPath(),
		MockRate:   500 * time.Millisecond,
		IngestRate: 600,
		Detection: Detection{
			ConfidenceFloor: 0.5,
			AlertingFloor:   "medium",
			ModelTimeout:    2 * time.Second,
			DedupWindow:     0,
			Weights:         map[string]float64{},
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Addr = getEnv("NETWARDEN_ADDR", cfg.Addr)
	cfg.DBPath = getEnv("NETWARDEN_DB", cfg.DBPath)
	cfg.MockMode = getEnvBool("NETWARDEN_MOCK", cfg.MockMode)
	cfg.Debug = getEnvBool("NETWARDEN_DEBUG", cfg.Debug)

	if v := os.Getenv("NETWARDEN_MODEL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Detection.ModelTimeout = d
		}
	}
	if v := os.Getenv("NETWARDEN_DEDUP_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Detection.DedupWindow = d
		}
	}
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// defaultDBPath returns the default database path in the user's home
// directory, creating the directory if needed.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return "netwarden.db"
	}

	dir := filepath.Join(home, ".netwarden")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create .netwarden directory, using current dir: %v", err)
		return "netwarden.db"
	}

	return filepath.Join(dir, "netwarden.db")
}
