package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full runtime configuration. Values come from an optional
// YAML file, overridden by environment variables, with sane defaults for
// everything that is left unset.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	LogFile    string `yaml:"log_file"`

	HealthInterval   time.Duration `yaml:"health_interval"`
	SecurityInterval time.Duration `yaml:"security_interval"`

	// Shared concurrency budget for per-target work across both collectors.
	MaxConcurrentTargets int `yaml:"max_concurrent_targets"`

	SSHTimeout time.Duration `yaml:"ssh_timeout"`

	// Retention horizons in days.
	SampleRetentionDays int `yaml:"sample_retention_days"`
	UptimeRetentionDays int `yaml:"uptime_retention_days"`
	AuditRetentionDays  int `yaml:"audit_retention_days"`

	// Security audits below this score raise a security_critical alert.
	CriticalScoreThreshold int `yaml:"critical_score_threshold"`
}

func defaults() Config {
	return Config{
		ListenAddr:             ":8080",
		DBPath:                 "./data/fleet.db",
		LogFile:                "./data/backend.log",
		HealthInterval:         60 * time.Second,
		SecurityInterval:       24 * time.Hour,
		MaxConcurrentTargets:   5,
		SSHTimeout:             30 * time.Second,
		SampleRetentionDays:    7,
		UptimeRetentionDays:    30,
		AuditRetentionDays:     90,
		CriticalScoreThreshold: 50,
	}
}

// Load reads configuration from the given YAML file (if it exists) and then
// applies environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			log.Printf("✅ Loaded config from %s", path)
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.MaxConcurrentTargets < 1 {
		cfg.MaxConcurrentTargets = 1
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if d := envDuration("HEALTH_INTERVAL"); d > 0 {
		cfg.HealthInterval = d
	}
	if d := envDuration("SECURITY_INTERVAL"); d > 0 {
		cfg.SecurityInterval = d
	}
	if d := envDuration("SSH_TIMEOUT"); d > 0 {
		cfg.SSHTimeout = d
	}
	if n := envInt("MAX_CONCURRENT_TARGETS"); n > 0 {
		cfg.MaxConcurrentTargets = n
	}
	if n := envInt("SAMPLE_RETENTION_DAYS"); n > 0 {
		cfg.SampleRetentionDays = n
	}
	if n := envInt("UPTIME_RETENTION_DAYS"); n > 0 {
		cfg.UptimeRetentionDays = n
	}
	if n := envInt("AUDIT_RETENTION_DAYS"); n > 0 {
		cfg.AuditRetentionDays = n
	}
	if n := envInt("CRITICAL_SCORE_THRESHOLD"); n > 0 {
		cfg.CriticalScoreThreshold = n
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: ignoring invalid %s=%q", key, v)
		return 0
	}
	return n
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: ignoring invalid %s=%q", key, v)
		return 0
	}
	return d
}
