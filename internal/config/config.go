package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Simplici0/pricer/internal/logging"
)

const (
	defaultEnv             = "dev"
	defaultDBPath          = "./dev.db"
	defaultPort            = "8080"
	defaultCurrency        = "USD"
	defaultRateLimitRPS    = 50
	defaultRateLimitBurst  = 100
	defaultFormulaCacheTTL = 5 * time.Minute
)

// Config holds application configuration sourced from environment variables
// and, optionally, a YAML file.
type Config struct {
	Env             string         `yaml:"env"`
	DBPath          string         `yaml:"db_path"`
	Port            string         `yaml:"port"`
	Currency        string         `yaml:"currency"`
	RateLimitRPS    float64        `yaml:"rate_limit_rps"`
	RateLimitBurst  int            `yaml:"rate_limit_burst"`
	FormulaCacheTTL time.Duration  `yaml:"formula_cache_ttl"`
	Logging         logging.Config `yaml:"logging"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Env:             defaultEnv,
		DBPath:          defaultDBPath,
		Port:            defaultPort,
		Currency:        defaultCurrency,
		RateLimitRPS:    defaultRateLimitRPS,
		RateLimitBurst:  defaultRateLimitBurst,
		FormulaCacheTTL: defaultFormulaCacheTTL,
		Logging:         logging.DefaultConfig(),
	}
}

// IsDev reports whether the service runs in local development mode.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "development"
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_, _ = loadDotEnv(".env")

	cfg := Default()
	applyEnv(&cfg)
	return cfg
}

// FromFile reads a YAML config file; environment variables still override it.
func FromFile(path string) (Config, error) {
	_, _ = loadDotEnv(".env")

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.DBPath, "DB_PATH")
	setString(&cfg.Port, "PORT")
	setString(&cfg.Currency, "DEFAULT_CURRENCY")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Logging.Output, "LOG_OUTPUT")

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RateLimitRPS = f
		} else {
			log.Printf("warning: invalid RATE_LIMIT_RPS=%q, using %v", v, cfg.RateLimitRPS)
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitBurst = n
		} else {
			log.Printf("warning: invalid RATE_LIMIT_BURST=%q, using %d", v, cfg.RateLimitBurst)
		}
	}
	if v := os.Getenv("FORMULA_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.FormulaCacheTTL = d
		} else {
			log.Printf("warning: invalid FORMULA_CACHE_TTL=%q, using %s", v, cfg.FormulaCacheTTL)
		}
	}
	cfg.Logging.Development = cfg.Logging.Development || cfg.IsDev()
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
