// Package config resolves ledger-service settings from built-in defaults,
// an optional YAML file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/eaglebank/servicepay/internal/ledger"
	"gopkg.in/yaml.v3"
)

// DefaultPath is tried when LEDGER_CONFIG is unset.
const DefaultPath = "configs/ledger.yaml"

type Config struct {
	Port string

	// DatabaseURL and RedisAddr may be empty; the matching backend is then
	// disabled and the service runs purely in memory.
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StreamMaxLen  int64

	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int

	DefaultCurrency string

	// Seed replaces the built-in demo data when set.
	Seed *ledger.SeedFile
}

func Default() Config {
	return Config{
		Port:            "8090",
		StreamMaxLen:    10000,
		RateLimitRPS:    5,
		RateLimitBurst:  10,
		DefaultCurrency: ledger.DefaultCurrency,
	}
}

type fileConfig struct {
	Port        string           `yaml:"port"`
	DatabaseURL string           `yaml:"databaseUrl"`
	Redis       redisFileConfig  `yaml:"redis"`
	Auth        authFileConfig   `yaml:"auth"`
	RateLimit   rateFileConfig   `yaml:"rateLimit"`
	Ledger      ledgerFileConfig `yaml:"ledger"`
	Seed        *ledger.SeedFile `yaml:"seed"`
}

type redisFileConfig struct {
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	StreamMaxLen int64  `yaml:"streamMaxLen"`
}

type authFileConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
}

type rateFileConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ledgerFileConfig struct {
	DefaultCurrency string `yaml:"defaultCurrency"`
}

// Load resolves the configuration. An explicit path must exist; the default
// path is optional.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		merge(&cfg, parsed)
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromEnv resolves the file named by LEDGER_CONFIG, or DefaultPath.
func LoadFromEnv() (Config, error) {
	return Load(strings.TrimSpace(os.Getenv("LEDGER_CONFIG")))
}

func merge(dst *Config, src fileConfig) {
	if src.Port != "" {
		dst.Port = src.Port
	}
	if src.DatabaseURL != "" {
		dst.DatabaseURL = src.DatabaseURL
	}
	if src.Redis.Addr != "" {
		dst.RedisAddr = src.Redis.Addr
	}
	if src.Redis.Password != "" {
		dst.RedisPassword = src.Redis.Password
	}
	if src.Redis.DB != 0 {
		dst.RedisDB = src.Redis.DB
	}
	if src.Redis.StreamMaxLen != 0 {
		dst.StreamMaxLen = src.Redis.StreamMaxLen
	}
	if src.Auth.JWTSecret != "" {
		dst.JWTSecret = src.Auth.JWTSecret
	}
	if src.RateLimit.RPS != 0 {
		dst.RateLimitRPS = src.RateLimit.RPS
	}
	if src.RateLimit.Burst != 0 {
		dst.RateLimitBurst = src.RateLimit.Burst
	}
	if src.Ledger.DefaultCurrency != "" {
		dst.DefaultCurrency = src.Ledger.DefaultCurrency
	}
	if src.Seed != nil {
		dst.Seed = src.Seed
	}
}

func ApplyEnvOverrides(cfg *Config) error {
	if v := env("PORT"); v != "" {
		cfg.Port = v
	}
	if v := env("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := env("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := env("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := env("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := env("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", v, err)
		}
		cfg.RateLimitRPS = rps
	}
	if v := env("RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_BURST %q: %w", v, err)
		}
		cfg.RateLimitBurst = burst
	}
	return nil
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if c.Port == "" {
		return fmt.Errorf("port is empty")
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
