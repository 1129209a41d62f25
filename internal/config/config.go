package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default configuration file location.
const ConfigPath = "config.yaml"

// Backend names for the credential store.
const (
	BackendJWT   = "jwt"
	BackendRedis = "redis"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                     string   `yaml:"port"`
	LogLevel                 string   `yaml:"logLevel"`
	DatabaseURL              string   `yaml:"databaseURL"`
	RedisAddr                string   `yaml:"redisAddr"`
	RedisPassword            string   `yaml:"redisPassword"`
	CredentialBackend        string   `yaml:"credentialBackend"`
	JWTSecret                string   `yaml:"jwtSecret"`
	CredentialTTL            string   `yaml:"credentialTTL"`
	TimeZone                 string   `yaml:"timeZone"`
	VerifyRateLimitPerMinute int      `yaml:"verifyRateLimitPerMinute"`
	TrustedProxyCIDRs        []string `yaml:"trustedProxyCidrs"`
}

// Load reads config from path (defaults to config.yaml), applies
// environment overrides, and validates the result.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("ROOMBOOK_PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("ROOMBOOK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("ROOMBOOK_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("ROOMBOOK_CREDENTIAL_BACKEND"); v != "" {
		cfg.CredentialBackend = strings.TrimSpace(v)
	}
	if v := os.Getenv("ROOMBOOK_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("ROOMBOOK_CREDENTIAL_TTL"); v != "" {
		cfg.CredentialTTL = strings.TrimSpace(v)
	}
	if v := os.Getenv("ROOMBOOK_TIME_ZONE"); v != "" {
		cfg.TimeZone = strings.TrimSpace(v)
	}
	if v := os.Getenv("ROOMBOOK_VERIFY_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.VerifyRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("ROOMBOOK_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or ROOMBOOK_DATABASE_URL)")
	}
	switch cfg.CredentialBackend {
	case "", BackendJWT:
		if strings.TrimSpace(cfg.JWTSecret) == "" {
			return errors.New("config: jwtSecret is required for the jwt credential backend")
		}
	case BackendRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required for the redis credential backend")
		}
	default:
		return fmt.Errorf("config: unknown credentialBackend %q (use jwt or redis)", cfg.CredentialBackend)
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for verify rate limiting")
	}
	if cfg.VerifyRateLimitPerMinute < 0 {
		return errors.New("config: verifyRateLimitPerMinute must be >= 0")
	}
	if cfg.TimeZone != "" {
		if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
			return fmt.Errorf("config: invalid timeZone: %w", err)
		}
	}
	if _, err := ParseCredentialTTL(cfg.CredentialTTL); err != nil {
		return err
	}
	return nil
}

// ParseCredentialTTL parses the optional credential TTL duration string.
// Empty means "use the application default".
func ParseCredentialTTL(ttl string) (time.Duration, error) {
	if ttl == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttl)
	if err != nil {
		return 0, fmt.Errorf("config: invalid credentialTTL duration: %w", err)
	}
	if dur <= 0 {
		return 0, errors.New("config: credentialTTL must be positive")
	}
	return dur, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
