package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the server needs from its environment so main
// stays lean. Empty DatabaseURL, RedisURL, or KafkaBrokers mean the
// corresponding backend is not wired (in-memory stores, no cache, no events).
type Config struct {
	Addr string

	DatabaseURL string

	Redis RedisConfig

	KafkaBrokers []string
	AlertTopic   string

	Registry RegistryConfig

	Scan ScanConfig

	// DedupeOpenAlerts suppresses a second open alert for the same
	// (provider, credential, severity) tuple.
	DedupeOpenAlerts bool
}

// RedisConfig holds connection tuning for the registry lookup cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// RegistryConfig points at the national provider registry (NPPES).
type RegistryConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ScanConfig drives the background expiry scanner. Interval zero disables it.
type ScanConfig struct {
	Interval   time.Duration
	WindowDays int
}

// FromEnv builds a Config from environment variables with development defaults.
func FromEnv() Config {
	return Config{
		Addr:        envOr("CREDWATCH_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     envDuration("REGISTRY_CACHE_TTL", 24*time.Hour),
		},
		KafkaBrokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
		AlertTopic:   envOr("ALERT_EVENTS_TOPIC", "credentialwatch.alerts"),
		Registry: RegistryConfig{
			BaseURL: envOr("NPPES_BASE_URL", "https://npiregistry.cms.hhs.gov/api/"),
			Timeout: envDuration("NPPES_TIMEOUT", 10*time.Second),
		},
		Scan: ScanConfig{
			Interval:   envDuration("SCAN_INTERVAL", 0),
			WindowDays: envInt("SCAN_WINDOW_DAYS", 30),
		},
		DedupeOpenAlerts: envOr("DEDUPE_OPEN_ALERTS", "true") == "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
