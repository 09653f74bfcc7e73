package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"registrar/internal/policy"
)

// Registry captures per-registry client configuration. The CEIDG API needs a
// bearer token; the KRS API is public.
type Registry struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
	RatePerSec float64
}

// Config is built once in main from environment variables so the rest of the
// program never reads the environment.
type Config struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	AuditTopic    string
	JWTSigningKey string

	KRS   Registry
	CEIDG Registry

	// FetchCacheTTL bounds how long a raw registry payload may be served from
	// the Redis fetch cache before a live call is made again.
	FetchCacheTTL time.Duration

	// EnrichConcurrency bounds concurrent enrichment runs across entities.
	EnrichConcurrency int
}

const (
	defaultKRSBaseURL   = "https://api-krs.ms.gov.pl/api/krs"
	defaultCEIDGBaseURL = "https://dane.biznes.gov.pl/api/ceidg/v2"
)

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:          envOr("REGISTRAR_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		AuditTopic:    envOr("AUDIT_TOPIC", "registrar.audit"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		KRS: Registry{
			BaseURL:    envOr("KRS_API_BASE_URL", defaultKRSBaseURL),
			Timeout:    envDuration("KRS_REQUEST_TIMEOUT", 30*time.Second),
			MaxRetries: envInt("KRS_MAX_RETRIES", 3),
			RatePerSec: envFloat("KRS_RATE_PER_SEC", 2),
		},
		CEIDG: Registry{
			BaseURL:    envOr("CEIDG_API_BASE_URL", defaultCEIDGBaseURL),
			Token:      os.Getenv("CEIDG_API_TOKEN"),
			Timeout:    envDuration("CEIDG_REQUEST_TIMEOUT", 30*time.Second),
			MaxRetries: envInt("CEIDG_MAX_RETRIES", 3),
			RatePerSec: envFloat("CEIDG_RATE_PER_SEC", 1),
		},
		FetchCacheTTL:     envDuration("FETCH_CACHE_TTL", policy.FetchCacheTTL),
		EnrichConcurrency: envInt("ENRICH_CONCURRENCY", 4),
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envDuration accepts either a Go duration string or a bare number of seconds,
// matching how the registry timeout variables were historically set.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
