package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr             string
	PostgresDSN      string
	RedisAddr        string
	AdvisoryURL      string
	AdvisoryTimeout  time.Duration
	JWTSigningKey    string
	BaseSuccessRate  float64
	LearningCacheTTL time.Duration
	MinSubmissions   int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("TRANSFERDESK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:             addr,
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		AdvisoryURL:      os.Getenv("ADVISORY_URL"),
		AdvisoryTimeout:  durationEnv("ADVISORY_TIMEOUT", 10*time.Second),
		JWTSigningKey:    jwtSigningKey,
		BaseSuccessRate:  floatEnv("BASE_SUCCESS_RATE", 0.95),
		LearningCacheTTL: durationEnv("LEARNING_CACHE_TTL", 5*time.Minute),
		MinSubmissions:   intEnv("LEARNING_MIN_SUBMISSIONS", 5),
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func floatEnv(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
