// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the creator sync service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	PlatformAPIBaseURL string // creator metrics provider, e.g. https://api.example.com
	PlatformAPIKey     string
	DiscoveryBaseURL   string // discovery-source collaborator
	DiscoveryAPIKey    string

	// Queue tuning.
	QueueConcurrency int // workers per queue
	PollIntervalMs   int // queue polling cadence
	MaxAttempts      int // retry budget per job

	// Evaluator gates.
	MinFollowers   int64
	MaxFollowers   int64
	MinEngagement  float64 // percent
	ScoreThreshold float64
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	port := os.Getenv("SYNC_PORT")
	if port == "" {
		port = "8083"
	}

	concurrency, err := intEnv("QUEUE_CONCURRENCY", 3)
	if err != nil {
		return nil, err
	}
	pollMs, err := intEnv("QUEUE_POLL_INTERVAL_MS", 500)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := intEnv("QUEUE_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	minFollowers, err := intEnv("EVAL_MIN_FOLLOWERS", 1000)
	if err != nil {
		return nil, err
	}
	maxFollowers, err := intEnv("EVAL_MAX_FOLLOWERS", 10_000_000)
	if err != nil {
		return nil, err
	}
	minEngagement, err := floatEnv("EVAL_MIN_ENGAGEMENT", 1.0)
	if err != nil {
		return nil, err
	}
	threshold, err := floatEnv("EVAL_SCORE_THRESHOLD", 60)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:               port,
		DatabaseURL:        dbURL,
		RedisURL:           redisURL,
		PlatformAPIBaseURL: os.Getenv("PLATFORM_API_BASE_URL"),
		PlatformAPIKey:     os.Getenv("PLATFORM_API_KEY"),
		DiscoveryBaseURL:   os.Getenv("DISCOVERY_BASE_URL"),
		DiscoveryAPIKey:    os.Getenv("DISCOVERY_API_KEY"),
		QueueConcurrency:   concurrency,
		PollIntervalMs:     pollMs,
		MaxAttempts:        maxAttempts,
		MinFollowers:       int64(minFollowers),
		MaxFollowers:       int64(maxFollowers),
		MinEngagement:      minEngagement,
		ScoreThreshold:     threshold,
	}, nil
}

func intEnv(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return v, nil
}

func floatEnv(name string, def float64) (float64, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number, got %q", name, s)
	}
	return v, nil
}
