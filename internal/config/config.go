package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	EngineBaseURL string
	StockfishPath string

	RedisURL    string
	DatabaseURL string
	LiveAddr    string

	MoveDelay          time.Duration
	GameDelay          time.Duration
	SkipDelay          time.Duration
	ProviderTimeout    time.Duration
	ReferenceTimeLimit time.Duration

	// report endpoints only; move requests are sent once
	ProviderRetries  int
	ProviderMaxConns int

	ReportEnabled bool
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		MoveDelay:          500 * time.Millisecond,
		GameDelay:          time.Second,
		SkipDelay:          10 * time.Millisecond,
		ProviderTimeout:    60 * time.Second,
		ReferenceTimeLimit: 100 * time.Millisecond,
		ProviderRetries:    3,
		ProviderMaxConns:   16,
		ReportEnabled:      true,
	}

	cfg.EngineBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("ENGINE_BASE_URL")), "/")
	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.LiveAddr = strings.TrimSpace(os.Getenv("LIVE_ADDR"))

	// zero is allowed for the delays; skip mode relies on it in tests
	if d, ok := millis("MOVE_DELAY_MS", true); ok {
		cfg.MoveDelay = d
	}
	if d, ok := millis("GAME_DELAY_MS", true); ok {
		cfg.GameDelay = d
	}
	if d, ok := millis("SKIP_DELAY_MS", true); ok {
		cfg.SkipDelay = d
	}
	if d, ok := millis("REFERENCE_TIME_LIMIT_MS", false); ok {
		cfg.ReferenceTimeLimit = d
	}
	if v := strings.TrimSpace(os.Getenv("PROVIDER_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ProviderTimeout = time.Duration(n) * time.Second
		}
	}
	if n, ok := positiveInt("PROVIDER_RETRIES"); ok {
		cfg.ProviderRetries = n
	}
	if n, ok := positiveInt("PROVIDER_MAX_CONNS"); ok {
		cfg.ProviderMaxConns = n
	}
	if v := strings.TrimSpace(os.Getenv("REPORT_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ReportEnabled = b
		}
	}

	if cfg.EngineBaseURL == "" {
		return nil, errors.New("ENGINE_BASE_URL is required")
	}
	if !strings.HasPrefix(cfg.EngineBaseURL, "http://") && !strings.HasPrefix(cfg.EngineBaseURL, "https://") {
		return nil, errors.New("ENGINE_BASE_URL must be an http(s) URL")
	}

	return cfg, nil
}

func millis(key string, allowZero bool) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || (n == 0 && !allowZero) {
		return 0, false
	}
	return time.Duration(n) * time.Millisecond, true
}

func positiveInt(key string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
