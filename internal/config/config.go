package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	IrisBaseURL   string
	IrisWSURL     string
	IrisTransport string

	BotPrefix string

	XUserID    string
	XUserEmail string
	XSessionID string

	RedisURL    string
	DatabaseURL string

	AllowedRooms []string

	LoaDefaultLevel int
	LoaSessionTTL   time.Duration
	LoaHistoryLimit int
	LoaReplyDelay   time.Duration
	// LoaEngineSeed seeds the engine's random source; 0 picks a time-based seed.
	LoaEngineSeed int64
	LoaMessagesDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		IrisTransport:   "http",
		LoaDefaultLevel: 2,
		LoaSessionTTL:   time.Hour,
		LoaHistoryLimit: 10,
		LoaReplyDelay:   time.Second,
	}

	cfg.IrisBaseURL = env("IRIS_BASE_URL")
	cfg.IrisWSURL = env("IRIS_WS_URL")
	if v := env("IRIS_TRANSPORT"); v != "" {
		cfg.IrisTransport = strings.ToLower(v)
	}
	cfg.BotPrefix = env("BOT_PREFIX")

	cfg.XUserID = env("X_USER_ID")
	cfg.XUserEmail = env("X_USER_EMAIL")
	cfg.XSessionID = env("X_SESSION_ID")

	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.AllowedRooms = splitList(env("ALLOWED_ROOMS"))

	if v := env("LOA_DEFAULT_LEVEL"); v != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(v), "level"))
		if err != nil || n < 1 || n > 3 {
			return nil, fmt.Errorf("LOA_DEFAULT_LEVEL must be 1..3, got %q", v)
		}
		cfg.LoaDefaultLevel = n
	}
	if v := env("LOA_SESSION_TTL"); v != "" {
		d, err := parseDurationOrSeconds(v)
		if err != nil {
			return nil, fmt.Errorf("LOA_SESSION_TTL: %w", err)
		}
		cfg.LoaSessionTTL = d
	}
	if v := env("LOA_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LoaHistoryLimit = n
		}
	}
	if v := env("LOA_REPLY_DELAY_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("LOA_REPLY_DELAY_MS must be a non-negative integer, got %q", v)
		}
		cfg.LoaReplyDelay = time.Duration(n) * time.Millisecond
	}
	if v := env("LOA_ENGINE_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("LOA_ENGINE_SEED: %w", err)
		}
		cfg.LoaEngineSeed = n
	}
	cfg.LoaMessagesDir = env("LOA_MESSAGES_DIR")

	if cfg.IrisBaseURL == "" {
		return nil, errors.New("IRIS_BASE_URL is required")
	}
	if cfg.IrisWSURL == "" {
		return nil, errors.New("IRIS_WS_URL is required")
	}
	if cfg.BotPrefix == "" {
		return nil, errors.New("BOT_PREFIX is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseDurationOrSeconds accepts "90" (seconds) or a Go duration like "2h".
func parseDurationOrSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("must be positive, got %q", v)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %q", v)
	}
	return d, nil
}
