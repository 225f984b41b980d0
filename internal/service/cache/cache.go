package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrConflict is returned by Update when the key changed while the update ran.
var ErrConflict = errors.New("cache key modified concurrently")

const updateRetries = 3

type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TLS      bool
}

func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheService stores JSON values in Redis.
type CacheService struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewCacheService(cfg CacheConfig, logger *zap.Logger) (*CacheService, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("redis host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 6379
	}
	opts := &redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: cfg.Host}
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr(), err)
	}
	svc := NewCacheServiceFromClient(rdb, logger)
	svc.logger.Info("redis cache connected", zap.String("addr", cfg.Addr()), zap.Int("db", cfg.DB))
	return svc, nil
}

// NewCacheServiceFromClient wraps an existing client without pinging it.
func NewCacheServiceFromClient(rdb *redis.Client, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{rdb: rdb, logger: logger}
}

// Get decodes the value at key into target. A missing key is not an error and
// leaves target untouched.
func (c *CacheService) Get(ctx context.Context, key string, target any) error {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

func (c *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *CacheService) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}
	return nil
}

// Update loads key into target under WATCH, lets fn mutate it and writes it
// back with ttl. fn returning keep=false deletes the key instead. The load and
// write are retried a few times when another writer got in between.
func (c *CacheService) Update(ctx context.Context, key string, target any, ttl time.Duration, fn func(found bool) (keep bool, err error)) error {
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		found := true
		switch {
		case errors.Is(err, redis.Nil):
			found = false
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, target); err != nil {
				return fmt.Errorf("cache decode %s: %w", key, err)
			}
		}
		keep, err := fn(found)
		if err != nil {
			return err
		}
		var out []byte
		if keep {
			if out, err = json.Marshal(target); err != nil {
				return fmt.Errorf("cache encode %s: %w", key, err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if keep {
				pipe.Set(ctx, key, out, ttl)
			} else {
				pipe.Del(ctx, key)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < updateRetries; attempt++ {
		err := c.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			c.logger.Debug("cache update conflict, retrying", zap.String("key", key), zap.Int("attempt", attempt+1))
			continue
		}
		return err
	}
	return ErrConflict
}

func (c *CacheService) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// ParseRedisURL converts redis:// and rediss:// URLs into a CacheConfig.
func ParseRedisURL(raw string) (*CacheConfig, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	portStr := u.Port()
	if portStr == "" {
		portStr = "6379"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q: %w", p, err)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &CacheConfig{Host: u.Hostname(), Port: port, Password: pass, DB: db, TLS: u.Scheme == "rediss"}, nil
}
