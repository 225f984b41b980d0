package loabuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/loa-kakao-bot/internal/config"
	"github.com/park285/loa-kakao-bot/internal/engine"
	"github.com/park285/loa-kakao-bot/internal/service/cache"
	svcloa "github.com/park285/loa-kakao-bot/internal/service/loa"
	"go.uber.org/zap"
)

type Deps struct {
	Service *svcloa.Service
	Engine  *engine.Engine
	Cache   *cache.CacheService
	Repo    svcloa.Repository
	// DB is nil when games are kept in memory.
	DB *sql.DB
}

// Close releases the Redis and PostgreSQL pools.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Cache != nil {
		errs = append(errs, d.Cache.Close())
	}
	if d.DB != nil {
		errs = append(errs, d.DB.Close())
	}
	return errors.Join(errs...)
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	eng := engine.NewEngine(cfg.LoaEngineSeed)
	if err := engine.SetReplyDelay(cfg.LoaReplyDelay); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required for loa sessions")
	}
	cconf, err := cache.ParseRedisURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	cacheSvc, err := cache.NewCacheService(*cconf, logger)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	deps := &Deps{Engine: eng, Cache: cacheSvc}
	repo, db, err := openRepository(cfg.DatabaseURL, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	deps.Repo, deps.DB = repo, db

	svcCfg := svcloa.Config{
		DefaultLevel: cfg.LoaDefaultLevel,
		SessionTTL:   cfg.LoaSessionTTL,
		HistoryLimit: cfg.LoaHistoryLimit,
		AllowedRooms: append([]string(nil), cfg.AllowedRooms...),
	}
	service, err := svcloa.NewService(eng, cacheSvc, repo, svcloa.NewSVGBoardRenderer(), svcCfg, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	deps.Service = service
	return deps, nil
}

// openRepository connects to PostgreSQL and creates the tables. Without a
// DATABASE_URL finished games live in memory until restart.
func openRepository(databaseURL string, logger *zap.Logger) (svcloa.Repository, *sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		logger.Warn("DATABASE_URL not set; loa games are kept in memory")
		return svcloa.NewMemoryRepository(), nil, nil
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := svcloa.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate loa schema: %w", err)
	}
	return svcloa.NewRepository(db), db, nil
}
