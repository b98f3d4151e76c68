package fencestore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mohammed-shakir/geofence-helper/internal/cache/redisstore"
	"github.com/mohammed-shakir/geofence-helper/internal/core/config"
)

// Open builds the backend named by cfg.Source.
func Open(ctx context.Context, cfg config.FenceSourceCfg, logger *slog.Logger) (Store, error) {
	pc := NewParseCache(cfg.ParseCacheSize)
	switch cfg.Source {
	case "sql", "":
		switch cfg.DBDriver {
		case DriverSQLite, DriverPostgres:
		default:
			return nil, fmt.Errorf("unknown DB_DRIVER %q (want %s|%s)", cfg.DBDriver, DriverSQLite, DriverPostgres)
		}
		return OpenSQL(ctx, cfg.DBDriver, cfg.DBDSN, pc, logger)
	case "redis":
		cli, err := redisstore.New(ctx, cfg.RedisAddr, redisOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return NewRedisStore(cli, cfg.RedisKeyPrefix, pc, logger), nil
	case "file":
		s := NewFileStore(cfg.File, pc, logger)
		if err := s.Ping(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown FENCE_SOURCE %q (want sql|redis|file)", cfg.Source)
	}
}

func redisOptions(cfg config.FenceSourceCfg) []redisstore.Option {
	opts := []redisstore.Option{redisstore.WithDB(cfg.RedisDB)}
	if cfg.RedisPoolSize > 0 {
		opts = append(opts, redisstore.WithPoolSize(cfg.RedisPoolSize))
	}
	if cfg.RedisTimeout > 0 {
		opts = append(opts,
			redisstore.WithDialTimeout(cfg.RedisTimeout),
			redisstore.WithReadTimeout(cfg.RedisTimeout))
	}
	return opts
}
