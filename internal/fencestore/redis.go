package fencestore

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mohammed-shakir/geofence-helper/internal/cache/keys"
	"github.com/mohammed-shakir/geofence-helper/internal/cache/redisstore"
	"github.com/mohammed-shakir/geofence-helper/internal/core/model"
)

// RedisStore reads fences mirrored into a Redis hash per instance:
// key "{prefix}:{instance}", field = fence name, value = fence data.
// A value prefixed with "geojson:" is parsed as a GeoJSON fence.
type RedisStore struct {
	cli    *redisstore.Client
	prefix string
	pc     *ParseCache
	logger *slog.Logger
}

const geojsonValuePrefix = "geojson:"

func NewRedisStore(cli *redisstore.Client, prefix string, pc *ParseCache, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		cli:    cli,
		prefix: prefix,
		pc:     pc,
		logger: logger,
	}
}

func (s *RedisStore) Key(instanceID int) string {
	return keys.FenceHash(s.prefix, instanceID)
}

// AllFences orders fences by name since hashes carry no order.
func (s *RedisStore) AllFences(ctx context.Context, instanceID int) (*model.FenceSet, error) {
	return instrumented(ctx, s.logger, "redis", func() (*model.FenceSet, error) {
		vals, err := s.cli.HGetAll(ctx, s.Key(instanceID))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		names := make([]string, 0, len(vals))
		for name := range vals {
			names = append(names, name)
		}
		slices.Sort(names)

		records := make([]Record, 0, len(names))
		for _, name := range names {
			rec := Record{Name: name, FenceType: TypePolygon, FenceData: vals[name]}
			if data, ok := strings.CutPrefix(rec.FenceData, geojsonValuePrefix); ok {
				rec.FenceType, rec.FenceData = TypeGeoJSON, data
			}
			records = append(records, rec)
		}
		return buildSet(ctx, s.logger, s.pc, records), nil
	})
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.cli.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.cli.Close()
}
