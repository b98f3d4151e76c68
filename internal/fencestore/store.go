// Package fencestore loads the host's stored geofences and flattens them into
// named simple polygons.
package fencestore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/geofence-helper/internal/core/model"
	"github.com/mohammed-shakir/geofence-helper/internal/core/observability"
)

// ErrUnavailable wraps backend failures (connection, query, read errors).
var ErrUnavailable = errors.New("fence store unavailable")

// Store is read-only; every call returns a freshly built set.
type Store interface {
	AllFences(ctx context.Context, instanceID int) (*model.FenceSet, error)
	Ping(ctx context.Context) error
	Close() error
}

// Record is one stored fence as the host keeps it.
type Record struct {
	Name      string
	FenceType string
	FenceData string
}

// buildSet parses records in order. A record that fails to parse is logged and
// skipped so one broken fence does not hide the rest.
func buildSet(ctx context.Context, logger *slog.Logger, pc *ParseCache, records []Record) *model.FenceSet {
	set := model.NewFenceSet()
	for _, rec := range records {
		areas, err := pc.Parse(rec.Name, rec.FenceType, rec.FenceData)
		if err != nil {
			logger.WarnContext(ctx, "skipping unparsable fence", "fence", rec.Name, "type", rec.FenceType, "err", err)
			continue
		}
		for _, name := range addAreas(set, rec.Name, areas) {
			logger.WarnContext(ctx, "skipping fence with reserved name", "fence", rec.Name, "name", name)
		}
	}
	return set
}

// instrumented wraps a loader with fetch latency metrics and debug logging.
func instrumented(ctx context.Context, logger *slog.Logger, source string, load func() (*model.FenceSet, error)) (*model.FenceSet, error) {
	start := time.Now()
	set, err := load()
	observability.ObserveFenceFetch(source, err, set.Len(), time.Since(start).Seconds())
	if err != nil {
		logger.ErrorContext(ctx, "fence load failed", "source", source, "err", err)
		return nil, err
	}
	logger.DebugContext(ctx, "fences loaded", "source", source, "count", set.Len(), "duration_ms", time.Since(start).Milliseconds())
	return set, nil
}
