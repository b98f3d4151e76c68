package fencestore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/mattn/go-sqlite3"    // registers "sqlite3"

	"github.com/mohammed-shakir/geofence-helper/internal/core/model"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// SQLStore reads the host's settings_geofence table.
type SQLStore struct {
	db     *sql.DB
	query  string
	pc     *ParseCache
	logger *slog.Logger
}

func OpenSQL(ctx context.Context, driver, dsn string, pc *ParseCache, logger *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrUnavailable, driver, err)
	}
	return NewSQLStore(db, driver, pc, logger), nil
}

func NewSQLStore(db *sql.DB, driver string, pc *ParseCache, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{
		db:     db,
		query:  fenceQuery(driver),
		pc:     pc,
		logger: logger,
	}
}

func fenceQuery(driver string) string {
	ph := "?"
	if driver == DriverPostgres {
		ph = "$1"
	}
	return "SELECT fence_data, name, fence_type FROM settings_geofence WHERE instance_id = " + ph + " ORDER BY geofence_id"
}

func (s *SQLStore) AllFences(ctx context.Context, instanceID int) (*model.FenceSet, error) {
	return instrumented(ctx, s.logger, "sql", func() (*model.FenceSet, error) {
		records, err := s.records(ctx, instanceID)
		if err != nil {
			return nil, err
		}
		return buildSet(ctx, s.logger, s.pc, records), nil
	})
}

func (s *SQLStore) records(ctx context.Context, instanceID int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, s.query, instanceID)
	if err != nil {
		return nil, fmt.Errorf("%w: query settings_geofence: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var fenceType sql.NullString
		if err := rows.Scan(&rec.FenceData, &rec.Name, &fenceType); err != nil {
			return nil, fmt.Errorf("%w: scan settings_geofence: %v", ErrUnavailable, err)
		}
		rec.FenceType = fenceType.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate settings_geofence: %v", ErrUnavailable, err)
	}
	return out, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
