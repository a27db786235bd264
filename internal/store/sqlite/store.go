// Package sqlite implements read-only catalog access over a Calibre
// metadata.db. The database is owned by Calibre; this store never
// writes to it.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	domainerrors "github.com/raindrop213/bibi-library/internal/errors"
	"github.com/raindrop213/bibi-library/internal/logger"
)

// Store wraps the Calibre database handle.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// Open opens the metadata database read-only. The connection sets
// query_only so even a programming error cannot mutate the library.
func Open(path string, log *logger.Logger) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "calibre database not found at %s", path)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=query_only(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to open calibre database")
	}

	// Calibre holds its own connection to the file. Keep our pool small
	// and the handles short-lived so external writes are picked up.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to ping calibre database")
	}

	log.Info("calibre database opened", "path", path)
	return &Store{db: db, log: log}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is still reachable. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// nullStr returns the string value or "" for NULL.
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullFloat returns the float value or 0 for NULL.
func nullFloat(nf sql.NullFloat64) float64 {
	if nf.Valid {
		return nf.Float64
	}
	return 0
}
