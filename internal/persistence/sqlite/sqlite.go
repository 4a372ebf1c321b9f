package sqlite

import (
	"context"
	"fmt"
	"time"
)

// Storage owns the SQLite connection pool and constructs repositories bound
// to it.
type Storage struct {
	pool *ConnectionPool
}

// Open opens a SQLite database for the provided DSN.
func Open(dsn string) (*Storage, error) {
	pool, err := NewConnectionPool(dsn)
	if err != nil {
		return nil, err
	}
	return &Storage{pool: pool}, nil
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping verifies the database connection is usable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Bookings returns a booking repository backed by this storage.
func (s *Storage) Bookings() *BookingRepository {
	return NewBookingRepository(s.pool)
}

// Watches returns a calendar watch repository backed by this storage.
func (s *Storage) Watches() *WatchRepository {
	return NewWatchRepository(s.pool)
}

// Users returns a user repository backed by this storage.
func (s *Storage) Users() *UserRepository {
	return NewUserRepository(s.pool)
}

// Migrate applies the schema. Statements are idempotent so Migrate can run on
// every startup.
func (s *Storage) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			google_id TEXT NOT NULL UNIQUE,
			name TEXT,
			picture_url TEXT,
			google_refresh_token TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			user_id TEXT NOT NULL REFERENCES users(id),
			calendar_event_id TEXT,
			created_at TEXT NOT NULL,
			CHECK (start_time < end_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_window
			ON bookings(user_id, start_time, end_time)`,
		`CREATE TABLE IF NOT EXISTS calendar_watches (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
			channel_id TEXT NOT NULL UNIQUE,
			resource_id TEXT NOT NULL,
			channel_token TEXT NOT NULL,
			expiration TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}

	return nil
}

// Time columns hold second-precision RFC3339 UTC strings so lexicographic
// comparison in SQL matches chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", value, err)
	}
	return t, nil
}
