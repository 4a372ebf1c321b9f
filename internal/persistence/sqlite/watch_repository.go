package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/booking-sync/internal/persistence"
)

// WatchRepository implements persistence.WatchRepository using SQLite.
type WatchRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewWatchRepository creates a new SQLite calendar watch repository.
func NewWatchRepository(pool *ConnectionPool) *WatchRepository {
	return &WatchRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const watchColumns = "id, user_id, channel_id, resource_id, channel_token, expiration, created_at"

// GetWatchByUser retrieves a user's watch.
func (r *WatchRepository) GetWatchByUser(ctx context.Context, userID string) (persistence.CalendarWatch, error) {
	if userID == "" {
		return persistence.CalendarWatch{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx,
		"SELECT "+watchColumns+" FROM calendar_watches WHERE user_id = ?", userID)
	watch, err := scanWatch(row)
	if err != nil {
		return persistence.CalendarWatch{}, r.mapper.MapError(err)
	}
	return watch, nil
}

// GetWatchByChannelID retrieves a watch by its notification channel identity.
func (r *WatchRepository) GetWatchByChannelID(ctx context.Context, channelID string) (persistence.CalendarWatch, error) {
	if channelID == "" {
		return persistence.CalendarWatch{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx,
		"SELECT "+watchColumns+" FROM calendar_watches WHERE channel_id = ?", channelID)
	watch, err := scanWatch(row)
	if err != nil {
		return persistence.CalendarWatch{}, r.mapper.MapError(err)
	}
	return watch, nil
}

// FindWatchesExpiringWithin returns watches whose expiration falls before
// reference+horizon, ordered by expiration.
func (r *WatchRepository) FindWatchesExpiringWithin(ctx context.Context, reference time.Time, horizon time.Duration) ([]persistence.CalendarWatch, error) {
	deadline := reference.Add(horizon)

	rows, err := r.helper.Query(ctx,
		"SELECT "+watchColumns+" FROM calendar_watches WHERE expiration < ? ORDER BY expiration ASC, id ASC",
		formatTime(deadline))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var watches []persistence.CalendarWatch
	for rows.Next() {
		watch, err := scanWatch(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		watches = append(watches, watch)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return watches, nil
}

// UpsertWatch inserts or replaces the watch row keyed by user. The single-row
// ON CONFLICT upsert is what guarantees at most one active watch per user;
// callers must not read-check-write around it. The write and the read-back
// run in one transaction so the returned watch is the row this call produced.
func (r *WatchRepository) UpsertWatch(ctx context.Context, watch persistence.CalendarWatch) (persistence.CalendarWatch, error) {
	if watch.ID == "" || watch.UserID == "" {
		return persistence.CalendarWatch{}, persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO calendar_watches (id, user_id, channel_id, resource_id, channel_token, expiration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			resource_id = excluded.resource_id,
			channel_token = excluded.channel_token,
			expiration = excluded.expiration
	`

	var stored persistence.CalendarWatch
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, query,
			watch.ID,
			watch.UserID,
			watch.ChannelID,
			watch.ResourceID,
			watch.ChannelToken,
			formatTime(watch.Expiration),
			formatTime(watch.CreatedAt),
		); err != nil {
			return err
		}

		row := r.helper.QueryRowTx(tx,
			"SELECT "+watchColumns+" FROM calendar_watches WHERE user_id = ?", watch.UserID)
		var err error
		stored, err = scanWatch(row)
		return err
	})
	if err != nil {
		return persistence.CalendarWatch{}, r.mapper.MapError(err)
	}

	return stored, nil
}

// DeleteWatchByUser removes a user's watch.
func (r *WatchRepository) DeleteWatchByUser(ctx context.Context, userID string) error {
	if userID == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM calendar_watches WHERE user_id = ?", userID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

func scanWatch(row rowScanner) (persistence.CalendarWatch, error) {
	var watch persistence.CalendarWatch
	var expirationStr, createdAtStr string

	err := row.Scan(
		&watch.ID,
		&watch.UserID,
		&watch.ChannelID,
		&watch.ResourceID,
		&watch.ChannelToken,
		&expirationStr,
		&createdAtStr,
	)
	if err != nil {
		return persistence.CalendarWatch{}, err
	}

	if watch.Expiration, err = parseTime(expirationStr); err != nil {
		return persistence.CalendarWatch{}, fmt.Errorf("failed to parse expiration: %w", err)
	}
	if watch.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.CalendarWatch{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return watch, nil
}
