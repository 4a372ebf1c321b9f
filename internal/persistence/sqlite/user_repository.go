package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/booking-sync/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const userColumns = "id, email, google_id, name, picture_url, google_refresh_token, created_at, updated_at"

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	return user, nil
}

// GetUserByGoogleID retrieves a user by their Google account identity.
func (r *UserRepository) GetUserByGoogleID(ctx context.Context, googleID string) (persistence.User, error) {
	if googleID == "" {
		return persistence.User{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE google_id = ?", googleID)
	user, err := scanUser(row)
	if err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	return user, nil
}

// UpsertUser inserts a user or refreshes profile fields for an existing
// Google identity. The stored refresh token is preserved across upserts.
func (r *UserRepository) UpsertUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	if user.ID == "" || user.GoogleID == "" {
		return persistence.User{}, persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO users (id, email, google_id, name, picture_url, google_refresh_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(google_id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			picture_url = excluded.picture_url,
			updated_at = excluded.updated_at
	`

	var stored persistence.User
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, query,
			user.ID,
			user.Email,
			user.GoogleID,
			nullString(user.Name),
			nullString(user.PictureURL),
			nullString(user.GoogleRefreshToken),
			formatTime(user.CreatedAt),
			formatTime(user.UpdatedAt),
		); err != nil {
			return err
		}

		row := r.helper.QueryRowTx(tx,
			"SELECT "+userColumns+" FROM users WHERE google_id = ?", user.GoogleID)
		var err error
		stored, err = scanUser(row)
		return err
	})
	if err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}

	return stored, nil
}

// SetGoogleRefreshToken stores the long-lived Google credential for a user.
func (r *UserRepository) SetGoogleRefreshToken(ctx context.Context, userID, refreshToken string) error {
	result, err := r.helper.Exec(ctx,
		"UPDATE users SET google_refresh_token = ? WHERE id = ?", refreshToken, userID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

func scanUser(row rowScanner) (persistence.User, error) {
	var user persistence.User
	var name, pictureURL, refreshToken sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.GoogleID,
		&name,
		&pictureURL,
		&refreshToken,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.User{}, err
	}

	if name.Valid {
		user.Name = &name.String
	}
	if pictureURL.Valid {
		user.PictureURL = &pictureURL.String
	}
	if refreshToken.Valid {
		user.GoogleRefreshToken = &refreshToken.String
	}

	if user.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if user.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return user, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
