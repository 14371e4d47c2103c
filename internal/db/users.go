package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// User is an account known to the local auth provider. Anonymous users have
// no email and no password.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Anonymous reports whether the user has not linked an email yet.
func (u User) Anonymous() bool {
	return u.Email == ""
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateUser inserts u. CreatedAt and UpdatedAt default to now.
func (db *DB) CreateUser(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_unix, updated_unix) VALUES (?, ?, ?, ?, ?)`,
		u.ID, nullString(u.Email), nullString(u.PasswordHash), u.CreatedAt.Unix(), u.UpdatedAt.Unix(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", u.Email, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const userColumns = `id, email, password_hash, created_unix, updated_unix`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var (
		u                User
		email, hash      sql.NullString
		created, updated int64
	)
	if err := row.Scan(&u.ID, &email, &hash, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.Email = email.String
	u.PasswordHash = hash.String
	u.CreatedAt = time.Unix(created, 0).UTC()
	u.UpdatedAt = time.Unix(updated, 0).UTC()
	return u, nil
}

// UserByID returns ErrNotFound if no such user exists.
func (db *DB) UserByID(ctx context.Context, id string) (User, error) {
	return scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// UserByEmail returns ErrNotFound if no user has linked email.
func (db *DB) UserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// SetUserCredentials links an email and password hash to an existing user.
func (db *DB) SetUserCredentials(ctx context.Context, id, email, passwordHash string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET email = ?, password_hash = ?, updated_unix = ? WHERE id = ?`,
		email, passwordHash, time.Now().Unix(), id,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", email, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateToken stores an opaque session token for userID.
func (db *DB) CreateToken(ctx context.Context, token, userID string, expires time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO auth_tokens (token, user_id, created_unix, expires_unix) VALUES (?, ?, ?, ?)`,
		token, userID, time.Now().Unix(), expires.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}
	return nil
}

// TokenUser resolves a token to its user and expiry time.
func (db *DB) TokenUser(ctx context.Context, token string) (User, time.Time, error) {
	var expires int64
	var userID string
	err := db.QueryRowContext(ctx,
		`SELECT user_id, expires_unix FROM auth_tokens WHERE token = ?`, token,
	).Scan(&userID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, time.Time{}, ErrNotFound
	}
	if err != nil {
		return User{}, time.Time{}, err
	}
	u, err := db.UserByID(ctx, userID)
	if err != nil {
		return User{}, time.Time{}, err
	}
	return u, time.Unix(expires, 0).UTC(), nil
}

// DeleteToken removes a token. Deleting an unknown token is not an error.
func (db *DB) DeleteToken(ctx context.Context, token string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE token = ?`, token)
	return err
}

// DeleteExpiredTokens removes tokens that expired before now and returns how
// many were deleted.
func (db *DB) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE expires_unix < ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
