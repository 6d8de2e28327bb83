package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/avelyth/loresheet/internal/model"
	"github.com/avelyth/loresheet/internal/utils"
)

// UserRepo persists rows in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID. Duplicate email or username
// are reported through the corresponding sentinel errors. MySQL reports
// both through error 1062; the violated index name tells them apart.
func (r *UserRepo) Create(ctx context.Context, email, username, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, username, password_hash) VALUES (?,?,?)",
		email, username, hash)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "1062") {
			if strings.Contains(msg, "username") {
				return 0, ErrUsernameExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

const userColumns = "id,email,username,password_hash,active_character_id,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var active sql.NullInt64
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return u, ErrNotFound
		}
		return u, err
	}
	if active.Valid {
		id := uint64(active.Int64)
		u.ActiveCharacterID = &id
	}
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdatePassword replaces the stored hash after a completed reset.
func (r *UserRepo) UpdatePassword(ctx context.Context, userID uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=NOW() WHERE id=?", hash, userID)
	return err
}

// ResetRepo persists password reset tokens. A user has at most one
// outstanding token; creating a new one replaces the previous row.
type ResetRepo struct{ DB *sql.DB }

func NewResetRepo(db *sql.DB) *ResetRepo { return &ResetRepo{DB: db} }

// Replace installs a fresh token for the user, discarding any prior one.
func (r *ResetRepo) Replace(ctx context.Context, userID uint64, token string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO password_resets (user_id, token, expires_at) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE token=VALUES(token), expires_at=VALUES(expires_at), created_at=NOW()`,
		userID, token, exp)
	return err
}

// Consume validates a token and deletes it, returning the owning user ID.
// The DELETE is the consuming step: of two concurrent requests carrying the
// same token, only the one whose DELETE removed the row proceeds, so a
// token installs at most one password. Expired tokens are deleted as well
// but reported as ErrTokenExpired.
func (r *ResetRepo) Consume(ctx context.Context, token string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM password_resets WHERE token=? LIMIT 1",
		token).Scan(&userID, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, err
	}

	res, err := r.DB.ExecContext(ctx, "DELETE FROM password_resets WHERE token=?", token)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		// Another request consumed the token between the select and the
		// delete.
		return 0, ErrNotFound
	}

	if time.Now().UTC().After(expiresAt) {
		return 0, ErrTokenExpired
	}
	return userID, nil
}
