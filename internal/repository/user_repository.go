package repository

import (
	"context"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/database"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// UserRepository handles participant rows.
type UserRepository struct {
	db database.PGXDB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db database.PGXDB) *UserRepository {
	return &UserRepository{db: db}
}

// Insert adds a user unless the username exists. It reports whether a row
// was written.
func (r *UserRepository) Insert(ctx context.Context, user *models.User) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO users (username, chat_id, active, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (username) DO NOTHING
	`, user.Username, user.ChatID, user.Active)
	if err != nil {
		return false, apperr.Storage("insert user", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByUsername retrieves a user by lowercase username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.QueryRow(ctx, `
		SELECT username, chat_id, active, created_at
		FROM users WHERE username = $1
	`, username).Scan(&user.Username, &user.ChatID, &user.Active, &user.CreatedAt)
	if err != nil {
		return nil, lookupErr("get user", "user", username, err)
	}
	return &user, nil
}

// ListActive returns active users that have a delivery address.
func (r *UserRepository) ListActive(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT username, chat_id, active, created_at
		FROM users
		WHERE active AND chat_id <> 0
		ORDER BY username
	`)
	if err != nil {
		return nil, apperr.Storage("list active users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.Username, &u.ChatID, &u.Active, &u.CreatedAt); err != nil {
			return nil, apperr.Storage("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate users", err)
	}
	return users, nil
}

// SetActive toggles the active flag. Unknown usernames yield a not-found error.
func (r *UserRepository) SetActive(ctx context.Context, username string, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET active = $2 WHERE username = $1`, username, active)
	if err != nil {
		return apperr.Storage("set user active", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user", username)
	}
	return nil
}
