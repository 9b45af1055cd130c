// Package directory manages the registry of participants who can be included
// in a split.
package directory

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/logger"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// Store is the persistence the directory needs.
type Store interface {
	Insert(ctx context.Context, user *models.User) (bool, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListActive(ctx context.Context) ([]models.User, error)
	SetActive(ctx context.Context, username string, active bool) error
}

// Directory registers users and lists the ones that can be selected.
type Directory struct {
	store Store
}

// New creates a Directory backed by store.
func New(store Store) *Directory {
	return &Directory{store: store}
}

// Register adds username with the given delivery address. When the username
// is already known the stored user is returned together with
// apperr.ErrAlreadyRegistered; the stored chat id is not overwritten.
func (d *Directory) Register(ctx context.Context, username string, chatID int64) (models.User, error) {
	name := models.NormalizeUsername(username)
	if name == "" {
		return models.User{}, apperr.ErrEmptyUsername
	}
	if len(name) > models.MaxUsernameLength {
		return models.User{}, fmt.Errorf("%w: username longer than %d characters", apperr.ErrValidation, models.MaxUsernameLength)
	}

	user := models.User{Username: name, ChatID: chatID, Active: true}
	inserted, err := d.store.Insert(ctx, &user)
	if err != nil {
		return models.User{}, err
	}
	if !inserted {
		existing, err := d.store.GetByUsername(ctx, name)
		if err != nil {
			return models.User{}, err
		}
		return *existing, apperr.ErrAlreadyRegistered
	}

	logger.Log.Info().
		Str("username_hash", logger.HashUsername(name)).
		Str("chat_id_hash", logger.HashChatID(chatID)).
		Msg("User registered")
	return user, nil
}

// Get returns the user registered under username.
func (d *Directory) Get(ctx context.Context, username string) (models.User, error) {
	user, err := d.store.GetByUsername(ctx, models.NormalizeUsername(username))
	if err != nil {
		return models.User{}, err
	}
	return *user, nil
}

// ListActive returns the users that can currently be selected, ordered by
// username.
func (d *Directory) ListActive(ctx context.Context) ([]models.User, error) {
	users, err := d.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	active := users[:0]
	for _, u := range users {
		if u.Reachable() {
			active = append(active, u)
		}
	}
	return active, nil
}

// SetActive includes or excludes a user from future selection menus.
// Existing splits are unaffected.
func (d *Directory) SetActive(ctx context.Context, username string, active bool) error {
	name := models.NormalizeUsername(username)
	if name == "" {
		return apperr.ErrEmptyUsername
	}
	if err := d.store.SetActive(ctx, name, active); err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logger.Log.Error().Err(err).Msg("Failed to update user active flag")
		}
		return err
	}
	return nil
}
