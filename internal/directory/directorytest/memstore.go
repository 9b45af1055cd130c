// Package directorytest provides an in-memory user store for tests.
package directorytest

import (
	"context"
	"sort"
	"sync"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// Store implements directory.Store in memory. Set Err to make every
// operation fail.
type Store struct {
	mu    sync.Mutex
	users map[string]models.User

	Err error
}

// NewStore creates a Store seeded with users.
func NewStore(users ...models.User) *Store {
	s := &Store{users: make(map[string]models.User)}
	for _, u := range users {
		s.users[u.Username] = u
	}
	return s
}

// Insert adds a user unless the username is taken.
func (s *Store) Insert(_ context.Context, user *models.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if _, ok := s.users[user.Username]; ok {
		return false, nil
	}
	s.users[user.Username] = *user
	return true, nil
}

// GetByUsername returns a stored user.
func (s *Store) GetByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[username]
	if !ok {
		return nil, apperr.NotFound("user", username)
	}
	return &u, nil
}

// ListActive returns reachable users ordered by username.
func (s *Store) ListActive(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.User
	for _, u := range s.users {
		if u.Reachable() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// SetActive flips the active flag.
func (s *Store) SetActive(_ context.Context, username string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	u, ok := s.users[username]
	if !ok {
		return apperr.NotFound("user", username)
	}
	u.Active = active
	s.users[username] = u
	return nil
}
