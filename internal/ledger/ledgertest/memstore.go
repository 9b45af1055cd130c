// Package ledgertest provides an in-memory ledger store for tests.
package ledgertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// Store implements ledger.ExpenseStore and ledger.SplitStore in memory.
// Set the Err fields to make the matching operation fail.
type Store struct {
	mu       sync.Mutex
	expenses map[string]models.Expense
	byKey    map[string]string
	splits   map[string]models.Split
	order    []string

	CreateErr   error
	ListErr     error
	MarkErr     error
	Creates     int
	Settlements int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		expenses: make(map[string]models.Expense),
		byKey:    make(map[string]string),
		splits:   make(map[string]models.Split),
	}
}

// CreateWithSplits stores the expense unless its idempotency key is taken.
func (s *Store) CreateWithSplits(_ context.Context, expense *models.Expense, splits []models.Split) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return false, s.CreateErr
	}
	if _, ok := s.byKey[expense.IdempotencyKey]; ok {
		return false, nil
	}
	s.expenses[expense.ID] = *expense
	s.byKey[expense.IdempotencyKey] = expense.ID
	for _, sp := range splits {
		s.splits[sp.ID] = sp
		s.order = append(s.order, sp.ID)
	}
	s.Creates++
	return true, nil
}

// GetByID returns an expense by id. It satisfies ledger.ExpenseStore.
func (s *Store) GetByID(_ context.Context, id string) (*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return nil, apperr.NotFound("expense", id)
	}
	return &e, nil
}

// GetByIdempotencyKey returns the expense created under key.
func (s *Store) GetByIdempotencyKey(_ context.Context, key string) (*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byKey[key]
	if !ok {
		return nil, apperr.NotFound("expense", key)
	}
	e := s.expenses[id]
	return &e, nil
}

// Splits exposes the split half of the store, since Go does not allow two
// GetByID methods on one type.
func (s *Store) Splits() *SplitStore {
	return &SplitStore{s: s}
}

// ExpenseCount returns the number of stored expenses.
func (s *Store) ExpenseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expenses)
}

// SplitStore is the split view of a Store.
type SplitStore struct {
	s *Store
}

// GetByID returns a split by id.
func (v *SplitStore) GetByID(_ context.Context, id string) (*models.Split, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	sp, ok := v.s.splits[id]
	if !ok {
		return nil, apperr.NotFound("split", id)
	}
	return &sp, nil
}

// ListByExpense returns the splits of one expense by position.
func (v *SplitStore) ListByExpense(_ context.Context, expenseID string) ([]models.Split, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.ListErr != nil {
		return nil, v.s.ListErr
	}
	var out []models.Split
	for _, id := range v.s.order {
		if sp := v.s.splits[id]; sp.ExpenseID == expenseID {
			out = append(out, sp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// ListPending returns unpaid splits in insertion order.
func (v *SplitStore) ListPending(_ context.Context) ([]models.Split, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.ListErr != nil {
		return nil, v.s.ListErr
	}
	var out []models.Split
	for _, id := range v.s.order {
		if sp := v.s.splits[id]; !sp.Paid() {
			out = append(out, sp)
		}
	}
	return out, nil
}

// MarkPaid settles a pending split.
func (v *SplitStore) MarkPaid(_ context.Context, id string, at time.Time) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.MarkErr != nil {
		return false, v.s.MarkErr
	}
	sp, ok := v.s.splits[id]
	if !ok || sp.Paid() {
		return false, nil
	}
	sp.Status = models.SplitStatusPaid
	sp.SettledAt = &at
	v.s.splits[id] = sp
	v.s.Settlements++
	return true, nil
}

// Outstanding sums pending splits per participant, largest first.
func (v *SplitStore) Outstanding(_ context.Context) ([]models.Outstanding, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.ListErr != nil {
		return nil, v.s.ListErr
	}
	totals := map[string]*models.Outstanding{}
	for _, id := range v.s.order {
		sp := v.s.splits[id]
		if sp.Paid() {
			continue
		}
		o, ok := totals[sp.ParticipantUsername]
		if !ok {
			o = &models.Outstanding{Username: sp.ParticipantUsername, Amount: decimal.Zero}
			totals[sp.ParticipantUsername] = o
		}
		o.Amount = o.Amount.Add(sp.Amount)
		o.Splits++
	}
	out := make([]models.Outstanding, 0, len(totals))
	for _, o := range totals {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}
