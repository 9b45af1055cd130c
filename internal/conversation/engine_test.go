package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/ledger/ledgertest"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

type fakeDirectory struct {
	users []models.User
	err   error
}

func (f *fakeDirectory) ListActive(context.Context) ([]models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.User, len(f.users))
	copy(out, f.users)
	return out, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []models.Split
	failOn map[string]bool
}

func (f *fakeNotifier) NotifySplit(_ context.Context, _ models.Expense, s models.Split) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[s.ParticipantUsername] {
		return apperr.Transport("send message", errors.New("chat not found"))
	}
	f.sent = append(f.sent, s)
	return nil
}

type harness struct {
	engine   *Engine
	store    *ledgertest.Store
	dir      *fakeDirectory
	notifier *fakeNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := ledgertest.NewStore()
	dir := &fakeDirectory{users: []models.User{
		{Username: "alice", ChatID: 1, Active: true},
		{Username: "bob", ChatID: 2, Active: true},
		{Username: "carol", ChatID: 3, Active: true},
	}}
	notifier := &fakeNotifier{failOn: map[string]bool{}}
	var keys atomic.Int64
	engine := NewEngine(dir, ledger.New(store, store.Splits()), notifier, WithKeyFunc(func() string {
		return fmt.Sprintf("key-%d", keys.Add(1))
	}))
	return &harness{engine: engine, store: store, dir: dir, notifier: notifier}
}

var alice = Initiator{ID: 11, Username: "Alice", ChatID: 1}

func (h *harness) do(t *testing.T, who Initiator, actions ...Action) Reply {
	t.Helper()
	var (
		r   Reply
		err error
	)
	for _, a := range actions {
		r, err = h.engine.Handle(context.Background(), who, a)
		require.NoError(t, err, "action %T", a)
	}
	return r
}

func TestEngine_HappyPath(t *testing.T) {
	h := newHarness(t)

	r := h.do(t, alice, StartAdd{})
	require.Equal(t, StateSelecting, r.State)
	require.Len(t, r.Candidates, 3)
	require.Empty(t, r.Selected)

	r = h.do(t, alice, Toggle{Username: "carol"}, Toggle{Username: "alice"})
	require.Equal(t, []string{"carol", "alice"}, r.Selected)
	require.True(t, r.Candidates[0].Selected)
	require.False(t, r.Candidates[1].Selected)

	r = h.do(t, alice, Confirm{})
	require.Equal(t, StateEnteringAmount, r.State)
	require.Equal(t, StateEnteringAmount, h.engine.State(alice.ID))

	r = h.do(t, alice, AmountEntered{Text: "30"})
	require.Equal(t, StateIdle, r.State)
	require.NotNil(t, r.Creation)
	require.Equal(t, "15.00", r.Creation.PerShare.StringFixed(2))
	require.Equal(t, []string{"carol", "alice"}, r.Creation.Expense.Participants)
	require.Equal(t, "alice", r.Creation.Expense.PayerUsername)
	require.Equal(t, 2, r.Notified)
	require.Zero(t, r.Failed)
	require.Len(t, h.notifier.sent, 2)
	require.Equal(t, StateIdle, h.engine.State(alice.ID))
}

func TestEngine_WrongState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	for _, a := range []Action{Toggle{Username: "bob"}, Confirm{}, AmountEntered{Text: "5"}} {
		r, err := h.engine.Handle(ctx, alice, a)
		require.ErrorIs(t, err, apperr.ErrWrongState, "%T while idle", a)
		require.Equal(t, StateIdle, r.State)
	}

	h.do(t, alice, StartAdd{})
	r, err := h.engine.Handle(ctx, alice, AmountEntered{Text: "5"})
	require.ErrorIs(t, err, apperr.ErrWrongState)
	require.Equal(t, StateSelecting, r.State)

	h.do(t, alice, Toggle{Username: "bob"}, Confirm{})
	_, err = h.engine.Handle(ctx, alice, Toggle{Username: "carol"})
	require.ErrorIs(t, err, apperr.ErrWrongState)
	require.Equal(t, StateEnteringAmount, h.engine.State(alice.ID))
}

func TestEngine_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm with nothing selected stays selecting", func(t *testing.T) {
		h := newHarness(t)
		h.do(t, alice, StartAdd{})

		r, err := h.engine.Handle(ctx, alice, Confirm{})
		require.ErrorIs(t, err, apperr.ErrEmptySelection)
		require.Equal(t, StateSelecting, r.State)
		require.Equal(t, StateSelecting, h.engine.State(alice.ID))
	})

	t.Run("unknown participant is rejected", func(t *testing.T) {
		h := newHarness(t)
		h.do(t, alice, StartAdd{}, Toggle{Username: "bob"})

		r, err := h.engine.Handle(ctx, alice, Toggle{Username: "mallory"})
		require.ErrorIs(t, err, apperr.ErrUnknownParticipant)
		require.Equal(t, []string{"bob"}, r.Selected)
	})

	t.Run("bad amount can be retried", func(t *testing.T) {
		h := newHarness(t)
		h.do(t, alice, StartAdd{}, Toggle{Username: "bob"}, Confirm{})

		for _, text := range []string{"abc", "0", "-3"} {
			r, err := h.engine.Handle(ctx, alice, AmountEntered{Text: text})
			require.ErrorIs(t, err, apperr.ErrInvalidAmount)
			require.Equal(t, StateEnteringAmount, r.State)
		}
		require.Zero(t, h.store.ExpenseCount())

		r := h.do(t, alice, AmountEntered{Text: "12,50"})
		require.Equal(t, "12.50", r.Creation.PerShare.StringFixed(2))
	})
}

func TestEngine_SnapshotIsFrozen(t *testing.T) {
	h := newHarness(t)
	h.do(t, alice, StartAdd{})

	h.dir.users = append(h.dir.users, models.User{Username: "dave", ChatID: 4, Active: true})
	_, err := h.engine.Handle(context.Background(), alice, Toggle{Username: "dave"})
	require.ErrorIs(t, err, apperr.ErrUnknownParticipant)

	r := h.do(t, alice, StartAdd{})
	require.Len(t, r.Candidates, 4)
}

func TestEngine_EmptyDirectoryStillOpensMenu(t *testing.T) {
	h := newHarness(t)
	h.dir.users = nil

	r := h.do(t, alice, StartAdd{})
	require.Equal(t, StateSelecting, r.State)
	require.Empty(t, r.Candidates)
}

func TestEngine_CancelAndSupersede(t *testing.T) {
	h := newHarness(t)

	h.do(t, alice, StartAdd{}, Toggle{Username: "bob"})
	r := h.do(t, alice, Cancel{})
	require.Equal(t, StateIdle, r.State)
	require.Equal(t, StateIdle, h.engine.State(alice.ID))

	r = h.do(t, alice, Cancel{})
	require.Equal(t, StateIdle, r.State, "cancel while idle is a no-op")

	h.do(t, alice, StartAdd{}, Toggle{Username: "bob"}, Confirm{})
	r = h.do(t, alice, StartAdd{})
	require.Equal(t, StateSelecting, r.State)
	require.Empty(t, r.Selected, "new dialog starts with an empty selection")
}

func TestEngine_StorageFailureKeepsKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.do(t, alice, StartAdd{}, Toggle{Username: "bob"}, Confirm{})

	h.store.CreateErr = apperr.Storage("create expense", errors.New("connection reset"))
	r, err := h.engine.Handle(ctx, alice, AmountEntered{Text: "20"})
	require.True(t, apperr.IsStorage(err))
	require.Equal(t, StateEnteringAmount, r.State)
	require.Empty(t, h.notifier.sent)

	h.store.CreateErr = nil
	r = h.do(t, alice, AmountEntered{Text: "20"})
	require.Equal(t, ledger.ExpenseID("key-1"), r.Creation.Expense.ID)
	require.Equal(t, 1, h.store.ExpenseCount())
}

func TestEngine_StartAddStorageFailureKeepsDialog(t *testing.T) {
	h := newHarness(t)
	h.do(t, alice, StartAdd{}, Toggle{Username: "bob"})

	h.dir.err = apperr.Storage("list active users", errors.New("timeout"))
	r, err := h.engine.Handle(context.Background(), alice, StartAdd{})
	require.True(t, apperr.IsStorage(err))
	require.Equal(t, []string{"bob"}, r.Selected)
}

func TestEngine_NotificationFailureIsIsolated(t *testing.T) {
	h := newHarness(t)
	h.notifier.failOn["bob"] = true

	r := h.do(t, alice, StartAdd{}, Toggle{Username: "alice"}, Toggle{Username: "bob"}, Toggle{Username: "carol"}, Confirm{}, AmountEntered{Text: "30"})
	require.Equal(t, 2, r.Notified)
	require.Equal(t, 1, r.Failed)
	require.Len(t, r.Creation.Splits, 3)
	require.Equal(t, StateIdle, r.State)
}

func TestEngine_InitiatorsAreIndependent(t *testing.T) {
	h := newHarness(t)
	bob := Initiator{ID: 22, Username: "bob", ChatID: 2}

	h.do(t, alice, StartAdd{}, Toggle{Username: "carol"})
	h.do(t, bob, StartAdd{})

	require.Equal(t, StateSelecting, h.engine.State(alice.ID))
	r := h.do(t, alice, Confirm{})
	require.Equal(t, StateEnteringAmount, r.State)
	require.Equal(t, StateSelecting, h.engine.State(bob.ID))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			who := Initiator{ID: int64(100 + i), Username: fmt.Sprintf("u%d", i), ChatID: int64(100 + i)}
			_, _ = h.engine.Handle(context.Background(), who, StartAdd{})
			_, _ = h.engine.Handle(context.Background(), who, Toggle{Username: "bob"})
			_, _ = h.engine.Handle(context.Background(), who, Confirm{})
			_, _ = h.engine.Handle(context.Background(), who, AmountEntered{Text: "9"})
		}(i)
	}
	wg.Wait()
	require.Equal(t, 20, h.store.ExpenseCount())
}

func TestEngine_SelectionMatchesToggleParity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t)
		ctx := context.Background()
		_, err := h.engine.Handle(ctx, alice, StartAdd{})
		require.NoError(rt, err)

		counts := map[string]int{}
		var r Reply
		for _, name := range rapid.SliceOf(rapid.SampledFrom([]string{"alice", "bob", "carol"})).Draw(rt, "toggles") {
			r, err = h.engine.Handle(ctx, alice, Toggle{Username: name})
			require.NoError(rt, err)
			counts[name]++
		}
		for _, c := range r.Candidates {
			require.Equal(rt, counts[c.Username]%2 == 1, c.Selected, c.Username)
		}
	})
}

func TestStateString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "idle", StateIdle.String())
	require.Equal(t, "selecting", StateSelecting.String())
	require.Equal(t, "entering_amount", StateEnteringAmount.String())
	require.Equal(t, "unknown", State(42).String())
}
