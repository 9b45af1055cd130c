// Package conversation drives the per-initiator dialog that captures a new
// shared expense: pick participants, confirm, enter the total.
package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/keylock"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/logger"
	"gitlab.com/yelinaung/split-bot/internal/models"
	"gitlab.com/yelinaung/split-bot/internal/telemetry"
)

// Directory lists the users that may be selected.
type Directory interface {
	ListActive(ctx context.Context) ([]models.User, error)
}

// Ledger records a confirmed expense.
type Ledger interface {
	CreateExpense(ctx context.Context, payer models.User, participants []models.User, total decimal.Decimal, key string) (ledger.Creation, error)
}

// Notifier tells a participant about their new split.
type Notifier interface {
	NotifySplit(ctx context.Context, expense models.Expense, split models.Split) error
}

// Engine owns every open dialog. Actions for one initiator are applied one
// at a time; different initiators never wait on each other.
type Engine struct {
	directory Directory
	ledger    Ledger
	notifier  Notifier
	metrics   *telemetry.Metrics
	newKey    func() string

	mu      sync.Mutex
	dialogs map[int64]*dialog
	locks   *keylock.Locker[int64]
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics enables dialog counters.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithKeyFunc overrides how conversation keys are generated.
func WithKeyFunc(fn func() string) Option {
	return func(e *Engine) { e.newKey = fn }
}

// NewEngine creates an Engine.
func NewEngine(directory Directory, l Ledger, notifier Notifier, opts ...Option) *Engine {
	e := &Engine{
		directory: directory,
		ledger:    l,
		notifier:  notifier,
		newKey:    uuid.NewString,
		dialogs:   make(map[int64]*dialog),
		locks:     keylock.New[int64](),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current step of the initiator's dialog.
func (e *Engine) State(initiatorID int64) State {
	unlock := e.locks.Lock(initiatorID)
	defer unlock()
	if d := e.get(initiatorID); d != nil {
		return d.state
	}
	return StateIdle
}

func (e *Engine) get(id int64) *dialog {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dialogs[id]
}

func (e *Engine) put(id int64, d *dialog) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d == nil {
		delete(e.dialogs, id)
		return
	}
	e.dialogs[id] = d
}

// Handle applies action to the initiator's dialog. On a validation error the
// dialog is left exactly as it was and the returned Reply reflects it.
func (e *Engine) Handle(ctx context.Context, who Initiator, action Action) (Reply, error) {
	unlock := e.locks.Lock(who.ID)
	defer unlock()

	d := e.get(who.ID)
	reply, err := e.transition(ctx, who, d, action)
	if err != nil {
		e.metrics.DialogError(ctx, action.action())
		logger.Log.Debug().
			Err(err).
			Str("action", action.action()).
			Str("chat_id_hash", logger.HashChatID(who.ChatID)).
			Msg("Dialog action rejected")
	}
	return reply, err
}

func (e *Engine) transition(ctx context.Context, who Initiator, d *dialog, action Action) (Reply, error) {
	switch a := action.(type) {
	case StartAdd:
		return e.startAdd(ctx, who, d)
	case Cancel:
		e.put(who.ID, nil)
		return Reply{State: StateIdle}, nil
	case Toggle:
		if d == nil || d.state != StateSelecting {
			return current(d), apperr.ErrWrongState
		}
		return e.toggle(d, a.Username)
	case Confirm:
		if d == nil || d.state != StateSelecting {
			return current(d), apperr.ErrWrongState
		}
		if d.selection.Empty() {
			return d.reply(), apperr.ErrEmptySelection
		}
		d.state = StateEnteringAmount
		return d.reply(), nil
	case AmountEntered:
		if d == nil || d.state != StateEnteringAmount {
			return current(d), apperr.ErrWrongState
		}
		return e.enterAmount(ctx, who, d, a.Text)
	default:
		return current(d), fmt.Errorf("%w: unsupported action %T", apperr.ErrValidation, action)
	}
}

func current(d *dialog) Reply {
	if d == nil {
		return Reply{State: StateIdle}
	}
	return d.reply()
}

func (e *Engine) startAdd(ctx context.Context, who Initiator, prev *dialog) (Reply, error) {
	candidates, err := e.directory.ListActive(ctx)
	if err != nil {
		return current(prev), err
	}

	d := &dialog{
		key:        e.newKey(),
		state:      StateSelecting,
		candidates: candidates,
	}
	e.put(who.ID, d)
	if prev != nil {
		logger.Log.Debug().Str("chat_id_hash", logger.HashChatID(who.ChatID)).Msg("Replaced open dialog")
	}
	return d.reply(), nil
}

func (e *Engine) toggle(d *dialog, username string) (Reply, error) {
	name := models.NormalizeUsername(username)
	if _, ok := d.candidate(name); !ok {
		return d.reply(), apperr.ErrUnknownParticipant
	}
	d.selection.Toggle(name)
	return d.reply(), nil
}

func (e *Engine) enterAmount(ctx context.Context, who Initiator, d *dialog, text string) (Reply, error) {
	total, err := ParseAmount(text)
	if err != nil {
		return d.reply(), err
	}

	participants := make([]models.User, 0, d.selection.Len())
	for _, name := range d.selection.Names() {
		u, _ := d.candidate(name)
		participants = append(participants, u)
	}

	payer := models.User{Username: payerName(who), ChatID: who.ChatID}
	creation, err := e.ledger.CreateExpense(ctx, payer, participants, total, d.key)
	if err != nil {
		// The dialog keeps its key so a retry replays instead of duplicating.
		return d.reply(), err
	}

	e.put(who.ID, nil)

	// A replay means the earlier attempt errored before anyone was told, so
	// participants are notified either way.
	reply := Reply{State: StateIdle, Creation: &creation}
	reply.Notified, reply.Failed = e.notifyAll(ctx, creation)
	return reply, nil
}

// notifyAll sends one message per split. Delivery failures are logged and do
// not affect the recorded expense.
func (e *Engine) notifyAll(ctx context.Context, creation ledger.Creation) (sent, failed int) {
	for _, s := range creation.Splits {
		if err := e.notifier.NotifySplit(ctx, creation.Expense, s); err != nil {
			failed++
			e.metrics.Notification(ctx, false)
			logger.Log.Warn().
				Err(err).
				Str("split_id", s.ID).
				Str("chat_id_hash", logger.HashChatID(s.ParticipantChatID)).
				Msg("Failed to notify participant")
			continue
		}
		sent++
		e.metrics.Notification(ctx, true)
	}
	return sent, failed
}

func payerName(who Initiator) string {
	if name := models.NormalizeUsername(who.Username); name != "" {
		return name
	}
	return fmt.Sprintf("id%d", who.ID)
}
