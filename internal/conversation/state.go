package conversation

import (
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// State is the step a dialog is in.
type State int

// Dialog states.
const (
	StateIdle State = iota
	StateSelecting
	StateEnteringAmount
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateEnteringAmount:
		return "entering_amount"
	default:
		return "unknown"
	}
}

// Initiator identifies who drives a dialog. ID is the Telegram user id and
// keys the dialog; ChatID is where replies go.
type Initiator struct {
	ID       int64
	Username string
	ChatID   int64
}

// Action is one input to the dialog. The concrete types below are the only
// implementations.
type Action interface {
	action() string
}

// StartAdd begins a new dialog, replacing any open one.
type StartAdd struct{}

// Toggle flips one candidate in or out of the selection.
type Toggle struct{ Username string }

// Confirm closes the selection.
type Confirm struct{}

// AmountEntered carries the raw total typed by the initiator.
type AmountEntered struct{ Text string }

// Cancel abandons the dialog.
type Cancel struct{}

func (StartAdd) action() string      { return "start_add" }
func (Toggle) action() string        { return "toggle" }
func (Confirm) action() string       { return "confirm" }
func (AmountEntered) action() string { return "amount_entered" }
func (Cancel) action() string        { return "cancel" }

// dialog is the typed context of one open conversation.
type dialog struct {
	key        string
	state      State
	candidates []models.User
	selection  SelectionSet
}

func (d *dialog) candidate(username string) (models.User, bool) {
	for _, u := range d.candidates {
		if u.Username == username {
			return u, true
		}
	}
	return models.User{}, false
}

// Candidate is one row of the selection menu.
type Candidate struct {
	Username string
	Selected bool
}

// Reply describes the dialog after an action, for the transport to render.
type Reply struct {
	State State

	// Candidates and Selected are set while selecting.
	Candidates []Candidate
	Selected   []string

	// Creation is set once the expense has been recorded.
	Creation *ledger.Creation
	Notified int
	Failed   int
}

func (d *dialog) reply() Reply {
	r := Reply{State: d.state}
	if d.state == StateSelecting {
		r.Candidates = make([]Candidate, 0, len(d.candidates))
		for _, u := range d.candidates {
			r.Candidates = append(r.Candidates, Candidate{Username: u.Username, Selected: d.selection.Contains(u.Username)})
		}
		r.Selected = d.selection.Names()
	}
	return r
}
