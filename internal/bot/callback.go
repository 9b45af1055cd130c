package bot

import (
	"fmt"
	"strings"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/conversation"
)

// Callback data prefixes. Telegram limits callback data to 64 bytes, which
// fits the longest username and split id.
const (
	callbackSelect = "sel:"
	callbackDone   = "done"
	callbackPaid   = "paid:"
)

// Callback is a decoded inline button press. Exactly one of Action and
// SplitID is set.
type Callback struct {
	// Action is a dialog step for the presser's own dialog.
	Action conversation.Action
	// SplitID is the split a "Mark as Paid" button refers to.
	SplitID string
}

// DecodeCallback parses callback data produced by this bot.
func DecodeCallback(data string) (Callback, error) {
	switch {
	case data == callbackDone:
		return Callback{Action: conversation.Confirm{}}, nil
	case strings.HasPrefix(data, callbackSelect):
		name := strings.TrimPrefix(data, callbackSelect)
		if name == "" {
			return Callback{}, fmt.Errorf("%w: empty selection callback", apperr.ErrValidation)
		}
		return Callback{Action: conversation.Toggle{Username: name}}, nil
	case strings.HasPrefix(data, callbackPaid):
		id := strings.TrimPrefix(data, callbackPaid)
		if id == "" {
			return Callback{}, fmt.Errorf("%w: empty split callback", apperr.ErrValidation)
		}
		return Callback{SplitID: id}, nil
	default:
		return Callback{}, fmt.Errorf("%w: unknown callback %q", apperr.ErrValidation, data)
	}
}

// EncodeSelect builds the callback data for a participant button.
func EncodeSelect(username string) string { return callbackSelect + username }

// EncodePaid builds the callback data for a "Mark as Paid" button.
func EncodePaid(splitID string) string { return callbackPaid + splitID }
