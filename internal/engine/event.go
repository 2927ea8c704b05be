package engine

import (
	"errors"

	"storagebot/internal/domain"
)

// Event is one inbound update delivered to the engine: a command or menu
// selection (Tag set) or a free-text message (Tag empty, Text set).
type Event struct {
	Identity domain.ChatIdentity
	// Tag is the action tag of a command or menu selection, e.g.
	// "client_set_weight_10". Empty for plain text messages.
	Tag string
	// Text carries the message text for free-text events and the command
	// payload for /start (the referring-campaign tag).
	Text string
}

// Choice is one selectable reply option: a label shown to the user and the
// action tag delivered back when selected.
type Choice struct {
	Label  string
	Action string
}

// Result is the transport-agnostic outcome of handling one event: the reply
// text plus ordered rows of choices. A zero Result means no reply is sent.
type Result struct {
	Text    string
	Choices [][]Choice
}

// Empty reports whether the result carries nothing to send.
func (r Result) Empty() bool {
	return r.Text == "" && len(r.Choices) == 0
}

var (
	// ErrMalformedEvent marks events whose action parameter failed to parse.
	// Such events are dropped: logged, never answered, never retried.
	ErrMalformedEvent = errors.New("engine: malformed event")
	// ErrUnknownAction marks action tags with no registered handler.
	ErrUnknownAction = errors.New("engine: unknown action")
)
