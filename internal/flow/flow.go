// Package flow models the linear box-rental conversation: its states, the
// accumulating rental draft, and the expected step order.
package flow

import "github.com/google/uuid"

// State identifies a step of the rental conversation.
type State string

const (
	// StateIdle indicates there is no active rental flow.
	StateIdle State = "idle"
	// StateWeightChosen is set after the client picked a weight band.
	StateWeightChosen State = "weight_chosen"
	// StateVolumeChosen is set after the volume band was picked and priced.
	StateVolumeChosen State = "volume_chosen"
	// StatePeriodChosen is set after the rent period was picked.
	StatePeriodChosen State = "period_chosen"
	// StateFulfillmentChosen is set after pickup/self-delivery was picked.
	StateFulfillmentChosen State = "fulfillment_chosen"
	// StateAwaitingPhone means the next free-text message is the phone number.
	StateAwaitingPhone State = "awaiting_phone"
	// StateAwaitingAddress means the next free-text message is the address.
	StateAwaitingAddress State = "awaiting_address"
	// StateAwaitingWindow means the pickup time window choice is pending.
	StateAwaitingWindow State = "awaiting_window"
	// StateWindowChosen means the consent prompt was shown.
	StateWindowChosen State = "window_chosen"
	// StateCompleted is the terminal success state of a flow.
	StateCompleted State = "completed"
)

// Fulfillment enumerates how the goods reach the storage site.
type Fulfillment string

const (
	// FulfillmentPickup means operators collect the goods at the client's address.
	FulfillmentPickup Fulfillment = "pickup"
	// FulfillmentSelf means the client brings the goods to the site.
	FulfillmentSelf Fulfillment = "self"
)

// stepOrder positions each state on the linear flow. Free-text collection
// states share the pickup branch ordering.
var stepOrder = map[State]int{
	StateIdle:              0,
	StateWeightChosen:      1,
	StateVolumeChosen:      2,
	StatePeriodChosen:      3,
	StateFulfillmentChosen: 4,
	StateAwaitingPhone:     5,
	StateAwaitingAddress:   6,
	StateAwaitingWindow:    7,
	StateWindowChosen:      8,
	StateCompleted:         9,
}

// InOrder reports whether moving from cur to next follows the linear flow.
// The flow is permissive: callers log out-of-order moves and proceed with
// zero-value defaults rather than rejecting the event.
func InOrder(cur, next State) bool {
	ci, ok := stepOrder[cur]
	if !ok {
		return false
	}
	ni, ok := stepOrder[next]
	if !ok {
		return false
	}
	return ni > ci
}

// Draft accumulates the payload of one in-progress rental flow. Fields are
// written once per flow instance; a new flow starts from a fresh Draft.
type Draft struct {
	// FlowID correlates log lines and the persisted box with one flow instance.
	FlowID       string
	Weight       float64
	Volume       float64
	Price        int
	PeriodMonths int
	Fulfillment  Fulfillment
	Phone        string
	Address      string
	TimeWindow   string
	Consent      bool
}

// NewDraft returns an empty draft with a fresh flow id.
func NewDraft() Draft {
	return Draft{FlowID: uuid.NewString()}
}
