package order

import (
	"fmt"

	"github.com/andikarp/bus-ticketing/internal/model"
)

// ErrUnknownGatewayStatus wraps an unrecognised transaction_status value
// from the payment gateway.  Callers surface it without retrying; the
// gateway vocabulary is closed.
type ErrUnknownGatewayStatus struct {
	Status string
}

func (e ErrUnknownGatewayStatus) Error() string {
	return fmt.Sprintf("order: unknown gateway status %q", e.Status)
}

// FromGatewayStatus maps the gateway's transaction_status onto the internal
// ticket status the group should move to.
//
//	settlement, capture      -> confirmed
//	pending                  -> pending (no-op on an already pending group)
//	deny, cancel, expire     -> cancelled
func FromGatewayStatus(external string) (string, error) {
	switch external {
	case "settlement", "capture":
		return model.StatusConfirmed, nil
	case "pending":
		return model.StatusPending, nil
	case "deny", "cancel", "expire":
		return model.StatusCancelled, nil
	default:
		return "", ErrUnknownGatewayStatus{Status: external}
	}
}

// IsTerminal reports whether a status accepts no further gateway-driven
// transitions.  completed is reached only by back-office action after
// travel and is equally final here.
func IsTerminal(status string) bool {
	switch status {
	case model.StatusConfirmed, model.StatusCancelled, model.StatusCompleted:
		return true
	}
	return false
}

// Transition is the decision for applying a target status to a group.
type Transition int

const (
	// TransitionNone means the event is a duplicate or stale; the group
	// stays as it is and no side effects run.
	TransitionNone Transition = iota
	// TransitionApply means every ticket of the group moves to the target
	// status atomically.
	TransitionApply
)

// Decide resolves what a reconciliation event does to a group currently in
// `current` when the gateway asks for `target`.  Redelivered events are
// no-ops, and terminal states are never overwritten: a late `pending` must
// not reopen a confirmed or cancelled order.
func Decide(current, target string) Transition {
	if current == target {
		return TransitionNone
	}
	if IsTerminal(current) {
		return TransitionNone
	}
	return TransitionApply
}
