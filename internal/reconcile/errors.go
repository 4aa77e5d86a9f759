package reconcile

import (
	"errors"
	"fmt"
)

// FallbackMessage is shown when no rejected call carried a server message.
const FallbackMessage = "Failed to save changes"

// ErrCanceled is returned by ApplyPlan when its context ends before every
// call settled. Results gathered so far are discarded.
var ErrCanceled = errors.New("reconcile: save canceled")

// OpKind names one kind of call issued while applying a plan.
type OpKind string

const (
	OpAssign   OpKind = "assign"
	OpUnassign OpKind = "unassign"
)

// OpResult is the settled outcome of one assign or unassign call.
type OpResult struct {
	Op           OpKind `json:"op"`
	MemberID     int64  `json:"member_id"`
	AssignmentID int64  `json:"assignment_id,omitempty"`
	OK           bool   `json:"ok"`
	Message      string `json:"message,omitempty"`
	Err          error  `json:"-"`
}

// MessageCarrier is implemented by errors that hold a message from the
// task API suitable for showing to a user.
type MessageCarrier interface {
	ServerMessage() string
}

// serverMessage extracts a user-facing server message from err, if any.
func serverMessage(err error) string {
	var mc MessageCarrier
	if errors.As(err, &mc) {
		return mc.ServerMessage()
	}
	return ""
}

// PartialFailure reports that at least one call of an applied plan was
// rejected. Calls that succeeded stay applied; nothing is rolled back.
type PartialFailure struct {
	Message string
	Results []OpResult
}

func (e *PartialFailure) Error() string {
	failed := 0
	for _, r := range e.Results {
		if !r.OK {
			failed++
		}
	}
	return fmt.Sprintf("reconcile: %d of %d calls failed: %s", failed, len(e.Results), e.Message)
}

// Failed returns only the rejected results, in dispatch order.
func (e *PartialFailure) Failed() []OpResult {
	var out []OpResult
	for _, r := range e.Results {
		if !r.OK {
			out = append(out, r)
		}
	}
	return out
}
