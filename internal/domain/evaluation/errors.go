package evaluation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordNotFound = errors.New("evaluation record not found")
	ErrNotEditable    = errors.New("record items can only be edited in draft")
)

// WeightMismatchError reports a weighted set whose total missed its target.
// Delta is signed: positive means under target, negative means over.
type WeightMismatchError struct {
	Collection string
	Total      float64
	Target     float64
	Delta      float64
}

func (e *WeightMismatchError) Error() string {
	direction := "under"
	amount := e.Delta
	if e.Delta < 0 {
		direction = "over"
		amount = -e.Delta
	}
	return fmt.Sprintf("%s weights sum to %.2f%%, %s target %.2f%% by %.2f%%", e.Collection, e.Total, direction, e.Target, amount)
}

// IncompleteScoreError reports items still missing an achievement value at
// submission time.
type IncompleteScoreError struct {
	ItemIDs []string
}

func (e *IncompleteScoreError) Error() string {
	return fmt.Sprintf("items missing achievement scores: %s", strings.Join(e.ItemIDs, ", "))
}

// IllegalTransitionError reports a (status, action, role) triple outside the
// transition table. Nothing is written when it is returned.
type IllegalTransitionError struct {
	Status Status
	Action Action
	Role   string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("role %q may not %s a record in status %q", e.Role, e.Action, e.Status)
}

// MissingFeedbackError reports a rejection attempted without a reason.
type MissingFeedbackError struct {
	Action Action
}

func (e *MissingFeedbackError) Error() string {
	return fmt.Sprintf("%s requires non-empty feedback", e.Action)
}

// StaleStateError reports an optimistic-concurrency conflict: the record
// changed between the guard read and the conditional write. Callers must
// re-read and retry, never blindly resubmit.
type StaleStateError struct {
	RecordType RecordType
	RecordID   string
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("%s record %s was modified concurrently, re-read and retry", e.RecordType, e.RecordID)
}
