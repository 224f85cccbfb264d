package evaluation

// Status is the lifecycle state of an evaluation record.
type Status string

const (
	StatusNotStarted      Status = "not_started"
	StatusDraft           Status = "draft"
	StatusPendingChecker  Status = "pending_checker"
	StatusPendingApprover Status = "pending_approver"
	StatusCompleted       Status = "completed"
	StatusRejected        Status = "rejected"
)

// Action is a workflow verb an actor performs against a record.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionForward Action = "forward"
	ActionReject  Action = "reject"
	ActionApprove Action = "approve"
)

// RecordType selects between the two evaluation record kinds.
type RecordType string

const (
	RecordTypeBonus RecordType = "bonus"
	RecordTypeMerit RecordType = "merit"
)

// History entry action labels.
const (
	HistorySubmitted = "Submitted"
	HistoryForwarded = "Forwarded"
	HistoryRejected  = "Rejected"
	HistoryApproved  = "Approved"
)

// WeightTarget is the percentage a top-level weighted set must sum to.
const WeightTarget = 100.0

func ValidRecordType(value string) (RecordType, bool) {
	switch RecordType(value) {
	case RecordTypeBonus:
		return RecordTypeBonus, true
	case RecordTypeMerit:
		return RecordTypeMerit, true
	}
	return "", false
}
