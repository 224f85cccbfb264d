package evaluation

import (
	"context"
	"time"
)

// Store is the durable-storage boundary the workflow operates through. The
// pgx implementation lives in store_data.go; tests inject an in-memory fake.
type Store interface {
	GetBonus(ctx context.Context, recordID string) (BonusRecord, error)
	GetMerit(ctx context.Context, recordID string) (MeritRecord, error)
	ListBonus(ctx context.Context, employeeID string) ([]BonusRecord, error)
	ListMerit(ctx context.Context, employeeID string) ([]MeritRecord, error)
	CreateBonus(ctx context.Context, record BonusRecord) error
	CreateMerit(ctx context.Context, record MeritRecord) error
	// UpdateBonusDraft and UpdateMeritDraft replace a record's editable
	// fields. They only apply while the record is in draft (or not_started)
	// and return ErrNotEditable otherwise.
	UpdateBonusDraft(ctx context.Context, record BonusRecord) error
	UpdateMeritDraft(ctx context.Context, record MeritRecord) error
	// CommitTransition writes the status change, recomputed scores, stage
	// fields and exactly one history entry as a single unit. The write is
	// conditional on (status, updated_at) matching what the guard read; a
	// conflict returns StaleStateError with nothing applied.
	CommitTransition(ctx context.Context, commit TransitionCommit) error
	History(ctx context.Context, recordType RecordType, recordID string) ([]HistoryEntry, error)
	LastHistoryEntry(ctx context.Context, recordType RecordType, recordID string) (HistoryEntry, bool, error)
}

// TransitionCommit is the all-or-nothing write produced by one accepted
// transition.
type TransitionCommit struct {
	RecordType RecordType
	RecordID   string

	// Optimistic-concurrency guard: the row must still carry these values.
	FromStatus    Status
	SeenUpdatedAt time.Time

	ToStatus Status
	Now      time.Time

	SubmittedDate    *time.Time
	CheckedDate      *time.Time
	ApprovedDate     *time.Time
	CheckerFeedback  *string
	ApproverFeedback *string
	RejectionReason  *string

	GoalScore  *float64
	TotalScore *float64

	Entry HistoryEntry
}
