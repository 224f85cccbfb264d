package evaluation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/domain/auth"
)

// ActorDirectory resolves an actor id to its identity and role. The machine
// consults it on every transition so the gate always reflects the current
// role assignment, not a cached claim.
type ActorDirectory interface {
	Actor(ctx context.Context, actorID string) (Actor, error)
}

type DirectoryFunc func(ctx context.Context, actorID string) (Actor, error)

func (f DirectoryFunc) Actor(ctx context.Context, actorID string) (Actor, error) {
	return f(ctx, actorID)
}

// Notifier receives the outcome of every successful transition. Delivery and
// formatting are the collaborator's concern.
type Notifier interface {
	TransitionApplied(ctx context.Context, notice TransitionNotice)
}

type NotifierFunc func(ctx context.Context, notice TransitionNotice)

func (f NotifierFunc) TransitionApplied(ctx context.Context, notice TransitionNotice) {
	f(ctx, notice)
}

type TransitionNotice struct {
	RecordType RecordType
	RecordID   string
	EmployeeID string
	Status     Status
	ActorRole  string
	TargetRole string
	Feedback   string
}

type transitionKey struct {
	status Status
	action Action
}

type transitionRule struct {
	actorRole       string
	to              Status
	historyAction   string
	targetRole      string
	requireFeedback bool
	validateWeights bool
	requireComplete bool
}

// transitions is the single exhaustive table of legal (status, action)
// pairs. Any triple outside it is rejected with IllegalTransitionError.
// Rejection from either review stage returns the record to draft; the
// history entry records whom it was returned to.
var transitions = map[transitionKey]transitionRule{
	{StatusNotStarted, ActionSubmit}: {
		actorRole:       auth.RoleEmployee,
		to:              StatusPendingChecker,
		historyAction:   HistorySubmitted,
		targetRole:      auth.RoleChecker,
		validateWeights: true,
		requireComplete: true,
	},
	{StatusDraft, ActionSubmit}: {
		actorRole:       auth.RoleEmployee,
		to:              StatusPendingChecker,
		historyAction:   HistorySubmitted,
		targetRole:      auth.RoleChecker,
		validateWeights: true,
		requireComplete: true,
	},
	{StatusPendingChecker, ActionForward}: {
		actorRole:       auth.RoleChecker,
		to:              StatusPendingApprover,
		historyAction:   HistoryForwarded,
		targetRole:      auth.RoleApprover,
		validateWeights: true,
	},
	{StatusPendingChecker, ActionReject}: {
		actorRole:       auth.RoleChecker,
		to:              StatusDraft,
		historyAction:   HistoryRejected,
		targetRole:      auth.RoleEmployee,
		requireFeedback: true,
	},
	{StatusPendingApprover, ActionApprove}: {
		actorRole:       auth.RoleApprover,
		to:              StatusCompleted,
		historyAction:   HistoryApproved,
		validateWeights: true,
	},
	{StatusPendingApprover, ActionReject}: {
		actorRole:       auth.RoleApprover,
		to:              StatusDraft,
		historyAction:   HistoryRejected,
		targetRole:      auth.RoleEmployee,
		requireFeedback: true,
	},
}

// Machine executes the approval workflow: it gates transitions by actor
// role and validation outcome, recomputes scores, and commits the status
// change together with its audit entry.
type Machine struct {
	store  Store
	actors ActorDirectory
	notify Notifier
	now    func() time.Time
}

func NewMachine(store Store, actors ActorDirectory, notify Notifier) *Machine {
	return &Machine{store: store, actors: actors, notify: notify, now: time.Now}
}

// TransitionResult reports the state a record reached.
type TransitionResult struct {
	RecordType RecordType      `json:"recordType"`
	RecordID   string          `json:"recordId"`
	Status     Status          `json:"status"`
	GoalScore  float64         `json:"goalScore,omitempty"`
	TotalScore float64         `json:"totalScore"`
	Warning    *FormulaWarning `json:"warning,omitempty"`
	// AlreadyApplied is set when a retried transition was detected as
	// previously committed and no new write happened.
	AlreadyApplied bool `json:"alreadyApplied,omitempty"`
}

func (m *Machine) Submit(ctx context.Context, recordType RecordType, recordID, actorID string) (TransitionResult, error) {
	return m.apply(ctx, recordType, recordID, actorID, ActionSubmit, "")
}

func (m *Machine) Forward(ctx context.Context, recordType RecordType, recordID, actorID, feedback string) (TransitionResult, error) {
	return m.apply(ctx, recordType, recordID, actorID, ActionForward, feedback)
}

func (m *Machine) Reject(ctx context.Context, recordType RecordType, recordID, actorID, feedback string) (TransitionResult, error) {
	return m.apply(ctx, recordType, recordID, actorID, ActionReject, feedback)
}

func (m *Machine) Approve(ctx context.Context, recordType RecordType, recordID, actorID, feedback string) (TransitionResult, error) {
	return m.apply(ctx, recordType, recordID, actorID, ActionApprove, feedback)
}

func (m *Machine) apply(ctx context.Context, recordType RecordType, recordID, actorID string, action Action, feedback string) (TransitionResult, error) {
	actor, err := m.actors.Actor(ctx, actorID)
	if err != nil {
		return TransitionResult{}, err
	}
	feedback = strings.TrimSpace(feedback)

	view, err := m.loadView(ctx, recordType, recordID)
	if err != nil {
		return TransitionResult{}, err
	}

	rule, ok := transitions[transitionKey{view.status, action}]
	if !ok {
		// A retried request after a commit the caller never saw lands
		// here: the record is already past the transition's source status.
		if result, applied, err := m.alreadyApplied(ctx, view, action, actor, feedback); err != nil {
			return TransitionResult{}, err
		} else if applied {
			return result, nil
		}
		return TransitionResult{}, &IllegalTransitionError{Status: view.status, Action: action, Role: actor.Role}
	}
	if rule.actorRole != actor.Role {
		return TransitionResult{}, &IllegalTransitionError{Status: view.status, Action: action, Role: actor.Role}
	}
	// Employee-stage actions are owner-only: holding the role is not enough,
	// the actor must be the record's employee.
	if rule.actorRole == auth.RoleEmployee && actor.ID != view.employeeID {
		return TransitionResult{}, &IllegalTransitionError{Status: view.status, Action: action, Role: actor.Role}
	}
	if rule.requireFeedback && feedback == "" {
		return TransitionResult{}, &MissingFeedbackError{Action: action}
	}
	if rule.validateWeights {
		for _, set := range view.weightSets {
			check := ValidateWeights(set.items, set.target)
			if !check.Valid {
				return TransitionResult{}, &WeightMismatchError{
					Collection: set.name,
					Total:      check.Total,
					Target:     set.target,
					Delta:      check.Delta,
				}
			}
		}
	}
	if rule.requireComplete {
		if missing := IncompleteItemIDs(view.scoredItems); len(missing) > 0 {
			return TransitionResult{}, &IncompleteScoreError{ItemIDs: missing}
		}
	}

	goalScore, totalScore, warning := view.computeScores()

	now := m.now()
	commit := TransitionCommit{
		RecordType:    recordType,
		RecordID:      recordID,
		FromStatus:    view.status,
		SeenUpdatedAt: view.updatedAt,
		ToStatus:      rule.to,
		Now:           now,
		GoalScore:     &goalScore,
		TotalScore:    &totalScore,
		Entry: HistoryEntry{
			ID:         uuid.NewString(),
			RecordID:   recordID,
			RecordType: string(recordType),
			Action:     rule.historyAction,
			ActorName:  actor.Name,
			ActorRole:  actor.Role,
			Comments:   feedback,
			TargetRole: rule.targetRole,
			CreatedAt:  now,
		},
	}
	switch action {
	case ActionSubmit:
		commit.SubmittedDate = &now
	case ActionForward:
		commit.CheckedDate = &now
		if feedback != "" {
			commit.CheckerFeedback = &feedback
		}
	case ActionApprove:
		commit.ApprovedDate = &now
		if feedback != "" {
			commit.ApproverFeedback = &feedback
		}
	case ActionReject:
		commit.RejectionReason = &feedback
	}

	if err := m.store.CommitTransition(ctx, commit); err != nil {
		return TransitionResult{}, err
	}

	if m.notify != nil {
		m.notify.TransitionApplied(ctx, TransitionNotice{
			RecordType: recordType,
			RecordID:   recordID,
			EmployeeID: view.employeeID,
			Status:     rule.to,
			ActorRole:  actor.Role,
			TargetRole: rule.targetRole,
			Feedback:   feedback,
		})
	}

	return TransitionResult{
		RecordType: recordType,
		RecordID:   recordID,
		Status:     rule.to,
		GoalScore:  goalScore,
		TotalScore: totalScore,
		Warning:    warning,
	}, nil
}

// alreadyApplied detects an idempotent retry: the record already sits in the
// action's target status and the last history entry carries the same actor
// and feedback signature. The retry is reported as success without writing.
func (m *Machine) alreadyApplied(ctx context.Context, view recordView, action Action, actor Actor, feedback string) (TransitionResult, bool, error) {
	for key, rule := range transitions {
		if key.action != action || rule.to != view.status || rule.actorRole != actor.Role {
			continue
		}
		if rule.actorRole == auth.RoleEmployee && actor.ID != view.employeeID {
			continue
		}
		last, found, err := m.store.LastHistoryEntry(ctx, view.recordType, view.recordID)
		if err != nil {
			return TransitionResult{}, false, err
		}
		if !found {
			return TransitionResult{}, false, nil
		}
		if last.Action == rule.historyAction && last.ActorName == actor.Name && last.ActorRole == actor.Role && last.Comments == feedback {
			return TransitionResult{
				RecordType:     view.recordType,
				RecordID:       view.recordID,
				Status:         view.status,
				TotalScore:     view.totalScore,
				AlreadyApplied: true,
			}, true, nil
		}
		return TransitionResult{}, false, nil
	}
	return TransitionResult{}, false, nil
}

type weightSet struct {
	name   string
	items  []WeightedItem
	target float64
}

// recordView is the type-independent projection the guards and score
// recomputation run against.
type recordView struct {
	recordType    RecordType
	recordID      string
	employeeID    string
	status        Status
	updatedAt     time.Time
	totalScore    float64
	weightSets    []weightSet
	scoredItems   []WeightedItem
	computeScores func() (goal, total float64, warning *FormulaWarning)
}

func (m *Machine) loadView(ctx context.Context, recordType RecordType, recordID string) (recordView, error) {
	switch recordType {
	case RecordTypeBonus:
		record, err := m.store.GetBonus(ctx, recordID)
		if err != nil {
			return recordView{}, err
		}
		return bonusView(record), nil
	case RecordTypeMerit:
		record, err := m.store.GetMerit(ctx, recordID)
		if err != nil {
			return recordView{}, err
		}
		return meritView(record), nil
	}
	return recordView{}, ErrRecordNotFound
}

func bonusView(record BonusRecord) recordView {
	return recordView{
		recordType: RecordTypeBonus,
		recordID:   record.ID,
		employeeID: record.EmployeeID,
		status:     record.Status,
		updatedAt:  record.UpdatedAt,
		totalScore: record.TotalScore,
		weightSets: []weightSet{
			{name: "KPI items", items: record.Items, target: WeightTarget},
		},
		scoredItems: record.Items,
		computeScores: func() (float64, float64, *FormulaWarning) {
			goal := AggregateItems(record.Items)
			inputs := FinalScoreInputs{GoalScore: goal}
			if record.SelfScore != nil {
				inputs.SelfScore = *record.SelfScore
			}
			if record.FeedbackScore != nil {
				inputs.FeedbackScore = *record.FeedbackScore
			}
			total, warning := EvaluateFormula(record.Formula, inputs)
			return goal, total, warning
		},
	}
}

func meritView(record MeritRecord) recordView {
	// The record-level component split is validated as a weighted set of
	// its own, then each sub-collection against its allotted share.
	components := []WeightedItem{
		{ID: "kpi", Weight: record.KPIWeight},
		{ID: "competency", Weight: record.CompetencyWeight},
		{ID: "culture", Weight: record.CultureWeight},
	}
	scored := make([]WeightedItem, 0, len(record.CompetencyItems)+len(record.CultureItems))
	scored = append(scored, record.CompetencyItems...)
	scored = append(scored, record.CultureItems...)
	return recordView{
		recordType: RecordTypeMerit,
		recordID:   record.ID,
		employeeID: record.EmployeeID,
		status:     record.Status,
		updatedAt:  record.UpdatedAt,
		totalScore: record.TotalScore,
		weightSets: []weightSet{
			{name: "merit components", items: components, target: WeightTarget},
			{name: "competency items", items: record.CompetencyItems, target: record.CompetencyWeight},
			{name: "culture items", items: record.CultureItems, target: record.CultureWeight},
		},
		scoredItems: scored,
		computeScores: func() (float64, float64, *FormulaWarning) {
			total := MeritTotal(record)
			return record.KPIScore / 100 * record.KPIWeight, total, nil
		},
	}
}
