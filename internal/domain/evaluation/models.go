package evaluation

import (
	"time"

	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/domain/audit"
)

// WeightedItem is the shape shared by KPI, competency and culture items.
// Weight is a percentage share of the collection's allotment. Achievement is
// the measured score on the item's own rating scale and stays nil until the
// employee self-assesses.
type WeightedItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Weight      float64  `json:"weight"`
	Achievement *float64 `json:"achievement"`
	// MaxScore is the rating-scale maximum for Achievement (5 for a 1-5
	// competency scale). Zero means the item is scored as a percentage.
	MaxScore float64 `json:"maxScore,omitempty"`
}

// Workflow holds the approval-pipeline fields shared by both record kinds.
type Workflow struct {
	Status           Status     `json:"status"`
	SubmittedDate    *time.Time `json:"submittedDate,omitempty"`
	CheckedDate      *time.Time `json:"checkedDate,omitempty"`
	ApprovedDate     *time.Time `json:"approvedDate,omitempty"`
	CheckerFeedback  string     `json:"checkerFeedback,omitempty"`
	ApproverFeedback string     `json:"approverFeedback,omitempty"`
	RejectionReason  string     `json:"rejectionReason,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// BonusRecord is a weighted set of quantitative KPI items whose weights must
// sum to 100 before the record may leave draft.
type BonusRecord struct {
	ID         string         `json:"id"`
	EmployeeID string         `json:"employeeId"`
	Period     string         `json:"period"`
	Items      []WeightedItem `json:"items"`
	// SelfScore and FeedbackScore are 0-100 inputs to the final-score
	// formula; GoalScore is aggregated from Items.
	SelfScore     *float64 `json:"selfScore,omitempty"`
	FeedbackScore *float64 `json:"feedbackScore,omitempty"`
	Formula       string   `json:"formula,omitempty"`
	GoalScore     float64  `json:"goalScore"`
	TotalScore    float64  `json:"totalScore"`
	Workflow
}

// MeritRecord is the composite of KPI achievement, competency and culture
// components. The three component weights partition 100 at the record level;
// each item sub-collection must sum to its component's share.
type MeritRecord struct {
	ID               string         `json:"id"`
	EmployeeID       string         `json:"employeeId"`
	Period           string         `json:"period"`
	KPIWeight        float64        `json:"kpiWeight"`
	KPIScore         float64        `json:"kpiScore"`
	CompetencyWeight float64        `json:"competencyWeight"`
	CompetencyItems  []WeightedItem `json:"competencyItems"`
	CultureWeight    float64        `json:"cultureWeight"`
	CultureItems     []WeightedItem `json:"cultureItems"`
	TotalScore       float64        `json:"totalScore"`
	Workflow
}

// HistoryEntry is one append-only approval-trail row.
type HistoryEntry = audit.Entry

// FinalScoreInputs are the named variables available to a final-score
// formula, each already normalized to the 0-100 scale.
type FinalScoreInputs struct {
	GoalScore     float64 `json:"goalScore"`
	SelfScore     float64 `json:"selfScore"`
	FeedbackScore float64 `json:"feedbackScore"`
}

// Actor is the resolved identity performing a transition.
type Actor struct {
	ID   string
	Name string
	Role string
}
