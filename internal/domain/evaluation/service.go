package evaluation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service owns record management around the workflow: drafting, item edits
// and reads. Transitions go through the Machine.
type Service struct {
	Store   Store
	Machine *Machine
}

func NewService(store Store, machine *Machine) *Service {
	return &Service{Store: store, Machine: machine}
}

type BonusDraft struct {
	EmployeeID    string
	Period        string
	Items         []WeightedItem
	SelfScore     *float64
	FeedbackScore *float64
	Formula       string
}

func (s *Service) CreateBonus(ctx context.Context, draft BonusDraft) (BonusRecord, error) {
	now := time.Now()
	record := BonusRecord{
		ID:            uuid.NewString(),
		EmployeeID:    draft.EmployeeID,
		Period:        draft.Period,
		Items:         withItemIDs(draft.Items),
		SelfScore:     draft.SelfScore,
		FeedbackScore: draft.FeedbackScore,
		Formula:       strings.TrimSpace(draft.Formula),
		Workflow: Workflow{
			Status:    StatusDraft,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	record.GoalScore = AggregateItems(record.Items)
	if err := s.Store.CreateBonus(ctx, record); err != nil {
		return BonusRecord{}, err
	}
	return record, nil
}

func (s *Service) UpdateBonusItems(ctx context.Context, recordID string, draft BonusDraft) (BonusRecord, error) {
	record, err := s.Store.GetBonus(ctx, recordID)
	if err != nil {
		return BonusRecord{}, err
	}
	record.Period = draft.Period
	record.Items = withItemIDs(draft.Items)
	record.SelfScore = draft.SelfScore
	record.FeedbackScore = draft.FeedbackScore
	record.Formula = strings.TrimSpace(draft.Formula)
	record.GoalScore = AggregateItems(record.Items)
	if err := s.Store.UpdateBonusDraft(ctx, record); err != nil {
		return BonusRecord{}, err
	}
	return s.Store.GetBonus(ctx, recordID)
}

type MeritDraft struct {
	EmployeeID       string
	Period           string
	KPIWeight        float64
	KPIScore         float64
	CompetencyWeight float64
	CompetencyItems  []WeightedItem
	CultureWeight    float64
	CultureItems     []WeightedItem
}

func (s *Service) CreateMerit(ctx context.Context, draft MeritDraft) (MeritRecord, error) {
	now := time.Now()
	record := MeritRecord{
		ID:               uuid.NewString(),
		EmployeeID:       draft.EmployeeID,
		Period:           draft.Period,
		KPIWeight:        draft.KPIWeight,
		KPIScore:         draft.KPIScore,
		CompetencyWeight: draft.CompetencyWeight,
		CompetencyItems:  withItemIDs(draft.CompetencyItems),
		CultureWeight:    draft.CultureWeight,
		CultureItems:     withItemIDs(draft.CultureItems),
		Workflow: Workflow{
			Status:    StatusDraft,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	record.TotalScore = MeritTotal(record)
	if err := s.Store.CreateMerit(ctx, record); err != nil {
		return MeritRecord{}, err
	}
	return record, nil
}

func (s *Service) UpdateMeritItems(ctx context.Context, recordID string, draft MeritDraft) (MeritRecord, error) {
	record, err := s.Store.GetMerit(ctx, recordID)
	if err != nil {
		return MeritRecord{}, err
	}
	record.Period = draft.Period
	record.KPIWeight = draft.KPIWeight
	record.KPIScore = draft.KPIScore
	record.CompetencyWeight = draft.CompetencyWeight
	record.CompetencyItems = withItemIDs(draft.CompetencyItems)
	record.CultureWeight = draft.CultureWeight
	record.CultureItems = withItemIDs(draft.CultureItems)
	record.TotalScore = MeritTotal(record)
	if err := s.Store.UpdateMeritDraft(ctx, record); err != nil {
		return MeritRecord{}, err
	}
	return s.Store.GetMerit(ctx, recordID)
}

func (s *Service) GetBonus(ctx context.Context, recordID string) (BonusRecord, error) {
	return s.Store.GetBonus(ctx, recordID)
}

func (s *Service) GetMerit(ctx context.Context, recordID string) (MeritRecord, error) {
	return s.Store.GetMerit(ctx, recordID)
}

func (s *Service) ListBonus(ctx context.Context, employeeID string) ([]BonusRecord, error) {
	return s.Store.ListBonus(ctx, employeeID)
}

func (s *Service) ListMerit(ctx context.Context, employeeID string) ([]MeritRecord, error) {
	return s.Store.ListMerit(ctx, employeeID)
}

func (s *Service) History(ctx context.Context, recordType RecordType, recordID string) ([]HistoryEntry, error) {
	return s.Store.History(ctx, recordType, recordID)
}

func withItemIDs(items []WeightedItem) []WeightedItem {
	out := make([]WeightedItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	return out
}
