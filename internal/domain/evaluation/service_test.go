package evaluation

import (
	"context"
	"errors"
	"testing"
)

func TestCreateBonusStartsInDraftWithAggregatedGoal(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newTestMachine(store))

	record, err := svc.CreateBonus(context.Background(), BonusDraft{
		EmployeeID: "emp-1",
		Period:     "2026-H1",
		Items: []WeightedItem{
			{Name: "Revenue", Weight: 60, Achievement: ptr(90)},
			{Name: "Quality", Weight: 40},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if record.Status != StatusDraft {
		t.Fatalf("expected draft, got %s", record.Status)
	}
	if record.ID == "" {
		t.Fatal("expected generated id")
	}
	for _, item := range record.Items {
		if item.ID == "" {
			t.Fatal("expected generated item ids")
		}
	}
	// Only the scored item contributes: 0.9 * 60.
	if !almostEqual(record.GoalScore, 54) {
		t.Fatalf("expected goal score 54, got %v", record.GoalScore)
	}
}

func TestUpdateBonusItemsRecomputesGoalScore(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newTestMachine(store))
	store.bonus["b1"] = completeBonus("b1")

	record, err := svc.UpdateBonusItems(context.Background(), "b1", BonusDraft{
		Period: "2026-H1",
		Items: []WeightedItem{
			{ID: "i1", Name: "Revenue", Weight: 100, Achievement: ptr(70)},
		},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !almostEqual(record.GoalScore, 70) {
		t.Fatalf("expected goal score 70, got %v", record.GoalScore)
	}
}

func TestUpdateBonusItemsRejectedOutsideDraft(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newTestMachine(store))
	record := completeBonus("b1")
	record.Status = StatusPendingChecker
	store.bonus["b1"] = record

	_, err := svc.UpdateBonusItems(context.Background(), "b1", BonusDraft{Items: record.Items})
	if !errors.Is(err, ErrNotEditable) {
		t.Fatalf("expected ErrNotEditable, got %v", err)
	}
}

func TestCreateMeritComputesCompositeTotal(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newTestMachine(store))

	record, err := svc.CreateMerit(context.Background(), MeritDraft{
		EmployeeID:       "emp-1",
		Period:           "2026",
		KPIWeight:        50,
		KPIScore:         80,
		CompetencyWeight: 30,
		CompetencyItems: []WeightedItem{
			{Name: "Leadership", Weight: 30, Achievement: ptr(4), MaxScore: 5},
		},
		CultureWeight: 20,
		CultureItems: []WeightedItem{
			{Name: "Teamwork", Weight: 20, Achievement: ptr(100)},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !almostEqual(record.TotalScore, 84) {
		t.Fatalf("expected total 84, got %v", record.TotalScore)
	}
}
