package evaluation

import (
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNormalizeScore(t *testing.T) {
	if got := NormalizeScore(4, 5); got != 80 {
		t.Fatalf("expected 80, got %v", got)
	}
	// Zero max means the raw value is already a percentage.
	if got := NormalizeScore(75, 0); got != 75 {
		t.Fatalf("expected 75, got %v", got)
	}
}

func TestAggregateItemsWeightedContributions(t *testing.T) {
	items := []WeightedItem{
		{Weight: 40, Achievement: ptr(90), MaxScore: 100},
		{Weight: 35, Achievement: ptr(80), MaxScore: 100},
		{Weight: 25, Achievement: ptr(72), MaxScore: 100},
	}
	got := AggregateItems(items)
	want := 0.9*40 + 0.8*35 + 0.72*25
	if !almostEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAggregateItemsNormalizesRatingScale(t *testing.T) {
	// 4 out of 5 on a 25% item contributes (4/5)*25 = 20.
	items := []WeightedItem{{Weight: 25, Achievement: ptr(4), MaxScore: 5}}
	if got := AggregateItems(items); !almostEqual(got, 20) {
		t.Fatalf("expected 20, got %v", got)
	}
}

func TestAggregateItemsSkipsUnscored(t *testing.T) {
	items := []WeightedItem{
		{Weight: 50, Achievement: ptr(100)},
		{Weight: 50, Achievement: nil},
	}
	if got := AggregateItems(items); !almostEqual(got, 50) {
		t.Fatalf("expected unscored item to contribute zero, got %v", got)
	}
}

func TestIncompleteItemIDs(t *testing.T) {
	items := []WeightedItem{
		{ID: "a", Achievement: ptr(1)},
		{ID: "b"},
		{ID: "c"},
	}
	missing := IncompleteItemIDs(items)
	if len(missing) != 2 || missing[0] != "b" || missing[1] != "c" {
		t.Fatalf("expected [b c], got %v", missing)
	}
}

func TestMeritTotalCompositesComponents(t *testing.T) {
	record := MeritRecord{
		KPIWeight: 50,
		KPIScore:  80,
		CompetencyItems: []WeightedItem{
			{Weight: 30, Achievement: ptr(4), MaxScore: 5},
		},
		CultureItems: []WeightedItem{
			{Weight: 20, Achievement: ptr(100)},
		},
	}
	// 0.8*50 + 0.8*30 + 1.0*20 = 84
	if got := MeritTotal(record); !almostEqual(got, 84) {
		t.Fatalf("expected 84, got %v", got)
	}
}
