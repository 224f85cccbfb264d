package evaluation

import "math"

// weightEpsilon absorbs float accumulation noise when comparing a weight
// total against its target.
const weightEpsilon = 1e-9

// WeightCheck is the outcome of validating a weighted set against a target.
// Delta is signed (target - total) so callers can report "under by X%" or
// "over by X%".
type WeightCheck struct {
	Valid bool    `json:"valid"`
	Total float64 `json:"total"`
	Delta float64 `json:"delta"`
}

// ValidateWeights sums the item weights and compares against target. Weights
// must be finite and non-negative; an offending weight marks the set invalid
// but is still excluded from the reported total. An empty set totals zero
// and is only valid when the target is zero.
func ValidateWeights(items []WeightedItem, target float64) WeightCheck {
	total := 0.0
	wellFormed := true
	for _, item := range items {
		if math.IsNaN(item.Weight) || math.IsInf(item.Weight, 0) || item.Weight < 0 {
			wellFormed = false
			continue
		}
		total += item.Weight
	}
	delta := target - total
	return WeightCheck{
		Valid: wellFormed && math.Abs(delta) <= weightEpsilon,
		Total: total,
		Delta: delta,
	}
}
