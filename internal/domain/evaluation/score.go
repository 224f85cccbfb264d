package evaluation

// NormalizeScore rescales a raw rating to the 0-100 range. A maxScore of
// zero (or less) means the raw value is already a percentage.
func NormalizeScore(raw, maxScore float64) float64 {
	if maxScore <= 0 {
		maxScore = 100
	}
	return raw / maxScore * 100
}

// AggregateItems computes the weighted, scale-normalized sub-score of a
// collection: each item contributes (normalized achievement / 100) * weight.
// Unscored items contribute zero so partially-scored drafts aggregate
// deterministically; completeness is enforced separately at submission.
func AggregateItems(items []WeightedItem) float64 {
	total := 0.0
	for _, item := range items {
		if item.Achievement == nil {
			continue
		}
		total += NormalizeScore(*item.Achievement, item.MaxScore) / 100 * item.Weight
	}
	return total
}

// IncompleteItemIDs lists the items still missing an achievement value.
func IncompleteItemIDs(items []WeightedItem) []string {
	var missing []string
	for _, item := range items {
		if item.Achievement == nil {
			missing = append(missing, item.ID)
		}
	}
	return missing
}

// MeritTotal sums the three merit components. Each sub-collection already
// aggregates onto its own weight share, and the component weights partition
// 100 at the record level, so the plain sum is the composite score.
func MeritTotal(record MeritRecord) float64 {
	kpi := record.KPIScore / 100 * record.KPIWeight
	return kpi + AggregateItems(record.CompetencyItems) + AggregateItems(record.CultureItems)
}
