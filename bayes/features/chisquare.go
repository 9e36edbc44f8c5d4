package features

// Chi-square critical values for one degree of freedom.
const (
	CriticalValueP001 = 10.83
	CriticalValueP01  = 6.63
	CriticalValueP05  = 3.84

	DefaultCriticalValue = CriticalValueP001
)

// ChiSquareStatistic computes the chi-square statistic of a 2x2 contingency table
// over n observations. n11 counts documents with the feature in the category,
// n10 with the feature outside it, n01 without the feature in the category and
// n00 without the feature outside it. It reports false when a marginal is zero.
func ChiSquareStatistic(n, n11, n10, n01, n00 int) (float64, bool) {
	denominator := float64(n11+n01) * float64(n11+n10) * float64(n10+n00) * float64(n01+n00)
	if denominator == 0 {
		return 0, false
	}

	diff := float64(n11)*float64(n00) - float64(n10)*float64(n01)
	return float64(n) * diff * diff / denominator, true
}

// ChiSquare scores every feature against every category it occurs in and
// returns the features whose best score reaches criticalValue, mapped to that
// best score. Degenerate tables never select a feature.
func ChiSquare(stats *FeatureStats, criticalValue float64) map[string]float64 {
	selected := make(map[string]float64)

	for feature, categoryList := range stats.JointCounts {
		n1dot := 0
		for _, count := range categoryList {
			n1dot += count
		}
		n0dot := stats.N - n1dot

		for cat, n11 := range categoryList {
			n01 := stats.CategoryCounts.Count(cat) - n11
			n00 := n0dot - n01
			n10 := n1dot - n11

			score, ok := ChiSquareStatistic(stats.N, n11, n10, n01, n00)
			if !ok || score < criticalValue {
				continue
			}

			if previous, seen := selected[feature]; !seen || score > previous {
				selected[feature] = score
			}
		}
	}

	return selected
}

// Select returns a copy of stats restricted to the selected features.
// stats itself is left untouched.
func Select(stats *FeatureStats, selected map[string]float64) *FeatureStats {
	filtered := &FeatureStats{
		N:              stats.N,
		CategoryCounts: stats.CategoryCounts.Clone(),
		JointCounts:    make(map[string]map[string]int, len(selected)),
	}

	for feature, categoryList := range stats.JointCounts {
		if _, ok := selected[feature]; !ok {
			continue
		}

		joint := make(map[string]int, len(categoryList))
		for cat, count := range categoryList {
			joint[cat] = count
		}
		filtered.JointCounts[feature] = joint
	}

	return filtered
}
