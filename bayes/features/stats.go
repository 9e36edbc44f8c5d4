// Package features gathers feature statistics from labeled documents and
// selects the features associated with a category by a chi-square test.
package features

import (
	"sort"

	"github.com/hickeroar/nbayes/bayes/category"
	"github.com/hickeroar/nbayes/tokenizer"
)

// FeatureStats holds the corpus counts needed for feature selection and training.
type FeatureStats struct {
	N              int                       // Number of observed documents
	CategoryCounts *category.Categories      // Documents per category, in first-seen order
	JointCounts    map[string]map[string]int // Feature -> category -> documents containing the feature
}

// NewFeatureStats returns an empty FeatureStats.
func NewFeatureStats() *FeatureStats {
	return &FeatureStats{
		CategoryCounts: category.NewCategories(),
		JointCounts:    make(map[string]map[string]int),
	}
}

// Collect builds the feature statistics of a labeled corpus.
func Collect(docs []tokenizer.Document) *FeatureStats {
	stats := NewFeatureStats()
	for _, doc := range docs {
		stats.Add(doc)
	}
	return stats
}

// Add records one labeled document.
func (s *FeatureStats) Add(doc tokenizer.Document) {
	s.N++
	s.CategoryCounts.Observe(doc.Category)

	for feature, count := range doc.Tokens {
		if count <= 0 {
			continue
		}

		joint, ok := s.JointCounts[feature]
		if !ok {
			joint = make(map[string]int)
			s.JointCounts[feature] = joint
		}
		joint[doc.Category]++
	}
}

// JointCount returns how many documents of cat contain feature.
func (s *FeatureStats) JointCount(feature, cat string) int {
	return s.JointCounts[feature][cat]
}

// Len returns the number of distinct features.
func (s *FeatureStats) Len() int {
	return len(s.JointCounts)
}

// Features returns the feature names in lexical order.
func (s *FeatureStats) Features() []string {
	names := make([]string, 0, len(s.JointCounts))
	for feature := range s.JointCounts {
		names = append(names, feature)
	}
	sort.Strings(names)
	return names
}
