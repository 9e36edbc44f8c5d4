package features

import (
	"math"
	"reflect"
	"testing"

	"github.com/hickeroar/nbayes/tokenizer"
)

// labeled tokenizes text and attaches cat.
func labeled(cat, text string) tokenizer.Document {
	doc := tokenizer.Tokenize(text)
	doc.Category = cat
	return doc
}

// TestCollectCountsDocumentsAndFeatures verifies collect counts documents and features.
func TestCollectCountsDocumentsAndFeatures(t *testing.T) {
	stats := Collect([]tokenizer.Document{
		labeled("cat1", "a a b"),
		labeled("cat2", "c c d"),
		labeled("cat1", "a"),
	})

	if stats.N != 3 {
		t.Fatalf("unexpected observation count: got %d, want 3", stats.N)
	}
	if got := stats.CategoryCounts.Count("cat1"); got != 2 {
		t.Fatalf("unexpected cat1 document count: got %d, want 2", got)
	}
	if got := stats.CategoryCounts.Names(); !reflect.DeepEqual(got, []string{"cat1", "cat2"}) {
		t.Fatalf("unexpected category order: %v", got)
	}

	want := map[string]map[string]int{
		"a": {"cat1": 2},
		"b": {"cat1": 1},
		"c": {"cat2": 1},
		"d": {"cat2": 1},
	}
	if !reflect.DeepEqual(stats.JointCounts, want) {
		t.Fatalf("unexpected joint counts: got %v, want %v", stats.JointCounts, want)
	}
	if stats.JointCount("a", "cat2") != 0 {
		t.Fatal("expected zero joint count for unseen pair")
	}
	if got := stats.Features(); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Fatalf("unexpected feature list: %v", got)
	}
}

// TestCollectEveryCategoryInJointCountsIsCounted verifies every joint-count category is a known category.
func TestCollectEveryCategoryInJointCountsIsCounted(t *testing.T) {
	stats := Collect([]tokenizer.Document{
		labeled("x", "one two"),
		labeled("y", "two three"),
		labeled("z", ""),
	})

	for feature, joint := range stats.JointCounts {
		for cat := range joint {
			if stats.CategoryCounts.Count(cat) == 0 {
				t.Fatalf("feature %q references unknown category %q", feature, cat)
			}
		}
	}
	if stats.CategoryCounts.Count("z") != 1 {
		t.Fatal("expected empty document to still count toward its category")
	}
}

// TestCollectEmptyCorpus verifies collect empty corpus.
func TestCollectEmptyCorpus(t *testing.T) {
	stats := Collect(nil)
	if stats.N != 0 || stats.Len() != 0 || stats.CategoryCounts.Len() != 0 {
		t.Fatalf("expected empty stats, got n=%d features=%d categories=%d", stats.N, stats.Len(), stats.CategoryCounts.Len())
	}
}

// TestChiSquareStatistic verifies chi square statistic.
func TestChiSquareStatistic(t *testing.T) {
	score, ok := ChiSquareStatistic(10, 3, 2, 1, 4)
	if !ok {
		t.Fatal("expected defined statistic")
	}
	if math.Abs(score-10.0*100.0/600.0) > 1e-12 {
		t.Fatalf("unexpected statistic: got %f", score)
	}

	if _, ok := ChiSquareStatistic(4, 2, 2, 0, 0); ok {
		t.Fatal("expected degenerate table to be undefined")
	}
}

// TestChiSquareSelectsAllWithZeroCriticalValue verifies chi square selects all with zero critical value.
func TestChiSquareSelectsAllWithZeroCriticalValue(t *testing.T) {
	stats := Collect([]tokenizer.Document{
		labeled("cat1", "a a b"),
		labeled("cat2", "c c d"),
	})

	selected := ChiSquare(stats, 0)
	for _, feature := range []string{"a", "b", "c", "d"} {
		score, ok := selected[feature]
		if !ok {
			t.Fatalf("expected feature %q to be selected", feature)
		}
		if score != 2 {
			t.Fatalf("unexpected score for %q: got %f, want 2", feature, score)
		}
	}
}

// TestChiSquarePerfectFeatureBeatsUniform verifies a perfectly correlated feature outscores a uniform one.
func TestChiSquarePerfectFeatureBeatsUniform(t *testing.T) {
	stats := Collect([]tokenizer.Document{
		labeled("a", "x u"),
		labeled("a", "x"),
		labeled("b", "y u"),
		labeled("b", "y"),
	})

	selected := ChiSquare(stats, 0)
	if selected["x"] != 4 {
		t.Fatalf("unexpected score for correlated feature: got %f, want 4", selected["x"])
	}
	uniform, ok := selected["u"]
	if !ok {
		t.Fatal("expected uniform feature to be scored with zero critical value")
	}
	if selected["x"] <= uniform {
		t.Fatalf("expected correlated score %f to exceed uniform score %f", selected["x"], uniform)
	}

	strict := ChiSquare(stats, 1)
	if _, ok := strict["u"]; ok {
		t.Fatal("expected uniform feature to fail a positive critical value")
	}
	if _, ok := strict["x"]; !ok {
		t.Fatal("expected correlated feature to pass a positive critical value")
	}
}

// TestChiSquareDegenerateNeverSelects verifies degenerate tables are not selected even at zero.
func TestChiSquareDegenerateNeverSelects(t *testing.T) {
	stats := Collect([]tokenizer.Document{
		labeled("a", "shared x"),
		labeled("b", "shared y"),
	})

	selected := ChiSquare(stats, 0)
	if _, ok := selected["shared"]; ok {
		t.Fatal("expected feature present in every document to be rejected")
	}
}

// TestChiSquareKeepsMaximumScore verifies chi square keeps maximum score.
func TestChiSquareKeepsMaximumScore(t *testing.T) {
	stats := Collect([]tokenizer.Document{
		labeled("a", "f"),
		labeled("a", "f"),
		labeled("a", "g"),
		labeled("b", "f"),
		labeled("b", "g"),
		labeled("c", "g"),
	})

	selected := ChiSquare(stats, 0)
	best := 0.0
	n1dot := 3
	n0dot := stats.N - n1dot
	for _, cat := range []string{"a", "b"} {
		n11 := stats.JointCount("f", cat)
		n01 := stats.CategoryCounts.Count(cat) - n11
		score, ok := ChiSquareStatistic(stats.N, n11, n1dot-n11, n01, n0dot-n01)
		if ok && score > best {
			best = score
		}
	}
	if math.Abs(selected["f"]-best) > 1e-12 {
		t.Fatalf("expected max score %f, got %f", best, selected["f"])
	}
}

// TestSelectReturnsFilteredCopy verifies select returns filtered copy.
func TestSelectReturnsFilteredCopy(t *testing.T) {
	stats := Collect([]tokenizer.Document{
		labeled("cat1", "a b"),
		labeled("cat2", "c"),
	})

	filtered := Select(stats, map[string]float64{"a": 2})

	if filtered.Len() != 1 {
		t.Fatalf("expected one retained feature, got %d", filtered.Len())
	}
	if filtered.JointCount("a", "cat1") != 1 {
		t.Fatal("expected retained feature to keep its counts")
	}
	if filtered.N != stats.N || filtered.CategoryCounts.Total() != stats.CategoryCounts.Total() {
		t.Fatal("expected observation and category counts to be preserved")
	}

	filtered.JointCounts["a"]["cat1"] = 99
	filtered.CategoryCounts.Observe("cat3")
	if stats.Len() != 3 {
		t.Fatalf("expected original stats untouched, got %d features", stats.Len())
	}
	if stats.JointCount("a", "cat1") != 1 {
		t.Fatal("expected original joint counts untouched")
	}
	if stats.CategoryCounts.Len() != 2 {
		t.Fatal("expected original categories untouched")
	}
}
