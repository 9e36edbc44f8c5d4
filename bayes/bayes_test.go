package bayes

import (
	"errors"
	"sync"
	"testing"
)

func TestPredictBeforeTrainingFails(t *testing.T) {
	classifier := NewClassifier()

	if _, err := classifier.Predict("anything"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := classifier.Score("anything"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState from score, got %v", err)
	}
	if classifier.Trained() {
		t.Fatal("expected untrained classifier")
	}

	var kb *KnowledgeBase
	if _, err := kb.Predict("anything"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState from nil knowledge base, got %v", err)
	}
}

func TestTrainPredictFlushLifecycle(t *testing.T) {
	classifier := NewClassifier(WithCriticalValue(0))

	kb, err := classifier.Train(DatasetFromMap(map[string][]string{
		"spam": {"free prize click now", "win free money"},
		"ham":  {"team meeting schedule project", "project status meeting"},
	}))
	if err != nil {
		t.Fatalf("unexpected train error: %v", err)
	}
	if classifier.KnowledgeBase() != kb {
		t.Fatal("expected trained model to become current")
	}

	got, err := classifier.Predict("free prize now")
	if err != nil {
		t.Fatalf("unexpected predict error: %v", err)
	}
	if got != "spam" {
		t.Fatalf("unexpected classification: got %q, want %q", got, "spam")
	}

	scores, err := classifier.Score("meeting schedule")
	if err != nil {
		t.Fatalf("unexpected score error: %v", err)
	}
	if scores["ham"] <= scores["spam"] {
		t.Fatalf("expected ham score to be greater for ham text: ham=%f spam=%f", scores["ham"], scores["spam"])
	}

	classifier.Flush()
	if _, err := classifier.Predict("free prize"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after flush, got %v", err)
	}

	classifier.Use(kb)
	if !classifier.Trained() {
		t.Fatal("expected Use to restore the model")
	}
}

func TestRetrainingKeepsOldModelIntact(t *testing.T) {
	classifier := NewClassifier(WithCriticalValue(0))

	first, err := classifier.Train(DatasetFromMap(map[string][]string{
		"cat1": {"a a b"},
		"cat2": {"c c d"},
	}))
	if err != nil {
		t.Fatalf("unexpected train error: %v", err)
	}

	second, err := classifier.Train(DatasetFromMap(map[string][]string{
		"x": {"q"},
		"y": {"r"},
	}))
	if err != nil {
		t.Fatalf("unexpected train error: %v", err)
	}

	if first == second || first.ID == second.ID {
		t.Fatal("expected retraining to produce a new model")
	}
	if got, _ := first.Predict("a a a"); got != "cat1" {
		t.Fatalf("expected old model to remain usable, got %q", got)
	}
	if got, _ := classifier.Predict("q"); got != "x" {
		t.Fatalf("expected classifier to use new model, got %q", got)
	}
}

func TestFailedTrainKeepsCurrentModel(t *testing.T) {
	classifier := NewClassifier()
	kb, err := classifier.Train(DatasetFromMap(map[string][]string{"cat1": {"a"}, "cat2": {"b"}}))
	if err != nil {
		t.Fatalf("unexpected train error: %v", err)
	}

	_, err = classifier.Train(DatasetFromMap(map[string][]string{"cat1": {"a"}}), WithPriors(map[string]float64{"cat1": 2}))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if classifier.KnowledgeBase() != kb {
		t.Fatal("expected failed training to leave the current model in place")
	}
}

func TestClassifyTieBreaksDeterministically(t *testing.T) {
	classifier := NewClassifier(WithCriticalValue(0))
	if _, err := classifier.Train(DatasetFromMap(map[string][]string{
		"zeta":  {"shared"},
		"alpha": {"shared"},
	})); err != nil {
		t.Fatalf("unexpected train error: %v", err)
	}

	got, err := classifier.Predict("shared")
	if err != nil {
		t.Fatalf("unexpected predict error: %v", err)
	}
	if got != "alpha" {
		t.Fatalf("expected deterministic lexical tie break to alpha, got %q", got)
	}

	ordered := NewDataset()
	ordered.Add("zeta", "shared")
	ordered.Add("alpha", "shared")
	if _, err := classifier.Train(ordered); err != nil {
		t.Fatalf("unexpected train error: %v", err)
	}
	if got, _ := classifier.Predict("shared"); got != "zeta" {
		t.Fatalf("expected insertion-order tie break to zeta, got %q", got)
	}
}

func TestConcurrentPredictAndRetrain(t *testing.T) {
	classifier := NewClassifier(WithCriticalValue(0))
	samples := map[string][]string{
		"spam": {"buy now buy now", "cheap pills now"},
		"ham":  {"lunch with team", "project meeting notes"},
	}
	if _, err := classifier.Train(DatasetFromMap(samples)); err != nil {
		t.Fatalf("unexpected train error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := classifier.Train(DatasetFromMap(samples)); err != nil {
				t.Errorf("unexpected train error: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			got, err := classifier.Predict("buy cheap pills")
			if err != nil {
				t.Errorf("unexpected predict error: %v", err)
				return
			}
			if got != "spam" {
				t.Errorf("unexpected prediction: got %q", got)
			}
		}()
	}
	wg.Wait()
}

func TestDatasetPreservesInsertionOrder(t *testing.T) {
	ds := NewDataset()
	ds.Add("b", "one")
	ds.Add("a", "two", "three")
	ds.Add("b", "four")

	names := ds.Categories()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("unexpected category order: %v", names)
	}
	if ds.Len() != 4 {
		t.Fatalf("unexpected example count: got %d, want 4", ds.Len())
	}
	if got := ds.Examples("b"); len(got) != 2 || got[1] != "four" {
		t.Fatalf("unexpected examples for b: %v", got)
	}
}
