package bayes

import (
	"fmt"
	"sync/atomic"
)

// Classifier holds the current trained model. Retraining builds a fresh
// KnowledgeBase and swaps it in, so readers never see a partial model.
type Classifier struct {
	model    atomic.Pointer[KnowledgeBase]
	defaults []TrainOption
}

// NewClassifier returns an untrained classifier.
// The options apply to every Train call before any per-call options.
func NewClassifier(defaults ...TrainOption) *Classifier {
	return &Classifier{
		defaults: append([]TrainOption(nil), defaults...),
	}
}

// Train builds a new model from ds and makes it current.
func (c *Classifier) Train(ds *Dataset, opts ...TrainOption) (*KnowledgeBase, error) {
	all := make([]TrainOption, 0, len(c.defaults)+len(opts))
	all = append(all, c.defaults...)
	all = append(all, opts...)

	kb, err := Train(ds, all...)
	if err != nil {
		return nil, err
	}

	c.model.Store(kb)
	return kb, nil
}

// Use makes an already trained model current.
func (c *Classifier) Use(kb *KnowledgeBase) {
	c.model.Store(kb)
}

// KnowledgeBase returns the current model, or nil before training.
func (c *Classifier) KnowledgeBase() *KnowledgeBase {
	return c.model.Load()
}

// Trained reports whether a model is available.
func (c *Classifier) Trained() bool {
	return c.model.Load() != nil
}

// Predict returns the most likely category of text under the current model.
func (c *Classifier) Predict(text string) (string, error) {
	kb := c.model.Load()
	if kb == nil {
		return "", fmt.Errorf("%w: knowledge base missing, train the classifier first", ErrInvalidState)
	}
	return kb.Predict(text)
}

// Score returns per-category log-posteriors of text under the current model.
func (c *Classifier) Score(text string) (map[string]float64, error) {
	kb := c.model.Load()
	if kb == nil {
		return nil, fmt.Errorf("%w: knowledge base missing, train the classifier first", ErrInvalidState)
	}
	return kb.Score(text)
}

// Flush drops the current model.
func (c *Classifier) Flush() {
	c.model.Store(nil)
}
