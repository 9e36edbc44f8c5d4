package bayes

import (
	"fmt"
	"sort"

	"github.com/hickeroar/nbayes/tokenizer"
)

// KnowledgeBase is a trained multinomial Naive Bayes model. It is never
// modified after Train returns it, so it may be shared between goroutines.
type KnowledgeBase struct {
	ID             string                        // Unique identifier assigned at training time
	N              int                           // Number of training observations
	C              int                           // Number of categories
	D              int                           // Number of retained features
	Categories     []string                      // Category evaluation order
	Documents      map[string]int                // Category -> training documents
	LogPriors      map[string]float64            // Category -> log P(category)
	LogLikelihoods map[string]map[string]float64 // Feature -> category -> log P(feature|category)

	tokenizer *tokenizer.Tokenizer
}

// Tokenizer returns the tokenizer used to build this model.
func (kb *KnowledgeBase) Tokenizer() *tokenizer.Tokenizer {
	if kb.tokenizer == nil {
		return tokenizer.Default
	}
	return kb.tokenizer
}

// Predict returns the category with the highest log-posterior for text.
func (kb *KnowledgeBase) Predict(text string) (string, error) {
	if kb == nil {
		return "", fmt.Errorf("%w: train a classifier before predicting", ErrInvalidState)
	}
	return kb.PredictDocument(kb.Tokenizer().Tokenize(text)), nil
}

// PredictDocument returns the best scoring category for an already tokenized
// document. Ties go to the category evaluated first.
func (kb *KnowledgeBase) PredictDocument(doc tokenizer.Document) string {
	if len(kb.Categories) == 0 {
		return ""
	}

	features := kb.knownFeatures(doc.Tokens)

	best := kb.Categories[0]
	bestScore := kb.logPosterior(best, features)
	for _, cat := range kb.Categories[1:] {
		score := kb.logPosterior(cat, features)
		if score > bestScore {
			best = cat
			bestScore = score
		}
	}

	return best
}

// Score returns the unnormalized log-posterior of every category for text.
func (kb *KnowledgeBase) Score(text string) (map[string]float64, error) {
	if kb == nil {
		return nil, fmt.Errorf("%w: train a classifier before scoring", ErrInvalidState)
	}

	features := kb.knownFeatures(kb.Tokenizer().Tokenize(text).Tokens)
	scores := make(map[string]float64, len(kb.Categories))
	for _, cat := range kb.Categories {
		scores[cat] = kb.logPosterior(cat, features)
	}
	return scores, nil
}

type occurrence struct {
	likelihoods map[string]float64
	count       float64
}

// knownFeatures drops out-of-vocabulary tokens and fixes the summation order
// so scores are reproducible to the last bit.
func (kb *KnowledgeBase) knownFeatures(tokens map[string]int) []occurrence {
	names := make([]string, 0, len(tokens))
	for token := range tokens {
		if _, ok := kb.LogLikelihoods[token]; ok {
			names = append(names, token)
		}
	}
	sort.Strings(names)

	known := make([]occurrence, len(names))
	for i, name := range names {
		known[i] = occurrence{likelihoods: kb.LogLikelihoods[name], count: float64(tokens[name])}
	}
	return known
}

func (kb *KnowledgeBase) logPosterior(cat string, features []occurrence) float64 {
	score := kb.LogPriors[cat]
	for _, f := range features {
		score += f.count * f.likelihoods[cat]
	}
	return score
}
