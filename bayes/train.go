package bayes

import (
	"fmt"
	"math"

	"github.com/hickeroar/nbayes/bayes/features"
	"github.com/hickeroar/nbayes/tokenizer"
	"github.com/oklog/ulid/v2"
)

type trainConfig struct {
	criticalValue float64
	priors        map[string]float64
	hasPriors     bool
	tokenizer     *tokenizer.Tokenizer
}

// TrainOption customizes a training run.
type TrainOption func(*trainConfig)

// WithCriticalValue sets the chi-square critical value used for feature selection.
// Zero keeps every feature whose contingency table is defined.
func WithCriticalValue(value float64) TrainOption {
	return func(cfg *trainConfig) {
		cfg.criticalValue = value
	}
}

// WithPriors supplies the category prior probabilities instead of estimating
// them from the sample. Every trained category needs exactly one entry.
func WithPriors(priors map[string]float64) TrainOption {
	return func(cfg *trainConfig) {
		cfg.priors = make(map[string]float64, len(priors))
		for cat, p := range priors {
			cfg.priors[cat] = p
		}
		cfg.hasPriors = true
	}
}

// WithEstimatedPriors drops any previously supplied priors.
func WithEstimatedPriors() TrainOption {
	return func(cfg *trainConfig) {
		cfg.priors = nil
		cfg.hasPriors = false
	}
}

// WithTokenizer sets the tokenizer applied to training and prediction text.
func WithTokenizer(tok *tokenizer.Tokenizer) TrainOption {
	return func(cfg *trainConfig) {
		if tok != nil {
			cfg.tokenizer = tok
		}
	}
}

// TrainMap trains a model from a category -> examples map. Categories are
// evaluated in lexical order.
func TrainMap(samples map[string][]string, opts ...TrainOption) (*KnowledgeBase, error) {
	return Train(DatasetFromMap(samples), opts...)
}

// Train builds a new KnowledgeBase from a labeled dataset.
func Train(ds *Dataset, opts ...TrainOption) (*KnowledgeBase, error) {
	cfg := trainConfig{
		criticalValue: features.DefaultCriticalValue,
		tokenizer:     tokenizer.Default,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if math.IsNaN(cfg.criticalValue) {
		return nil, fmt.Errorf("%w: critical value is NaN", ErrInvalidArgument)
	}
	if ds == nil || ds.Len() == 0 {
		return nil, fmt.Errorf("%w: dataset has no examples", ErrInvalidArgument)
	}

	docs := preprocessDataset(ds, cfg.tokenizer)
	stats := selectFeatures(docs, cfg.criticalValue)

	kb := &KnowledgeBase{
		ID:             ulid.Make().String(),
		N:              stats.N,
		D:              stats.Len(),
		Categories:     stats.CategoryCounts.Names(),
		Documents:      stats.CategoryCounts.Counts(),
		LogLikelihoods: make(map[string]map[string]float64, stats.Len()),
		tokenizer:      cfg.tokenizer,
	}

	if cfg.hasPriors {
		logPriors, err := explicitLogPriors(stats, cfg.priors)
		if err != nil {
			return nil, err
		}
		kb.LogPriors = logPriors
		kb.C = len(cfg.priors)
	} else {
		kb.LogPriors = estimateLogPriors(stats)
		kb.C = stats.CategoryCounts.Len()
	}

	// Add-one smoothing needs the total feature occurrences of each category.
	totals := make(map[string]float64, len(kb.Categories))
	for _, joint := range stats.JointCounts {
		for cat, count := range joint {
			totals[cat] += float64(count)
		}
	}

	d := float64(kb.D)
	for feature, joint := range stats.JointCounts {
		likelihoods := make(map[string]float64, len(kb.Categories))
		for _, cat := range kb.Categories {
			likelihoods[cat] = math.Log((float64(joint[cat]) + 1.0) / (totals[cat] + d))
		}
		kb.LogLikelihoods[feature] = likelihoods
	}

	return kb, nil
}

// preprocessDataset tokenizes every example into a labeled document.
func preprocessDataset(ds *Dataset, tok *tokenizer.Tokenizer) []tokenizer.Document {
	docs := make([]tokenizer.Document, 0, ds.Len())
	for _, cat := range ds.Categories() {
		for _, example := range ds.Examples(cat) {
			doc := tok.Tokenize(example)
			doc.Category = cat
			docs = append(docs, doc)
		}
	}
	return docs
}

// selectFeatures gathers the corpus statistics and keeps only the features
// passing the chi-square test.
func selectFeatures(docs []tokenizer.Document, criticalValue float64) *features.FeatureStats {
	stats := features.Collect(docs)
	selected := features.ChiSquare(stats, criticalValue)
	return features.Select(stats, selected)
}

func estimateLogPriors(stats *features.FeatureStats) map[string]float64 {
	logPriors := make(map[string]float64, stats.CategoryCounts.Len())
	n := float64(stats.CategoryCounts.Total())
	for _, cat := range stats.CategoryCounts.Names() {
		logPriors[cat] = math.Log(float64(stats.CategoryCounts.Count(cat)) / n)
	}
	return logPriors
}

func explicitLogPriors(stats *features.FeatureStats, priors map[string]float64) (map[string]float64, error) {
	if len(priors) != stats.CategoryCounts.Len() {
		return nil, fmt.Errorf("%w: got %d priors for %d categories", ErrInvalidArgument, len(priors), stats.CategoryCounts.Len())
	}

	logPriors := make(map[string]float64, len(priors))
	for _, cat := range stats.CategoryCounts.Names() {
		p, ok := priors[cat]
		if !ok {
			return nil, fmt.Errorf("%w: missing prior for category %q", ErrInvalidArgument, cat)
		}
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: prior for category %q must be within [0, 1], got %v", ErrInvalidArgument, cat, p)
		}
		logPriors[cat] = math.Log(p)
	}
	return logPriors, nil
}
