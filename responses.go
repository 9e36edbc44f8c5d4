package main

import (
	"math"

	"github.com/hickeroar/nbayes/bayes"
)

// CategoryResponse describes one category of the current model.
type CategoryResponse struct {
	Prior     float64
	Documents int // Training documents labeled with this category
}

// ModelResponse is the standard response describing the current model and success bool
type ModelResponse struct {
	Success      bool
	Trained      bool
	ModelID      string                      `json:",omitempty"`
	Observations int                         // Training documents used
	Features     int                         // Features retained by selection
	Order        []string                    // Category evaluation order
	Categories   map[string]CategoryResponse // Category name to details
}

// NewModelResponse Gets an assembled instance of ModelResponse
func NewModelResponse(kb *bayes.KnowledgeBase, success bool) *ModelResponse {
	response := &ModelResponse{
		Success:    success,
		Order:      []string{},
		Categories: map[string]CategoryResponse{},
	}
	if kb == nil {
		return response
	}

	response.Trained = true
	response.ModelID = kb.ID
	response.Observations = kb.N
	response.Features = kb.D
	response.Order = append(response.Order, kb.Categories...)
	for _, name := range kb.Categories {
		response.Categories[name] = CategoryResponse{
			Prior:     math.Exp(kb.LogPriors[name]),
			Documents: kb.Documents[name],
		}
	}
	return response
}

// PredictionResponse carries the predicted category of a text.
type PredictionResponse struct {
	Category string
}

// jsonScores replaces impossible (-Inf) scores, which JSON cannot encode,
// with the lowest finite float.
func jsonScores(scores map[string]float64) map[string]float64 {
	for name, score := range scores {
		if math.IsInf(score, -1) {
			scores[name] = -math.MaxFloat64
		}
	}
	return scores
}
