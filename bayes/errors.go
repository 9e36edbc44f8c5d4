package bayes

import "errors"

var (
	// ErrInvalidArgument reports training input that cannot produce a model.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState reports a prediction attempted without a trained model.
	ErrInvalidState = errors.New("invalid state")
)
