package diagnosis

import "errors"

var (
	// ErrEmptyPrediction is returned by callers that treat a result with no
	// candidates as a failure. Predict itself returns an empty Result.
	ErrEmptyPrediction = errors.New("no matching disease found")

	// ErrUnresolvableDisease marks a classifier label that no longer maps to a
	// disease in the knowledge base. Such candidates are dropped.
	ErrUnresolvableDisease = errors.New("predicted disease not found in knowledge base")
)
