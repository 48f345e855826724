package classifier

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTrainingData is returned by Train when the feature set is empty.
	ErrNoTrainingData = errors.New("no training data available")

	// ErrStaleEncoding indicates a feature vector built against a different
	// symptom-slot mapping than the model was trained with.
	ErrStaleEncoding = errors.New("feature vector does not match the model's symptom encoding")

	// ErrNotTrained is returned when predicting with a zero Model.
	ErrNotTrained = errors.New("model is not trained")
)

// ErrInvalidArtifact indicates a persisted model blob that cannot be restored.
type ErrInvalidArtifact struct {
	Err error
}

func (e *ErrInvalidArtifact) Error() string {
	return fmt.Sprintf("invalid model artifact: %v", e.Err)
}

func (e *ErrInvalidArtifact) Unwrap() error { return e.Err }
