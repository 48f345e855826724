package kb

import "fmt"

// ValidationError reports a knowledge-base or observation value outside its
// allowed range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateWeight checks that w is within [MinWeight, MaxWeight].
func ValidateWeight(w int) error {
	if w < MinWeight || w > MaxWeight {
		return &ValidationError{
			Field:  "weight",
			Reason: fmt.Sprintf("%d not in [%d,%d]", w, MinWeight, MaxWeight),
		}
	}
	return nil
}

// ValidateObservation checks severity (0 means "not reported") and onset.
func ValidateObservation(o SymptomObservation) error {
	if o.SymptomID <= 0 {
		return &ValidationError{Field: "symptom_id", Reason: fmt.Sprintf("%d is not a valid id", o.SymptomID)}
	}
	if o.HasSeverity() && (o.Severity < MinSeverity || o.Severity > MaxSeverity) {
		return &ValidationError{
			Field:  "severity",
			Reason: fmt.Sprintf("%d not in [%d,%d]", o.Severity, MinSeverity, MaxSeverity),
		}
	}
	switch o.Onset {
	case "", OnsetSudden, OnsetGradual:
	default:
		return &ValidationError{Field: "onset", Reason: fmt.Sprintf("unknown value %q", o.Onset)}
	}
	return nil
}

// ValidateObservations validates each observation and rejects duplicates.
func ValidateObservations(obs []SymptomObservation) error {
	seen := make(map[int]bool, len(obs))
	for _, o := range obs {
		if err := ValidateObservation(o); err != nil {
			return err
		}
		if seen[o.SymptomID] {
			return &ValidationError{Field: "symptom_id", Reason: fmt.Sprintf("%d reported twice", o.SymptomID)}
		}
		seen[o.SymptomID] = true
	}
	return nil
}
