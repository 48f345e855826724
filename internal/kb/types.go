package kb

import (
	"fmt"
	"strings"
	"time"
)

const (
	MinWeight = 1
	MaxWeight = 10

	MinSeverity = 1
	MaxSeverity = 10

	// DefaultSeverity is used when neither the caller nor the weight table
	// provides a severity for an observed symptom.
	DefaultSeverity = 5

	// HighConfidenceThreshold is the minimum stored confidence (inclusive) for
	// a past prediction to count towards personalization.
	HighConfidenceThreshold = 70.0
)

// Onset describes how a symptom began.
type Onset string

const (
	OnsetSudden  Onset = "SUDDEN"
	OnsetGradual Onset = "GRADUAL"
)

// ParseOnset accepts an onset in any letter case.
func ParseOnset(s string) (Onset, error) {
	switch Onset(strings.ToUpper(strings.TrimSpace(s))) {
	case OnsetSudden:
		return OnsetSudden, nil
	case OnsetGradual:
		return OnsetGradual, nil
	}
	return "", fmt.Errorf("unknown onset %q (want sudden or gradual)", s)
}

// SeverityCategory is the triage bucket derived from a severity score.
type SeverityCategory string

const (
	SeverityNormal   SeverityCategory = "NORMAL"
	SeverityModerate SeverityCategory = "MODERATE"
	SeverityRisky    SeverityCategory = "RISKY"
)

// Disease is a curated condition with its free-text advice fields.
type Disease struct {
	ID            int
	Name          string
	Description   string
	LifestyleTips string
	DietAdvice    string
	MedicalAdvice string
}

// Symptom is a reportable symptom.
type Symptom struct {
	ID          int
	Name        string
	Description string
}

// DiseaseSymptomWeight is the curated relevance (1–10) of a symptom to a disease.
type DiseaseSymptomWeight struct {
	DiseaseID int
	SymptomID int
	Weight    int
}

// SymptomObservation is one reported symptom in a prediction request.
type SymptomObservation struct {
	SymptomID int
	Severity  int // 0 when not reported
	Duration  string
	Onset     Onset
}

// HasSeverity reports whether the caller supplied a severity.
func (o SymptomObservation) HasSeverity() bool {
	return o.Severity != 0
}

// PredictedDisease is one ranked entry of a stored prediction result.
type PredictedDisease struct {
	Rank        int
	DiseaseID   int
	DiseaseName string
	Confidence  float64
}

// SubmissionRecord is a historical prediction call as persisted by the caller.
type SubmissionRecord struct {
	ID               string
	UserID           string // empty for anonymous submissions
	SessionID        string
	Observations     []SymptomObservation
	Predictions      []PredictedDisease
	PrimaryDiseaseID int    // 0 when no prediction was made
	PrimaryDisease   string // name of the primary disease, resolved on load
	SeverityScore    float64
	SeverityCategory SeverityCategory
	CreatedAt        time.Time
}

// TrainingRun records one training attempt.
type TrainingRun struct {
	ID           int
	Samples      int
	Diseases     int
	Symptoms     int
	Duration     time.Duration
	Success      bool
	ErrorMessage string
	CreatedAt    time.Time
}

// UserHistory carries an identity and its count of past high-confidence
// predictions per disease id.
type UserHistory struct {
	UserID string
	Counts map[int]int
}

// Authenticated reports whether the history belongs to a known identity.
func (h UserHistory) Authenticated() bool {
	return h.UserID != ""
}

// HighConfidenceCount returns how often diseaseID was predicted with
// confidence >= HighConfidenceThreshold for this identity.
func (h UserHistory) HighConfidenceCount(diseaseID int) int {
	return h.Counts[diseaseID]
}
