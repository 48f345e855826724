package diagnosis

import (
	"context"
	"time"

	"github.com/abhisek/medpredict/internal/kb"
)

// UserContext identifies the requesting user for personalization.
// kb.UserHistory satisfies it.
type UserContext interface {
	Authenticated() bool
	HighConfidenceCount(diseaseID int) int
}

// Candidate is one scored disease from a single scoring path.
type Candidate struct {
	DiseaseID   int
	DiseaseName string
	Confidence  float64 // 0–100, 2 decimals
}

// RuleScore explains a rule-based Candidate.
type RuleScore struct {
	Candidate
	MatchedSymptoms  int
	TotalSymptoms    int
	MatchPercentage  float64
	WeightPercentage float64
	HistoryBonus     float64
}

// RankedCandidate is one entry of the merged prediction result.
type RankedCandidate struct {
	Rank           int     `json:"rank" yaml:"rank"`
	DiseaseID      int     `json:"disease_id" yaml:"disease_id"`
	DiseaseName    string  `json:"disease_name" yaml:"disease_name"`
	Confidence     float64 `json:"confidence" yaml:"confidence"`
	MLConfidence   float64 `json:"ml_confidence" yaml:"ml_confidence"`
	RuleConfidence float64 `json:"rule_confidence" yaml:"rule_confidence"`
}

// Severity is the aggregate severity of a symptom set.
type Severity struct {
	Score    float64             `json:"score" yaml:"score"`
	Category kb.SeverityCategory `json:"category" yaml:"category"`
}

// Recommendations are the formatted advice lists of the top disease.
type Recommendations struct {
	Lifestyle []string `json:"lifestyle_tips" yaml:"lifestyle_tips"`
	Diet      []string `json:"diet_advice" yaml:"diet_advice"`
	Medical   []string `json:"medical_advice" yaml:"medical_advice"`
}

// PredictRequest is the input of Predictor.Predict.
type PredictRequest struct {
	Observations []kb.SymptomObservation
	User         UserContext // nil for anonymous requests
}

// Result is the output of one prediction call.
type Result struct {
	Candidates      []RankedCandidate       `json:"predictions" yaml:"predictions"`
	Severity        Severity                `json:"severity" yaml:"severity"`
	Recommendations Recommendations         `json:"recommendations" yaml:"recommendations"`
	Interpretation  string                  `json:"severity_interpretation" yaml:"severity_interpretation"`
	NextSteps       string                  `json:"next_steps,omitempty" yaml:"next_steps,omitempty"`
	Observations    []kb.SymptomObservation `json:"-" yaml:"-"` // severities filled
	RuleScores      []RuleScore             `json:"-" yaml:"-"`
	Dropped         []string                `json:"-" yaml:"-"` // ML labels with no current disease
	ModelTrainedAt  time.Time               `json:"-" yaml:"-"`
}

// Empty reports whether neither scoring path produced a candidate.
func (r *Result) Empty() bool {
	return len(r.Candidates) == 0
}

// Primary returns the top-ranked candidate.
func (r *Result) Primary() (RankedCandidate, bool) {
	if r.Empty() {
		return RankedCandidate{}, false
	}
	return r.Candidates[0], true
}

// Submission converts the result into a record the caller can persist.
func (r *Result) Submission(userID, sessionID string, at time.Time) kb.SubmissionRecord {
	rec := kb.SubmissionRecord{
		UserID:           userID,
		SessionID:        sessionID,
		Observations:     append([]kb.SymptomObservation(nil), r.Observations...),
		SeverityScore:    r.Severity.Score,
		SeverityCategory: r.Severity.Category,
		CreatedAt:        at,
	}
	for _, c := range r.Candidates {
		rec.Predictions = append(rec.Predictions, kb.PredictedDisease{
			Rank:        c.Rank,
			DiseaseID:   c.DiseaseID,
			DiseaseName: c.DiseaseName,
			Confidence:  c.Confidence,
		})
	}
	if p, ok := r.Primary(); ok {
		rec.PrimaryDiseaseID = p.DiseaseID
		rec.PrimaryDisease = p.DiseaseName
	}
	return rec
}

// KnowledgeSource provides the knowledge base and training history.
type KnowledgeSource interface {
	KnowledgeBase(ctx context.Context) (*kb.KnowledgeBase, error)
	// TrainingSubmissions returns up to limit submissions that have a
	// primary prediction, newest first.
	TrainingSubmissions(ctx context.Context, limit int) ([]kb.SubmissionRecord, error)
}

// ArtifactStore persists serialized models by key.
type ArtifactStore interface {
	SaveArtifact(ctx context.Context, key string, data []byte) error
	// LoadArtifact returns nil, nil when nothing is stored under key.
	LoadArtifact(ctx context.Context, key string) ([]byte, error)
}

// Cache is a byte cache in front of an ArtifactStore.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// TrainingRunRecorder records training attempts.
type TrainingRunRecorder interface {
	AppendTrainingRun(ctx context.Context, run kb.TrainingRun) error
}

// TrainedEvent describes a newly published model.
type TrainedEvent struct {
	ModelKey       string
	SamplesTrained int
	Diseases       int
	Symptoms       int
	TrainedAt      time.Time
}

// PredictedEvent describes a completed prediction.
type PredictedEvent struct {
	PrimaryDisease   string
	Confidence       float64
	SeverityCategory kb.SeverityCategory
	Candidates       int
	At               time.Time
}

// Notifier is told about trained models and completed predictions.
type Notifier interface {
	ModelTrained(ctx context.Context, evt TrainedEvent) error
	PredictionCompleted(ctx context.Context, evt PredictedEvent) error
}
