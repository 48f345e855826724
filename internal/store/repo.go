package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/medpredict/internal/kb"
)

// ErrArtifactNotFound is returned by ArtifactRepo.Latest when nothing is
// stored under a key.
var ErrArtifactNotFound = errors.New("model artifact not found")

// KnowledgeRepo manages curated diseases, symptoms and weights.
type KnowledgeRepo interface {
	// CreateSymptom inserts a symptom and returns its id.
	CreateSymptom(ctx context.Context, s kb.Symptom) (int, error)

	// CreateDisease inserts a disease and returns its id.
	CreateDisease(ctx context.Context, d kb.Disease) (int, error)

	// SetWeight creates or updates the weight of a disease–symptom pair.
	SetWeight(ctx context.Context, w kb.DiseaseSymptomWeight) error

	// KnowledgeBase loads every disease, symptom and weight.
	KnowledgeBase(ctx context.Context) (*kb.KnowledgeBase, error)

	// Seed loads seed into the knowledge base, skipping diseases and
	// symptoms that already exist by name.
	Seed(ctx context.Context, seed kb.Seed) (SeedResult, error)

	// Reset deletes all diseases, symptoms and weights.
	Reset(ctx context.Context) error
}

// SeedResult counts what Seed created.
type SeedResult struct {
	Symptoms int
	Diseases int
	Weights  int
}

// SubmissionRepo stores prediction submissions.
type SubmissionRepo interface {
	// Record stores a submission with its observations and predictions in
	// one transaction. An empty ID is replaced with a new UUID, which is
	// returned.
	Record(ctx context.Context, rec kb.SubmissionRecord) (string, error)

	// TrainingSubmissions returns up to limit submissions with a primary
	// prediction, newest first.
	TrainingSubmissions(ctx context.Context, limit int) ([]kb.SubmissionRecord, error)

	// UserHistory counts, per disease, the user's past predictions with
	// confidence >= threshold.
	UserHistory(ctx context.Context, userID string, threshold float64) (kb.UserHistory, error)

	// Recent returns the newest submissions, optionally for one user.
	Recent(ctx context.Context, userID string, limit int) ([]kb.SubmissionRecord, error)

	// Stats summarizes submissions, optionally for one user.
	Stats(ctx context.Context, userID string) (*Stats, error)
}

// Artifact is a stored model blob.
type Artifact struct {
	ID            int
	Key           string
	FormatVersion string
	Payload       []byte
	CreatedAt     time.Time
}

// ArtifactRepo manages persisted model artifacts.
type ArtifactRepo interface {
	// Save stores a new artifact version under key.
	Save(ctx context.Context, a *Artifact) error

	// Latest returns the newest artifact for key, or ErrArtifactNotFound.
	Latest(ctx context.Context, key string) (*Artifact, error)

	// Prune deletes all but the N newest artifacts for key.
	Prune(ctx context.Context, key string, keep int) error

	// Delete removes every artifact stored under key.
	Delete(ctx context.Context, key string) (int, error)

	// SaveArtifact and LoadArtifact adapt the repo to diagnosis.ArtifactStore.
	// LoadArtifact returns nil, nil when nothing is stored.
	SaveArtifact(ctx context.Context, key string, data []byte) error
	LoadArtifact(ctx context.Context, key string) ([]byte, error)
}

// TrainingRunRepo records training attempts.
type TrainingRunRepo interface {
	// AppendTrainingRun records a training attempt.
	AppendTrainingRun(ctx context.Context, run kb.TrainingRun) error

	// LatestTrainingRun returns the newest run, or nil if none exist.
	LatestTrainingRun(ctx context.Context) (*kb.TrainingRun, error)

	// TrainingRuns returns up to limit runs, newest first.
	TrainingRuns(ctx context.Context, limit int) ([]kb.TrainingRun, error)
}
