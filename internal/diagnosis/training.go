package diagnosis

import (
	"github.com/abhisek/medpredict/internal/encoder"
	"github.com/abhisek/medpredict/internal/kb"
)

// MaxTrainingSubmissions bounds how much history feeds a training run.
const MaxTrainingSubmissions = 1000

// TrainingSet is a labelled feature matrix with the encoder that built it.
type TrainingSet struct {
	X       [][]float64
	Y       []string
	Encoder *encoder.Encoder

	Templates   int // one per disease
	Submissions int // history rows used
	Skipped     int // history rows whose disease no longer exists
}

// BuildTrainingSet assembles one template vector per disease followed by
// one vector per submission, newest first. Submissions are taken in the
// order given, capped at limit (or MaxTrainingSubmissions when limit is
// out of range). Labels are disease names.
func BuildTrainingSet(knowledge *kb.KnowledgeBase, subs []kb.SubmissionRecord, limit int) TrainingSet {
	if limit <= 0 || limit > MaxTrainingSubmissions {
		limit = MaxTrainingSubmissions
	}
	enc := encoder.New(knowledge.SymptomIDs())
	set := TrainingSet{Encoder: enc}

	for _, d := range knowledge.Diseases() {
		set.X = append(set.X, enc.EncodeWeights(knowledge.WeightsFor(d.ID)))
		set.Y = append(set.Y, d.Name)
		set.Templates++
	}

	for _, s := range subs {
		if set.Submissions >= limit {
			break
		}
		if s.PrimaryDiseaseID == 0 {
			continue
		}
		d, ok := knowledge.Disease(s.PrimaryDiseaseID)
		if !ok {
			set.Skipped++
			continue
		}
		set.X = append(set.X, enc.EncodeObservations(s.Observations))
		set.Y = append(set.Y, d.Name)
		set.Submissions++
	}
	return set
}
