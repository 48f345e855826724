// Package classifier implements a multinomial Naive Bayes model over
// symptom feature vectors.
package classifier

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/abhisek/medpredict/internal/encoder"
	"github.com/abhisek/medpredict/internal/kb"
)

// Alpha is the additive (Laplace) smoothing constant.
const Alpha = 1.0

// Summary describes a completed training run.
type Summary struct {
	SamplesTrained int `json:"samples_trained" yaml:"samples_trained"`
	Diseases       int `json:"diseases" yaml:"diseases"`
	Symptoms       int `json:"symptoms" yaml:"symptoms"`
}

// Prediction is one class of a posterior distribution.
type Prediction struct {
	Label       string
	ClassIndex  int
	Probability float64
	Confidence  float64 // Probability × 100, rounded to 2 decimals
}

// Model is a trained classifier. It is never mutated after Train or
// UnmarshalArtifact returns, so one *Model may be shared by concurrent readers.
type Model struct {
	labels         []string
	classCounts    []int
	classLogPrior  []float64
	featureLogProb [][]float64
	enc            *encoder.Encoder
	trained        bool
	trainedAt      time.Time
}

// Train fits the model. X holds one non-negative feature vector per sample,
// each of length enc.Len(); y holds the parallel class labels. Labels are
// encoded in lexicographic order.
func Train(X [][]float64, y []string, enc *encoder.Encoder) (*Model, Summary, error) {
	if len(X) == 0 {
		return nil, Summary{}, ErrNoTrainingData
	}
	if len(X) != len(y) {
		return nil, Summary{}, fmt.Errorf("got %d samples but %d labels", len(X), len(y))
	}
	if enc == nil {
		return nil, Summary{}, fmt.Errorf("nil encoder")
	}

	labels, index := encodeLabels(y)
	nClasses := len(labels)
	nFeatures := enc.Len()

	classCounts := make([]int, nClasses)
	featureCounts := make([][]float64, nClasses)
	for c := range featureCounts {
		featureCounts[c] = make([]float64, nFeatures)
	}

	for i, row := range X {
		if len(row) != nFeatures {
			return nil, Summary{}, fmt.Errorf("sample %d has %d features, want %d: %w", i, len(row), nFeatures, ErrStaleEncoding)
		}
		c := index[y[i]]
		classCounts[c]++
		for j, v := range row {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, Summary{}, fmt.Errorf("sample %d feature %d: invalid value %v", i, j, v)
			}
			featureCounts[c][j] += v
		}
	}

	m := &Model{
		labels:         labels,
		classCounts:    classCounts,
		classLogPrior:  make([]float64, nClasses),
		featureLogProb: make([][]float64, nClasses),
		enc:            enc,
		trained:        true,
		trainedAt:      time.Now().UTC(),
	}

	logTotal := math.Log(float64(len(X)))
	for c := 0; c < nClasses; c++ {
		m.classLogPrior[c] = math.Log(float64(classCounts[c])) - logTotal

		var smoothedTotal float64
		for _, v := range featureCounts[c] {
			smoothedTotal += v + Alpha
		}
		logSmoothedTotal := math.Log(smoothedTotal)

		row := make([]float64, nFeatures)
		for j, v := range featureCounts[c] {
			row[j] = math.Log(v+Alpha) - logSmoothedTotal
		}
		m.featureLogProb[c] = row
	}

	return m, m.Summary(len(X)), nil
}

// encodeLabels returns the sorted distinct labels and a label→index map.
func encodeLabels(y []string) ([]string, map[string]int) {
	index := make(map[string]int)
	var labels []string
	for _, l := range y {
		if _, ok := index[l]; !ok {
			index[l] = 0
			labels = append(labels, l)
		}
	}
	sort.Strings(labels)
	for i, l := range labels {
		index[l] = i
	}
	return labels, index
}

// Predict returns the k most probable classes for vector, ordered by
// descending probability; ties keep the lower class index first.
// k <= 0 returns every class.
func (m *Model) Predict(vector []float64, k int) ([]Prediction, error) {
	probs, err := m.Posterior(vector)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] > probs[order[b]]
	})

	if k <= 0 || k > len(order) {
		k = len(order)
	}
	out := make([]Prediction, k)
	for i := 0; i < k; i++ {
		c := order[i]
		out[i] = Prediction{
			Label:       m.labels[c],
			ClassIndex:  c,
			Probability: probs[c],
			Confidence:  round2(probs[c] * 100),
		}
	}
	return out, nil
}

// PredictObservations encodes obs with the model's own encoder and predicts.
// Symptoms unknown to the encoder are skipped.
func (m *Model) PredictObservations(obs []kb.SymptomObservation, k int) ([]Prediction, error) {
	if !m.Trained() {
		return nil, ErrNotTrained
	}
	return m.Predict(m.enc.EncodeObservations(obs), k)
}

// Posterior returns the class probability distribution for vector,
// indexed by class.
func (m *Model) Posterior(vector []float64) ([]float64, error) {
	if m == nil || !m.trained {
		return nil, ErrNotTrained
	}
	if len(vector) != m.enc.Len() {
		return nil, fmt.Errorf("vector has %d features, model has %d: %w", len(vector), m.enc.Len(), ErrStaleEncoding)
	}

	jll := make([]float64, len(m.labels))
	maxJLL := math.Inf(-1)
	for c := range m.labels {
		s := m.classLogPrior[c]
		for j, v := range vector {
			if v != 0 {
				s += v * m.featureLogProb[c][j]
			}
		}
		jll[c] = s
		if s > maxJLL {
			maxJLL = s
		}
	}

	var sum float64
	for _, s := range jll {
		sum += math.Exp(s - maxJLL)
	}
	logNorm := maxJLL + math.Log(sum)

	probs := make([]float64, len(jll))
	for c, s := range jll {
		probs[c] = math.Exp(s - logNorm)
	}
	return probs, nil
}

// Labels returns the class labels in class-index order.
func (m *Model) Labels() []string {
	return append([]string(nil), m.labels...)
}

// Encoder returns the symptom-slot mapping the model was trained with.
func (m *Model) Encoder() *encoder.Encoder {
	return m.enc
}

// Trained reports whether the model holds fitted parameters.
func (m *Model) Trained() bool {
	return m != nil && m.trained
}

// TrainedAt returns when the model was fitted.
func (m *Model) TrainedAt() time.Time {
	return m.trainedAt
}

// Summary reports the model's shape for a given sample count.
func (m *Model) Summary(samples int) Summary {
	return Summary{
		SamplesTrained: samples,
		Diseases:       len(m.labels),
		Symptoms:       m.enc.Len(),
	}
}

// Samples returns the number of training samples the model was fitted on.
func (m *Model) Samples() int {
	n := 0
	for _, c := range m.classCounts {
		n += c
	}
	return n
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
