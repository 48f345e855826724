// Package encoder maps symptom ids to fixed feature-vector slots.
package encoder

import (
	"sort"

	"github.com/abhisek/medpredict/internal/kb"
)

// scale normalizes weights and severities (1–10) into [0,1].
const scale = 10.0

// Encoder is an immutable bijection between symptom ids and vector slots.
// Slots follow ascending symptom id.
type Encoder struct {
	ids   []int
	slots map[int]int
}

// New builds an encoder over the given symptom ids. Duplicates collapse.
func New(symptomIDs []int) *Encoder {
	ids := append([]int(nil), symptomIDs...)
	sort.Ints(ids)

	e := &Encoder{slots: make(map[int]int, len(ids))}
	for _, id := range ids {
		if _, dup := e.slots[id]; dup {
			continue
		}
		e.slots[id] = len(e.ids)
		e.ids = append(e.ids, id)
	}
	return e
}

// Len returns the feature-vector dimensionality.
func (e *Encoder) Len() int {
	return len(e.ids)
}

// Slot returns the slot index of a symptom id.
func (e *Encoder) Slot(symptomID int) (int, bool) {
	i, ok := e.slots[symptomID]
	return i, ok
}

// SymptomIDs returns the encoded symptom ids in slot order.
func (e *Encoder) SymptomIDs() []int {
	return append([]int(nil), e.ids...)
}

// EncodeWeights builds a disease template vector: slot = weight/10.
// Weights for unknown symptoms are skipped.
func (e *Encoder) EncodeWeights(weights []kb.DiseaseSymptomWeight) []float64 {
	v := make([]float64, len(e.ids))
	for _, w := range weights {
		if i, ok := e.slots[w.SymptomID]; ok {
			v[i] = float64(w.Weight) / scale
		}
	}
	return v
}

// EncodeObservations builds a vector from reported severities: slot = severity/10.
// Observations for unknown symptoms are skipped.
func (e *Encoder) EncodeObservations(obs []kb.SymptomObservation) []float64 {
	v := make([]float64, len(e.ids))
	for _, o := range obs {
		if i, ok := e.slots[o.SymptomID]; ok {
			v[i] = float64(o.Severity) / scale
		}
	}
	return v
}

// Equal reports whether both encoders assign identical slots.
func (e *Encoder) Equal(other *Encoder) bool {
	if e == nil || other == nil {
		return e == other
	}
	if len(e.ids) != len(other.ids) {
		return false
	}
	for i, id := range e.ids {
		if other.ids[i] != id {
			return false
		}
	}
	return true
}

// Covers reports whether every given symptom id has a slot.
func (e *Encoder) Covers(symptomIDs []int) bool {
	for _, id := range symptomIDs {
		if _, ok := e.slots[id]; !ok {
			return false
		}
	}
	return true
}
