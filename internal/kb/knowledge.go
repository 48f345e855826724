package kb

import (
	"fmt"
	"sort"
	"strings"
)

// KnowledgeBase is an immutable, indexed view of the curated diseases,
// symptoms and disease–symptom weights.
type KnowledgeBase struct {
	diseases []Disease
	symptoms []Symptom
	weights  []DiseaseSymptomWeight

	diseaseByID   map[int]int // id -> index into diseases
	diseaseByName map[string]int
	symptomByID   map[int]int
	symptomByName map[string]int
	byDisease     map[int][]DiseaseSymptomWeight
	maxWeight     map[int]int // symptom id -> highest weight referencing it
}

// NewKnowledgeBase validates and indexes the given records. Diseases and
// symptoms are ordered by id; weights by (disease id, symptom id).
func NewKnowledgeBase(diseases []Disease, symptoms []Symptom, weights []DiseaseSymptomWeight) (*KnowledgeBase, error) {
	k := &KnowledgeBase{
		diseases:      append([]Disease(nil), diseases...),
		symptoms:      append([]Symptom(nil), symptoms...),
		weights:       append([]DiseaseSymptomWeight(nil), weights...),
		diseaseByID:   make(map[int]int, len(diseases)),
		diseaseByName: make(map[string]int, len(diseases)),
		symptomByID:   make(map[int]int, len(symptoms)),
		symptomByName: make(map[string]int, len(symptoms)),
		byDisease:     make(map[int][]DiseaseSymptomWeight),
		maxWeight:     make(map[int]int),
	}

	sort.Slice(k.diseases, func(i, j int) bool { return k.diseases[i].ID < k.diseases[j].ID })
	sort.Slice(k.symptoms, func(i, j int) bool { return k.symptoms[i].ID < k.symptoms[j].ID })
	sort.Slice(k.weights, func(i, j int) bool {
		if k.weights[i].DiseaseID != k.weights[j].DiseaseID {
			return k.weights[i].DiseaseID < k.weights[j].DiseaseID
		}
		return k.weights[i].SymptomID < k.weights[j].SymptomID
	})

	for i, d := range k.diseases {
		if _, dup := k.diseaseByID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate disease id %d", d.ID)
		}
		name := nameKey(d.Name)
		if _, dup := k.diseaseByName[name]; dup {
			return nil, fmt.Errorf("duplicate disease name %q", d.Name)
		}
		k.diseaseByID[d.ID] = i
		k.diseaseByName[name] = i
	}
	for i, s := range k.symptoms {
		if _, dup := k.symptomByID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate symptom id %d", s.ID)
		}
		name := nameKey(s.Name)
		if _, dup := k.symptomByName[name]; dup {
			return nil, fmt.Errorf("duplicate symptom name %q", s.Name)
		}
		k.symptomByID[s.ID] = i
		k.symptomByName[name] = i
	}

	for i, w := range k.weights {
		if err := ValidateWeight(w.Weight); err != nil {
			return nil, fmt.Errorf("disease %d symptom %d: %w", w.DiseaseID, w.SymptomID, err)
		}
		if _, ok := k.diseaseByID[w.DiseaseID]; !ok {
			return nil, fmt.Errorf("weight references unknown disease %d", w.DiseaseID)
		}
		if _, ok := k.symptomByID[w.SymptomID]; !ok {
			return nil, fmt.Errorf("weight references unknown symptom %d", w.SymptomID)
		}
		if i > 0 && k.weights[i-1].DiseaseID == w.DiseaseID && k.weights[i-1].SymptomID == w.SymptomID {
			return nil, fmt.Errorf("duplicate weight for disease %d symptom %d", w.DiseaseID, w.SymptomID)
		}
		k.byDisease[w.DiseaseID] = append(k.byDisease[w.DiseaseID], w)
		if w.Weight > k.maxWeight[w.SymptomID] {
			k.maxWeight[w.SymptomID] = w.Weight
		}
	}

	return k, nil
}

// Diseases returns all diseases ordered by id.
func (k *KnowledgeBase) Diseases() []Disease {
	return k.diseases
}

// Symptoms returns all symptoms ordered by id.
func (k *KnowledgeBase) Symptoms() []Symptom {
	return k.symptoms
}

// Weights returns every disease–symptom weight.
func (k *KnowledgeBase) Weights() []DiseaseSymptomWeight {
	return k.weights
}

// SymptomIDs returns all symptom ids in ascending order.
func (k *KnowledgeBase) SymptomIDs() []int {
	ids := make([]int, len(k.symptoms))
	for i, s := range k.symptoms {
		ids[i] = s.ID
	}
	return ids
}

// Disease looks up a disease by id.
func (k *KnowledgeBase) Disease(id int) (Disease, bool) {
	i, ok := k.diseaseByID[id]
	if !ok {
		return Disease{}, false
	}
	return k.diseases[i], true
}

// DiseaseByName looks up a disease by name, ignoring case and surrounding space.
func (k *KnowledgeBase) DiseaseByName(name string) (Disease, bool) {
	i, ok := k.diseaseByName[nameKey(name)]
	if !ok {
		return Disease{}, false
	}
	return k.diseases[i], true
}

// Symptom looks up a symptom by id.
func (k *KnowledgeBase) Symptom(id int) (Symptom, bool) {
	i, ok := k.symptomByID[id]
	if !ok {
		return Symptom{}, false
	}
	return k.symptoms[i], true
}

// SymptomByName looks up a symptom by name, ignoring case and surrounding space.
func (k *KnowledgeBase) SymptomByName(name string) (Symptom, bool) {
	i, ok := k.symptomByName[nameKey(name)]
	if !ok {
		return Symptom{}, false
	}
	return k.symptoms[i], true
}

// WeightsFor returns the weights of a disease ordered by symptom id.
func (k *KnowledgeBase) WeightsFor(diseaseID int) []DiseaseSymptomWeight {
	return k.byDisease[diseaseID]
}

// DefaultSeverity returns the highest weight any disease assigns to the
// symptom, or DefaultSeverity when no disease references it.
func (k *KnowledgeBase) DefaultSeverity(symptomID int) int {
	if w, ok := k.maxWeight[symptomID]; ok {
		return w
	}
	return DefaultSeverity
}

// FillSeverities returns a copy of obs where every unreported severity is
// replaced with DefaultSeverity(symptom).
func (k *KnowledgeBase) FillSeverities(obs []SymptomObservation) []SymptomObservation {
	out := make([]SymptomObservation, len(obs))
	for i, o := range obs {
		if !o.HasSeverity() {
			o.Severity = k.DefaultSeverity(o.SymptomID)
		}
		out[i] = o
	}
	return out
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
