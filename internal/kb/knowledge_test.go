package kb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKB(t *testing.T) *KnowledgeBase {
	t.Helper()
	k, err := NewKnowledgeBase(
		[]Disease{{ID: 2, Name: "Malaria"}, {ID: 1, Name: "Flu"}},
		[]Symptom{{ID: 11, Name: "Cough"}, {ID: 10, Name: "Fever"}, {ID: 12, Name: "Rash"}},
		[]DiseaseSymptomWeight{
			{DiseaseID: 2, SymptomID: 10, Weight: 10},
			{DiseaseID: 1, SymptomID: 11, Weight: 6},
			{DiseaseID: 1, SymptomID: 10, Weight: 8},
		},
	)
	require.NoError(t, err)
	return k
}

func TestNewKnowledgeBase_Ordering(t *testing.T) {
	k := testKB(t)

	assert.Equal(t, []int{10, 11, 12}, k.SymptomIDs())
	assert.Equal(t, 1, k.Diseases()[0].ID)
	assert.Equal(t, []DiseaseSymptomWeight{
		{DiseaseID: 1, SymptomID: 10, Weight: 8},
		{DiseaseID: 1, SymptomID: 11, Weight: 6},
	}, k.WeightsFor(1))
}

func TestNewKnowledgeBase_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		diseases []Disease
		symptoms []Symptom
		weights  []DiseaseSymptomWeight
	}{
		{
			name:     "weight too high",
			diseases: []Disease{{ID: 1, Name: "A"}},
			symptoms: []Symptom{{ID: 1, Name: "S"}},
			weights:  []DiseaseSymptomWeight{{DiseaseID: 1, SymptomID: 1, Weight: 11}},
		},
		{
			name:     "weight zero",
			diseases: []Disease{{ID: 1, Name: "A"}},
			symptoms: []Symptom{{ID: 1, Name: "S"}},
			weights:  []DiseaseSymptomWeight{{DiseaseID: 1, SymptomID: 1, Weight: 0}},
		},
		{
			name:     "unknown disease",
			diseases: []Disease{{ID: 1, Name: "A"}},
			symptoms: []Symptom{{ID: 1, Name: "S"}},
			weights:  []DiseaseSymptomWeight{{DiseaseID: 9, SymptomID: 1, Weight: 3}},
		},
		{
			name:     "duplicate pair",
			diseases: []Disease{{ID: 1, Name: "A"}},
			symptoms: []Symptom{{ID: 1, Name: "S"}},
			weights: []DiseaseSymptomWeight{
				{DiseaseID: 1, SymptomID: 1, Weight: 3},
				{DiseaseID: 1, SymptomID: 1, Weight: 4},
			},
		},
		{
			name:     "duplicate disease name",
			diseases: []Disease{{ID: 1, Name: "A"}, {ID: 2, Name: " a "}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewKnowledgeBase(tt.diseases, tt.symptoms, tt.weights)
			require.Error(t, err)
		})
	}
}

func TestLookupByName(t *testing.T) {
	k := testKB(t)

	d, ok := k.DiseaseByName("  flu ")
	require.True(t, ok)
	assert.Equal(t, 1, d.ID)

	s, ok := k.SymptomByName("FEVER")
	require.True(t, ok)
	assert.Equal(t, 10, s.ID)

	_, ok = k.DiseaseByName("Measles")
	assert.False(t, ok)
}

func TestDefaultSeverity(t *testing.T) {
	k := testKB(t)

	assert.Equal(t, 10, k.DefaultSeverity(10), "highest weight across diseases")
	assert.Equal(t, 6, k.DefaultSeverity(11))
	assert.Equal(t, DefaultSeverity, k.DefaultSeverity(12), "unreferenced symptom")
	assert.Equal(t, DefaultSeverity, k.DefaultSeverity(99), "unknown symptom")
}

func TestFillSeverities(t *testing.T) {
	k := testKB(t)
	in := []SymptomObservation{
		{SymptomID: 10},
		{SymptomID: 11, Severity: 2},
		{SymptomID: 99},
	}

	out := k.FillSeverities(in)

	assert.Equal(t, []int{10, 2, DefaultSeverity}, []int{out[0].Severity, out[1].Severity, out[2].Severity})
	assert.Equal(t, 0, in[0].Severity, "input must not be mutated")
}

func TestValidateObservations(t *testing.T) {
	require.NoError(t, ValidateObservations([]SymptomObservation{
		{SymptomID: 1, Severity: 10, Onset: OnsetSudden},
		{SymptomID: 2},
	}))

	err := ValidateObservations([]SymptomObservation{{SymptomID: 1, Severity: 11}})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "severity", ve.Field)

	err = ValidateObservations([]SymptomObservation{{SymptomID: 1}, {SymptomID: 1}})
	require.Error(t, err)

	err = ValidateObservations([]SymptomObservation{{SymptomID: 1, Onset: "LATER"}})
	require.Error(t, err)
}

func TestParseOnset(t *testing.T) {
	o, err := ParseOnset(" sudden")
	require.NoError(t, err)
	assert.Equal(t, OnsetSudden, o)

	_, err = ParseOnset("eventually")
	assert.Error(t, err)
}

func TestUserHistory(t *testing.T) {
	var anon UserHistory
	assert.False(t, anon.Authenticated())
	assert.Equal(t, 0, anon.HighConfidenceCount(1))

	h := UserHistory{UserID: "u1", Counts: map[int]int{1: 3}}
	assert.True(t, h.Authenticated())
	assert.Equal(t, 3, h.HighConfidenceCount(1))
}

func TestDefaultSeedIsConsistent(t *testing.T) {
	seed := DefaultSeed()
	names := make(map[string]bool, len(seed.Symptoms))
	for _, s := range seed.Symptoms {
		names[s.Name] = true
	}
	require.Len(t, seed.Symptoms, 20)
	for _, d := range seed.Diseases {
		require.NotEmpty(t, d.Weights, d.Name)
		for _, w := range d.Weights {
			assert.True(t, names[w.Symptom], "%s references unknown symptom %s", d.Name, w.Symptom)
			assert.NoError(t, ValidateWeight(w.Weight))
		}
	}
}
