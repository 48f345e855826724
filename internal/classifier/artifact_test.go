package classifier

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/medpredict/internal/encoder"
)

func TestArtifactRoundTrip_BitExact(t *testing.T) {
	enc := encoder.New([]int{3, 5, 8, 13})
	m, _, err := Train(
		[][]float64{
			{0.8, 0.6, 0, 0.1},
			{1.0, 0, 0.9, 0.7},
			{0, 0.3, 0.3, 0},
			{0.9, 0.5, 0, 0.2},
		},
		[]string{"Flu", "Malaria", "Cold", "Flu"},
		enc,
	)
	require.NoError(t, err)

	data, err := MarshalArtifact(m)
	require.NoError(t, err)
	restored, err := UnmarshalArtifact(data)
	require.NoError(t, err)

	assert.True(t, restored.Encoder().Equal(m.Encoder()))
	assert.Equal(t, m.Labels(), restored.Labels())
	assert.True(t, m.TrainedAt().Equal(restored.TrainedAt()))
	assert.Equal(t, 4, restored.Samples())

	for _, v := range [][]float64{
		{1.0, 0.2, 0.7, 0},
		{0, 0, 0, 0},
		{0.1, 0.9, 0.4, 1.0},
	} {
		want, err := m.Posterior(v)
		require.NoError(t, err)
		got, err := restored.Posterior(v)
		require.NoError(t, err)
		assert.Equal(t, want, got, "posterior must match bit for bit")
	}
}

func TestMarshalArtifact_Untrained(t *testing.T) {
	_, err := MarshalArtifact(&Model{})
	assert.ErrorIs(t, err, ErrNotTrained)
}

func TestUnmarshalArtifact_Rejects(t *testing.T) {
	m := trainTwoClass(t)
	good, err := MarshalArtifact(m)
	require.NoError(t, err)

	mutate := func(fn func(map[string]any)) []byte {
		var raw map[string]any
		require.NoError(t, json.Unmarshal(good, &raw))
		fn(raw)
		b, err := json.Marshal(raw)
		require.NoError(t, err)
		return b
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"not json", []byte("{")},
		{"missing labels", mutate(func(r map[string]any) { delete(r, "labels") })},
		{"untrained", mutate(func(r map[string]any) { r["trained"] = false })},
		{"future major", mutate(func(r map[string]any) { r["format_version"] = "v2.0.0" })},
		{"extra field", mutate(func(r map[string]any) { r["weights"] = []any{} })},
		{"shape mismatch", mutate(func(r map[string]any) { r["class_counts"] = []any{1} })},
		{"feature width", mutate(func(r map[string]any) { r["symptom_slots"] = []any{1} })},
		{"unordered slots", mutate(func(r map[string]any) { r["symptom_slots"] = []any{2, 1} })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalArtifact(tt.data)
			require.Error(t, err)
			var invalid *ErrInvalidArtifact
			assert.True(t, errors.As(err, &invalid))
		})
	}
}

func TestUnmarshalArtifact_AcceptsMinorVersion(t *testing.T) {
	m := trainTwoClass(t)
	data, err := MarshalArtifact(m)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["format_version"] = "v1.4.2"
	data, err = json.Marshal(raw)
	require.NoError(t, err)

	_, err = UnmarshalArtifact(data)
	assert.NoError(t, err)
}
