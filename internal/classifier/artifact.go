package classifier

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"

	"github.com/abhisek/medpredict/internal/encoder"
)

// FormatVersion is written into every artifact. Artifacts with a different
// major version are rejected on restore.
const FormatVersion = "v1.0.0"

// artifact is the persisted form of a Model. The encoder travels with the
// parameters so a restored model can never be paired with another mapping.
type artifact struct {
	FormatVersion  string      `json:"format_version"`
	Trained        bool        `json:"trained"`
	TrainedAt      time.Time   `json:"trained_at"`
	Labels         []string    `json:"labels"`
	ClassCounts    []int       `json:"class_counts"`
	ClassLogPrior  []float64   `json:"class_log_prior"`
	FeatureLogProb [][]float64 `json:"feature_log_prob"`
	SymptomSlots   []int       `json:"symptom_slots"`
}

var artifactSchemaDef = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"format_version": map[string]any{"type": "string", "pattern": "^v[0-9]+\\.[0-9]+\\.[0-9]+$"},
		"trained":        map[string]any{"const": true},
		"trained_at":     map[string]any{"type": "string"},
		"labels": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"minItems":    1,
			"uniqueItems": true,
		},
		"class_counts": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "integer", "minimum": 1},
		},
		"class_log_prior": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "number", "maximum": 0},
		},
		"feature_log_prob": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "number", "maximum": 0},
			},
		},
		"symptom_slots": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "integer"},
			"uniqueItems": true,
		},
	},
	"required": []any{
		"format_version", "trained", "labels", "class_counts",
		"class_log_prior", "feature_log_prob", "symptom_slots",
	},
	"additionalProperties": false,
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func artifactSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		// The compiler wants a decoded JSON value, not Go ints.
		defBytes, err := json.Marshal(artifactSchemaDef)
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema definition: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(defBytes, &def); err != nil {
			schemaErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		const url = "schema://model-artifact.json"
		if err := c.AddResource(url, def); err != nil {
			schemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(url)
	})
	return compiledSchema, schemaErr
}

// MarshalArtifact serializes a trained model together with its encoder.
func MarshalArtifact(m *Model) ([]byte, error) {
	if !m.Trained() {
		return nil, ErrNotTrained
	}
	a := artifact{
		FormatVersion:  FormatVersion,
		Trained:        m.trained,
		TrainedAt:      m.trainedAt,
		Labels:         m.labels,
		ClassCounts:    m.classCounts,
		ClassLogPrior:  m.classLogPrior,
		FeatureLogProb: m.featureLogProb,
		SymptomSlots:   m.enc.SymptomIDs(),
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal artifact: %w", err)
	}
	return b, nil
}

// UnmarshalArtifact restores a model written by MarshalArtifact. Float
// parameters round-trip exactly, so predictions match the original model.
func UnmarshalArtifact(data []byte) (*Model, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &ErrInvalidArtifact{Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	schema, err := artifactSchema()
	if err != nil {
		return nil, &ErrInvalidArtifact{Err: fmt.Errorf("compile schema: %w", err)}
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, &ErrInvalidArtifact{Err: fmt.Errorf("schema validation failed: %w", err)}
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, &ErrInvalidArtifact{Err: err}
	}
	if !semver.IsValid(a.FormatVersion) || semver.Major(a.FormatVersion) != semver.Major(FormatVersion) {
		return nil, &ErrInvalidArtifact{Err: fmt.Errorf("unsupported format version %q (want %s)", a.FormatVersion, semver.Major(FormatVersion))}
	}

	n := len(a.Labels)
	if len(a.ClassCounts) != n || len(a.ClassLogPrior) != n || len(a.FeatureLogProb) != n {
		return nil, &ErrInvalidArtifact{Err: fmt.Errorf("parameter shapes disagree with %d labels", n)}
	}

	enc := encoder.New(a.SymptomSlots)
	slots := enc.SymptomIDs()
	for i, id := range a.SymptomSlots {
		if slots[i] != id {
			return nil, &ErrInvalidArtifact{Err: fmt.Errorf("symptom slots are not in ascending order")}
		}
	}
	for c, row := range a.FeatureLogProb {
		if len(row) != enc.Len() {
			return nil, &ErrInvalidArtifact{Err: fmt.Errorf("class %d has %d features, encoder has %d", c, len(row), enc.Len())}
		}
	}

	return &Model{
		labels:         a.Labels,
		classCounts:    a.ClassCounts,
		classLogPrior:  a.ClassLogPrior,
		featureLogProb: a.FeatureLogProb,
		enc:            enc,
		trained:        a.Trained,
		trainedAt:      a.TrainedAt,
	}, nil
}
