package diagnosis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abhisek/medpredict/internal/kb"
)

const (
	symFever    = 1
	symCough    = 2
	symChills   = 3
	symHeadache = 4
	symRash     = 5

	disFlu     = 1
	disMalaria = 2
	disMeasles = 3
)

func fluKB(t *testing.T) *kb.KnowledgeBase {
	t.Helper()
	k, err := kb.NewKnowledgeBase(
		[]kb.Disease{
			{ID: disFlu, Name: "Flu", LifestyleTips: "• Rest\n• Stay home", DietAdvice: "- Warm fluids", MedicalAdvice: "* See a doctor if fever persists"},
			{ID: disMalaria, Name: "Malaria"},
			{ID: disMeasles, Name: "Measles"},
		},
		[]kb.Symptom{
			{ID: symFever, Name: "Fever"},
			{ID: symCough, Name: "Cough"},
			{ID: symChills, Name: "Chills"},
			{ID: symHeadache, Name: "Headache"},
			{ID: symRash, Name: "Rash"},
		},
		[]kb.DiseaseSymptomWeight{
			{DiseaseID: disFlu, SymptomID: symFever, Weight: 8},
			{DiseaseID: disFlu, SymptomID: symCough, Weight: 6},
			{DiseaseID: disMalaria, SymptomID: symFever, Weight: 10},
			{DiseaseID: disMalaria, SymptomID: symChills, Weight: 8},
			{DiseaseID: disMalaria, SymptomID: symHeadache, Weight: 6},
			{DiseaseID: disMeasles, SymptomID: symRash, Weight: 9},
			{DiseaseID: disMeasles, SymptomID: symFever, Weight: 5},
		},
	)
	require.NoError(t, err)
	return k
}

// memSource is a KnowledgeSource whose contents can be swapped by tests.
type memSource struct {
	mu         sync.Mutex
	kb         *kb.KnowledgeBase
	subs       []kb.SubmissionRecord
	err        error
	trainLoads int
}

func (s *memSource) set(k *kb.KnowledgeBase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kb = k
}

func (s *memSource) KnowledgeBase(ctx context.Context) (*kb.KnowledgeBase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.kb, nil
}

func (s *memSource) TrainingSubmissions(ctx context.Context, limit int) ([]kb.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trainLoads++
	if len(s.subs) > limit {
		return s.subs[:limit], nil
	}
	return s.subs, nil
}

func (s *memSource) loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trainLoads
}

// memArtifacts is an in-memory ArtifactStore.
type memArtifacts struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves int
	err   error
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{data: make(map[string][]byte)}
}

func (a *memArtifacts) SaveArtifact(ctx context.Context, key string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.data[key] = append([]byte(nil), data...)
	a.saves++
	return nil
}

func (a *memArtifacts) LoadArtifact(ctx context.Context, key string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	d, ok := a.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), d...), nil
}

// memCache is an in-memory Cache that can be made to fail.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	delErr  error
	deletes int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	if c.delErr != nil {
		return c.delErr
	}
	delete(c.data, key)
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// recorder captures notifications and training runs.
type recorder struct {
	mu        sync.Mutex
	trained   []TrainedEvent
	predicted []PredictedEvent
	runs      []kb.TrainingRun
	fail      bool
}

func (r *recorder) ModelTrained(ctx context.Context, evt TrainedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trained = append(r.trained, evt)
	if r.fail {
		return errors.New("bus down")
	}
	return nil
}

func (r *recorder) PredictionCompleted(ctx context.Context, evt PredictedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predicted = append(r.predicted, evt)
	if r.fail {
		return errors.New("bus down")
	}
	return nil
}

func (r *recorder) AppendTrainingRun(ctx context.Context, run kb.TrainingRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}
