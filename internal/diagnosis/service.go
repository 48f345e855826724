package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/medpredict/internal/classifier"
	"github.com/abhisek/medpredict/internal/kb"
)

const (
	// DefaultModelKey is the artifact key the trained model is stored under.
	DefaultModelKey = "disease_predictor"

	// MaxMLCandidates is how many classifier classes are handed to the combiner.
	MaxMLCandidates = 5
)

// Predictor runs hybrid predictions and owns the trained model lifecycle.
// The published model is replaced atomically by Train; concurrent Predict
// calls always see a complete model.
type Predictor struct {
	source       KnowledgeSource
	store        ArtifactStore
	artifacts    ArtifactStore
	cache        *CachedArtifacts
	notifier     Notifier
	runs         TrainingRunRecorder
	modelKey     string
	historyLimit int
	warn         io.Writer
	now          func() time.Time

	model   atomic.Pointer[classifier.Model]
	trainMu sync.Mutex
	loads   singleflight.Group
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithCache puts c in front of the artifact store.
func WithCache(c Cache) Option {
	return func(p *Predictor) {
		if c != nil {
			p.cache = NewCachedArtifacts(p.store, c)
		}
	}
}

// WithNotifier publishes trained-model and prediction events to n.
func WithNotifier(n Notifier) Option {
	return func(p *Predictor) { p.notifier = n }
}

// WithRunLog records every training attempt in r.
func WithRunLog(r TrainingRunRecorder) Option {
	return func(p *Predictor) { p.runs = r }
}

// WithModelKey overrides DefaultModelKey.
func WithModelKey(key string) Option {
	return func(p *Predictor) {
		if key != "" {
			p.modelKey = key
		}
	}
}

// WithHistoryLimit bounds the submissions used for training.
func WithHistoryLimit(n int) Option {
	return func(p *Predictor) { p.historyLimit = n }
}

// WithWarnings redirects non-fatal warnings, which go to stderr by default.
func WithWarnings(w io.Writer) Option {
	return func(p *Predictor) {
		if w != nil {
			p.warn = w
		}
	}
}

// NewPredictor creates a predictor over a knowledge source and an artifact
// store. No model is loaded until the first Predict or Train.
func NewPredictor(source KnowledgeSource, artifacts ArtifactStore, opts ...Option) *Predictor {
	p := &Predictor{
		source:       source,
		store:        artifacts,
		artifacts:    artifacts,
		modelKey:     DefaultModelKey,
		historyLimit: MaxTrainingSubmissions,
		warn:         os.Stderr,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cache != nil {
		p.artifacts = p.cache
	}
	return p
}

// ModelKey returns the artifact key in use.
func (p *Predictor) ModelKey() string {
	return p.modelKey
}

// Model returns the published model, or nil if none has been loaded.
func (p *Predictor) Model() *classifier.Model {
	return p.model.Load()
}

// Predict scores req against the knowledge base and the trained model.
// A result with no candidates is not an error; see Result.Empty.
func (p *Predictor) Predict(ctx context.Context, req PredictRequest) (*Result, error) {
	if err := kb.ValidateObservations(req.Observations); err != nil {
		return nil, err
	}
	knowledge, err := p.source.KnowledgeBase(ctx)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}
	obs := knowledge.FillSeverities(req.Observations)

	model, err := p.currentModel(ctx)
	if err != nil {
		if !errors.Is(err, classifier.ErrNoTrainingData) {
			return nil, err
		}
		p.warnf("no trained model, using rules only: %v", err)
		model = nil
	}

	var (
		severity Severity
		rules    []RuleScore
		ml       []Candidate
		dropped  []string
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		severity = AssessSeverity(obs)
		return nil
	})
	g.Go(func() error {
		rules = MatchRules(knowledge, obs, req.User)
		return nil
	})
	g.Go(func() error {
		if model == nil || len(obs) == 0 {
			return nil
		}
		preds, err := model.PredictObservations(obs, MaxMLCandidates)
		if err != nil {
			return fmt.Errorf("classify: %w", err)
		}
		ml, dropped = resolveLabels(knowledge, preds)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Candidates:     Combine(ml, RuleCandidates(rules)),
		Severity:       severity,
		Interpretation: Interpretation(severity.Category),
		Observations:   obs,
		RuleScores:     rules,
		Dropped:        dropped,
	}
	if model != nil {
		res.ModelTrainedAt = model.TrainedAt()
	}
	if primary, ok := res.Primary(); ok {
		if d, ok := knowledge.Disease(primary.DiseaseID); ok {
			res.Recommendations = RecommendationsFor(d)
		}
		res.NextSteps = NextSteps(severity.Category, primary.DiseaseName)
	}

	p.notifyPrediction(ctx, res)
	return res, nil
}

// resolveLabels maps classifier labels back to current diseases. Labels
// with no matching disease are returned separately.
func resolveLabels(knowledge *kb.KnowledgeBase, preds []classifier.Prediction) ([]Candidate, []string) {
	var out []Candidate
	var dropped []string
	for _, pr := range preds {
		d, ok := knowledge.DiseaseByName(pr.Label)
		if !ok {
			dropped = append(dropped, pr.Label)
			continue
		}
		out = append(out, Candidate{
			DiseaseID:   d.ID,
			DiseaseName: d.Name,
			Confidence:  pr.Confidence,
		})
	}
	return out, dropped
}

// currentModel returns the published model, restoring it from the artifact
// store on first use and training only when nothing is persisted.
func (p *Predictor) currentModel(ctx context.Context) (*classifier.Model, error) {
	if m := p.model.Load(); m != nil {
		return m, nil
	}
	v, err, _ := p.loads.Do(p.modelKey, func() (any, error) {
		if m := p.model.Load(); m != nil {
			return m, nil
		}
		m, err := p.restore(ctx)
		if err != nil {
			return nil, err
		}
		if m != nil {
			p.model.CompareAndSwap(nil, m)
			return p.model.Load(), nil
		}
		if _, err := p.Train(ctx); err != nil {
			return nil, err
		}
		return p.model.Load(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*classifier.Model), nil
}

// restore returns nil, nil when there is no usable artifact.
func (p *Predictor) restore(ctx context.Context) (*classifier.Model, error) {
	data, err := p.artifacts.LoadArtifact(ctx, p.modelKey)
	if err != nil {
		return nil, fmt.Errorf("load model artifact: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	m, err := classifier.UnmarshalArtifact(data)
	if err != nil {
		p.warnf("discarding model artifact %q: %v", p.modelKey, err)
		return nil, nil
	}
	return m, nil
}

// Train fits a new model from the current knowledge base and history,
// persists it, invalidates any cached copy, and publishes it. On failure
// the previously published model and artifact are left as they were.
func (p *Predictor) Train(ctx context.Context) (classifier.Summary, error) {
	p.trainMu.Lock()
	defer p.trainMu.Unlock()

	start := p.now()
	summary, err := p.train(ctx)

	run := kb.TrainingRun{
		Samples:   summary.SamplesTrained,
		Diseases:  summary.Diseases,
		Symptoms:  summary.Symptoms,
		Duration:  p.now().Sub(start),
		Success:   err == nil,
		CreatedAt: start,
	}
	if err != nil {
		run.ErrorMessage = err.Error()
	}
	p.recordRun(ctx, run)
	return summary, err
}

func (p *Predictor) train(ctx context.Context) (classifier.Summary, error) {
	knowledge, err := p.source.KnowledgeBase(ctx)
	if err != nil {
		return classifier.Summary{}, fmt.Errorf("load knowledge base: %w", err)
	}
	subs, err := p.source.TrainingSubmissions(ctx, p.historyLimit)
	if err != nil {
		return classifier.Summary{}, fmt.Errorf("load training submissions: %w", err)
	}

	set := BuildTrainingSet(knowledge, subs, p.historyLimit)
	model, summary, err := classifier.Train(set.X, set.Y, set.Encoder)
	if err != nil {
		return classifier.Summary{}, err
	}

	data, err := classifier.MarshalArtifact(model)
	if err != nil {
		return summary, err
	}
	if err := p.store.SaveArtifact(ctx, p.modelKey, data); err != nil {
		return summary, fmt.Errorf("save model artifact: %w", err)
	}

	var invalidateErr error
	if p.cache != nil {
		invalidateErr = p.cache.Invalidate(ctx, p.modelKey)
	}
	p.model.Store(model)

	if p.notifier != nil {
		evt := TrainedEvent{
			ModelKey:       p.modelKey,
			SamplesTrained: summary.SamplesTrained,
			Diseases:       summary.Diseases,
			Symptoms:       summary.Symptoms,
			TrainedAt:      model.TrainedAt(),
		}
		if err := p.notifier.ModelTrained(ctx, evt); err != nil {
			p.warnf("failed to publish model.trained: %v", err)
		}
	}
	return summary, invalidateErr
}

// Forget drops the published model and any cached artifact, so the next
// Predict restores or retrains.
func (p *Predictor) Forget(ctx context.Context) error {
	p.trainMu.Lock()
	defer p.trainMu.Unlock()

	p.model.Store(nil)
	if p.cache != nil {
		return p.cache.Invalidate(ctx, p.modelKey)
	}
	return nil
}

// Drift describes how the knowledge base has moved since a model was trained.
type Drift struct {
	NewSymptoms       []int    // known now, absent from the model's encoder
	RemovedSymptoms   []int    // in the encoder, no longer known
	UnknownLabels     []string // model classes with no current disease
	UntrainedDiseases []string // current diseases the model cannot predict
}

// Any reports whether the model is out of step with the knowledge base.
func (d Drift) Any() bool {
	return len(d.NewSymptoms) > 0 || len(d.RemovedSymptoms) > 0 ||
		len(d.UnknownLabels) > 0 || len(d.UntrainedDiseases) > 0
}

// DriftOf compares a model with a knowledge base.
func DriftOf(m *classifier.Model, knowledge *kb.KnowledgeBase) Drift {
	var d Drift
	trained := make(map[int]bool)
	for _, id := range m.Encoder().SymptomIDs() {
		trained[id] = true
	}
	for _, s := range knowledge.Symptoms() {
		if !trained[s.ID] {
			d.NewSymptoms = append(d.NewSymptoms, s.ID)
		}
		delete(trained, s.ID)
	}
	for id := range trained {
		d.RemovedSymptoms = append(d.RemovedSymptoms, id)
	}
	sort.Ints(d.RemovedSymptoms)

	labels := make(map[string]bool)
	for _, l := range m.Labels() {
		labels[l] = true
		if _, ok := knowledge.DiseaseByName(l); !ok {
			d.UnknownLabels = append(d.UnknownLabels, l)
		}
	}
	for _, dis := range knowledge.Diseases() {
		if !labels[dis.Name] {
			d.UntrainedDiseases = append(d.UntrainedDiseases, dis.Name)
		}
	}
	return d
}

// Drift restores the model if needed and compares it with the current
// knowledge base. It returns nil when no model is persisted.
func (p *Predictor) Drift(ctx context.Context) (*Drift, error) {
	m := p.model.Load()
	if m == nil {
		var err error
		if m, err = p.restore(ctx); err != nil {
			return nil, err
		}
		if m == nil {
			return nil, nil
		}
	}
	knowledge, err := p.source.KnowledgeBase(ctx)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}
	d := DriftOf(m, knowledge)
	return &d, nil
}

func (p *Predictor) notifyPrediction(ctx context.Context, res *Result) {
	if p.notifier == nil {
		return
	}
	evt := PredictedEvent{
		SeverityCategory: res.Severity.Category,
		Candidates:       len(res.Candidates),
		At:               p.now(),
	}
	if primary, ok := res.Primary(); ok {
		evt.PrimaryDisease = primary.DiseaseName
		evt.Confidence = primary.Confidence
	}
	if err := p.notifier.PredictionCompleted(ctx, evt); err != nil {
		p.warnf("failed to publish prediction.completed: %v", err)
	}
}

func (p *Predictor) recordRun(ctx context.Context, run kb.TrainingRun) {
	if p.runs == nil {
		return
	}
	if err := p.runs.AppendTrainingRun(ctx, run); err != nil {
		p.warnf("failed to record training run: %v", err)
	}
}

func (p *Predictor) warnf(format string, args ...any) {
	fmt.Fprintf(p.warn, "warning: "+format+"\n", args...)
}
