package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/medpredict/internal/kb"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seededStore(t *testing.T) (*Store, *kb.KnowledgeBase) {
	t.Helper()
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.KnowledgeRepo().Seed(ctx, kb.DefaultSeed()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	k, err := s.KnowledgeBase(ctx)
	if err != nil {
		t.Fatalf("knowledge base: %v", err)
	}
	return s, k
}

func mustDisease(t *testing.T, k *kb.KnowledgeBase, name string) kb.Disease {
	t.Helper()
	d, ok := k.DiseaseByName(name)
	if !ok {
		t.Fatalf("disease %q not seeded", name)
	}
	return d
}

func mustSymptom(t *testing.T, k *kb.KnowledgeBase, name string) kb.Symptom {
	t.Helper()
	s, ok := k.SymptomByName(name)
	if !ok {
		t.Fatalf("symptom %q not seeded", name)
	}
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db")
	}
	if s.Dialect() != "sqlite3" {
		t.Errorf("dialect = %q, want sqlite3", s.Dialect())
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)

	for _, table := range Tables {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table.Name,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table.Name, err)
		}
	}
}

func TestResolveDriver(t *testing.T) {
	tests := []struct {
		dsn     string
		driver  string
		dialect string
		prefix  string
	}{
		{"postgres://u:p@localhost/med", "pgx", "postgres", "postgres://u:p@localhost/med"},
		{"postgresql://localhost/med", "pgx", "postgres", "postgresql://localhost/med"},
		{"/tmp/med.db", "sqlite", "sqlite3", "/tmp/med.db?_pragma=journal_mode(WAL)&"},
		{"file::memory:?cache=shared", "sqlite", "sqlite3", "file::memory:?cache=shared&_pragma="},
	}
	for _, tt := range tests {
		driver, dialect, source := resolveDriver(tt.dsn)
		if driver != tt.driver || dialect != tt.dialect {
			t.Errorf("%s: got %s/%s, want %s/%s", tt.dsn, driver, dialect, tt.driver, tt.dialect)
		}
		if !strings.HasPrefix(source, tt.prefix) {
			t.Errorf("%s: source = %q", tt.dsn, source)
		}
	}
}

func TestDefaultDBPath(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("MEDPREDICT_DB", filepath.Join(dir, "nested", "x.db"))
	p, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("default path: %v", err)
	}
	if p != filepath.Join(dir, "nested", "x.db") {
		t.Errorf("path = %q", p)
	}

	t.Setenv("MEDPREDICT_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)
	p, err = DefaultDBPath()
	if err != nil {
		t.Fatalf("default path: %v", err)
	}
	if p != filepath.Join(dir, "medpredict", "medpredict.db") {
		t.Errorf("path = %q", p)
	}
}

func TestSeedLoadsKnowledgeBase(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seed := kb.DefaultSeed()

	res, err := s.KnowledgeRepo().Seed(ctx, seed)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if res.Symptoms != len(seed.Symptoms) || res.Diseases != len(seed.Diseases) {
		t.Errorf("seeded %+v, want %d symptoms and %d diseases", res, len(seed.Symptoms), len(seed.Diseases))
	}

	k, err := s.KnowledgeBase(ctx)
	if err != nil {
		t.Fatalf("knowledge base: %v", err)
	}
	if len(k.Symptoms()) != len(seed.Symptoms) || len(k.Diseases()) != len(seed.Diseases) {
		t.Errorf("loaded %d symptoms, %d diseases", len(k.Symptoms()), len(k.Diseases()))
	}
	if len(k.Weights()) != res.Weights {
		t.Errorf("loaded %d weights, seeded %d", len(k.Weights()), res.Weights)
	}

	// Seeding again is a no-op.
	res, err = s.KnowledgeRepo().Seed(ctx, seed)
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if res != (SeedResult{}) {
		t.Errorf("reseed created %+v", res)
	}
}

func TestSeedUnknownSymptomRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.KnowledgeRepo().Seed(ctx, kb.Seed{
		Symptoms: []kb.SeedSymptom{{Name: "Fever"}},
		Diseases: []kb.SeedDisease{{Name: "Flu", Weights: []kb.SeedWeight{{Symptom: "Cough", Weight: 3}}}},
	})
	if err == nil {
		t.Fatal("expected error for unknown symptom")
	}

	k, err := s.KnowledgeBase(ctx)
	if err != nil {
		t.Fatalf("knowledge base: %v", err)
	}
	if len(k.Symptoms()) != 0 || len(k.Diseases()) != 0 {
		t.Error("failed seed left rows behind")
	}
}

func TestSetWeight(t *testing.T) {
	s := openTestStore(t)
	repo := s.KnowledgeRepo()
	ctx := context.Background()

	did, err := repo.CreateDisease(ctx, kb.Disease{Name: "Flu", LifestyleTips: "• Rest"})
	if err != nil {
		t.Fatalf("create disease: %v", err)
	}
	sid, err := repo.CreateSymptom(ctx, kb.Symptom{Name: "Fever"})
	if err != nil {
		t.Fatalf("create symptom: %v", err)
	}

	if err := repo.SetWeight(ctx, kb.DiseaseSymptomWeight{DiseaseID: did, SymptomID: sid, Weight: 4}); err != nil {
		t.Fatalf("set weight: %v", err)
	}
	if err := repo.SetWeight(ctx, kb.DiseaseSymptomWeight{DiseaseID: did, SymptomID: sid, Weight: 8}); err != nil {
		t.Fatalf("update weight: %v", err)
	}

	var verr *kb.ValidationError
	if err := repo.SetWeight(ctx, kb.DiseaseSymptomWeight{DiseaseID: did, SymptomID: sid, Weight: 11}); !errors.As(err, &verr) {
		t.Errorf("weight 11: got %v, want ValidationError", err)
	}

	k, err := repo.KnowledgeBase(ctx)
	if err != nil {
		t.Fatalf("knowledge base: %v", err)
	}
	got := k.WeightsFor(did)
	if len(got) != 1 || got[0].Weight != 8 {
		t.Errorf("weights = %+v, want one weight of 8", got)
	}
	if d, _ := k.Disease(did); d.LifestyleTips != "• Rest" {
		t.Errorf("lifestyle tips = %q", d.LifestyleTips)
	}
}

func TestCreateRejectsDuplicatesAndBlanks(t *testing.T) {
	s := openTestStore(t)
	repo := s.KnowledgeRepo()
	ctx := context.Background()

	if _, err := repo.CreateSymptom(ctx, kb.Symptom{Name: "Fever"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateSymptom(ctx, kb.Symptom{Name: "Fever"}); err == nil {
		t.Error("expected duplicate symptom name to fail")
	}
	if _, err := repo.CreateDisease(ctx, kb.Disease{Name: "  "}); err == nil {
		t.Error("expected blank disease name to fail")
	}
}

func TestSubmissionRecordAndRecent(t *testing.T) {
	s, k := seededStore(t)
	repo := s.SubmissionRepo()
	ctx := context.Background()
	flu := mustDisease(t, k, "Influenza")
	fever := mustSymptom(t, k, "Fever")

	id, err := repo.Record(ctx, kb.SubmissionRecord{
		UserID:    "u1",
		SessionID: "sess-1",
		Observations: []kb.SymptomObservation{
			{SymptomID: fever.ID, Severity: 8, Duration: "2 days", Onset: kb.OnsetSudden},
		},
		Predictions: []kb.PredictedDisease{
			{Rank: 1, DiseaseID: flu.ID, DiseaseName: flu.Name, Confidence: 81.5},
		},
		PrimaryDiseaseID: flu.ID,
		SeverityScore:    80,
		SeverityCategory: kb.SeverityRisky,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("id = %q, want a UUID", id)
	}

	recs, err := repo.Recent(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.ID != id || rec.SessionID != "sess-1" || rec.UserID != "u1" {
		t.Errorf("record = %+v", rec)
	}
	if rec.PrimaryDisease != flu.Name {
		t.Errorf("primary = %q, want %q", rec.PrimaryDisease, flu.Name)
	}
	if len(rec.Observations) != 1 || rec.Observations[0].Onset != kb.OnsetSudden || rec.Observations[0].Severity != 8 {
		t.Errorf("observations = %+v", rec.Observations)
	}
	if len(rec.Predictions) != 1 || rec.Predictions[0].Confidence != 81.5 {
		t.Errorf("predictions = %+v", rec.Predictions)
	}
	if rec.SeverityCategory != kb.SeverityRisky {
		t.Errorf("category = %q", rec.SeverityCategory)
	}

	other, err := repo.Recent(ctx, "u2", 10)
	if err != nil {
		t.Fatalf("recent u2: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("u2 sees %d records", len(other))
	}
}

func TestTrainingSubmissionsNewestFirst(t *testing.T) {
	s, k := seededStore(t)
	repo := s.SubmissionRepo()
	ctx := context.Background()
	flu := mustDisease(t, k, "Influenza")
	cold := mustDisease(t, k, "Common Cold")

	base := time.Now().Add(-time.Hour)
	for i, d := range []int{flu.ID, cold.ID, 0, flu.ID} {
		_, err := repo.Record(ctx, kb.SubmissionRecord{
			PrimaryDiseaseID: d,
			SeverityCategory: kb.SeverityNormal,
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	recs, err := repo.TrainingSubmissions(ctx, 10)
	if err != nil {
		t.Fatalf("training submissions: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d, want 3 (one has no primary)", len(recs))
	}
	if recs[0].PrimaryDiseaseID != flu.ID || recs[1].PrimaryDiseaseID != cold.ID {
		t.Errorf("order = %d, %d", recs[0].PrimaryDiseaseID, recs[1].PrimaryDiseaseID)
	}

	recs, err = repo.TrainingSubmissions(ctx, 2)
	if err != nil {
		t.Fatalf("training submissions: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("limit ignored: got %d", len(recs))
	}
}

func TestUserHistory(t *testing.T) {
	s, k := seededStore(t)
	repo := s.SubmissionRepo()
	ctx := context.Background()
	flu := mustDisease(t, k, "Influenza")
	cold := mustDisease(t, k, "Common Cold")

	record := func(user string, preds ...kb.PredictedDisease) {
		t.Helper()
		if _, err := repo.Record(ctx, kb.SubmissionRecord{UserID: user, Predictions: preds, SeverityCategory: kb.SeverityNormal}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	record("u1", kb.PredictedDisease{Rank: 1, DiseaseID: flu.ID, DiseaseName: flu.Name, Confidence: 70},
		kb.PredictedDisease{Rank: 2, DiseaseID: cold.ID, DiseaseName: cold.Name, Confidence: 69.99})
	record("u1", kb.PredictedDisease{Rank: 1, DiseaseID: flu.ID, DiseaseName: flu.Name, Confidence: 91})
	record("u2", kb.PredictedDisease{Rank: 1, DiseaseID: cold.ID, DiseaseName: cold.Name, Confidence: 99})

	h, err := repo.UserHistory(ctx, "u1", kb.HighConfidenceThreshold)
	if err != nil {
		t.Fatalf("user history: %v", err)
	}
	if !h.Authenticated() {
		t.Error("expected authenticated history")
	}
	if h.HighConfidenceCount(flu.ID) != 2 {
		t.Errorf("flu count = %d, want 2", h.HighConfidenceCount(flu.ID))
	}
	if h.HighConfidenceCount(cold.ID) != 0 {
		t.Errorf("cold count = %d, want 0", h.HighConfidenceCount(cold.ID))
	}

	anon, err := repo.UserHistory(ctx, "", kb.HighConfidenceThreshold)
	if err != nil {
		t.Fatalf("anonymous history: %v", err)
	}
	if anon.Authenticated() || len(anon.Counts) != 0 {
		t.Errorf("anonymous history = %+v", anon)
	}
}

func TestResetKeepsSubmissions(t *testing.T) {
	s, k := seededStore(t)
	ctx := context.Background()
	flu := mustDisease(t, k, "Influenza")

	if _, err := s.SubmissionRepo().Record(ctx, kb.SubmissionRecord{
		PrimaryDiseaseID: flu.ID,
		SeverityCategory: kb.SeverityNormal,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := s.KnowledgeRepo().Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	k, err := s.KnowledgeBase(ctx)
	if err != nil {
		t.Fatalf("knowledge base: %v", err)
	}
	if len(k.Diseases()) != 0 || len(k.Symptoms()) != 0 || len(k.Weights()) != 0 {
		t.Error("reset left knowledge behind")
	}

	recent, err := s.SubmissionRepo().Recent(ctx, "", 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 || recent[0].PrimaryDiseaseID != 0 {
		t.Errorf("submission after reset = %+v", recent)
	}
	train, err := s.TrainingSubmissions(ctx, 10)
	if err != nil {
		t.Fatalf("training submissions: %v", err)
	}
	if len(train) != 0 {
		t.Errorf("orphaned submission still used for training")
	}
}

func TestStats(t *testing.T) {
	s, k := seededStore(t)
	repo := s.SubmissionRepo()
	ctx := context.Background()
	flu := mustDisease(t, k, "Influenza")
	cold := mustDisease(t, k, "Common Cold")

	empty, err := repo.Stats(ctx, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if empty.TotalPredictions != 0 || empty.Percentage(kb.SeverityRisky) != 0 {
		t.Errorf("empty stats = %+v", empty)
	}

	subs := []kb.SubmissionRecord{
		{UserID: "u1", PrimaryDiseaseID: flu.ID, SeverityScore: 80, SeverityCategory: kb.SeverityRisky},
		{UserID: "u1", PrimaryDiseaseID: flu.ID, SeverityScore: 60, SeverityCategory: kb.SeverityModerate},
		{UserID: "u1", PrimaryDiseaseID: cold.ID, SeverityScore: 20, SeverityCategory: kb.SeverityNormal},
		{UserID: "u2", SeverityScore: 10, SeverityCategory: kb.SeverityNormal},
	}
	for _, sub := range subs {
		if _, err := repo.Record(ctx, sub); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	st, err := repo.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalPredictions != 3 {
		t.Errorf("total = %d, want 3", st.TotalPredictions)
	}
	if st.AvgSeverity != 53.33 {
		t.Errorf("avg severity = %v, want 53.33", st.AvgSeverity)
	}
	if st.Distribution[kb.SeverityRisky] != 1 || st.Distribution[kb.SeverityNormal] != 1 {
		t.Errorf("distribution = %v", st.Distribution)
	}
	if st.Percentage(kb.SeverityModerate) != 33.3 {
		t.Errorf("moderate %% = %v, want 33.3", st.Percentage(kb.SeverityModerate))
	}
	if len(st.Diseases) != 2 || st.Diseases[0].DiseaseName != flu.Name || st.Diseases[0].Count != 2 {
		t.Fatalf("diseases = %+v", st.Diseases)
	}
	if st.Diseases[0].AvgSeverity != 70 || st.Diseases[0].Percentage != 66.7 {
		t.Errorf("flu stat = %+v", st.Diseases[0])
	}
	if len(st.Monthly) == 0 || st.Monthly[len(st.Monthly)-1].Count == 0 {
		t.Errorf("monthly = %+v", st.Monthly)
	}

	all, err := repo.Stats(ctx, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if all.TotalPredictions != 4 {
		t.Errorf("total = %d, want 4", all.TotalPredictions)
	}
	var unknown bool
	for _, d := range all.Diseases {
		if d.DiseaseName == "Unknown" {
			unknown = true
		}
	}
	if !unknown {
		t.Error("submission without primary should count as Unknown")
	}
}

func TestArtifactSaveAndLatest(t *testing.T) {
	s := openTestStore(t)
	repo := s.ArtifactRepo()
	ctx := context.Background()

	// Nothing stored yet.
	if _, err := repo.Latest(ctx, "m"); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("latest (empty): got %v, want ErrArtifactNotFound", err)
	}
	data, err := repo.LoadArtifact(ctx, "m")
	if err != nil || data != nil {
		t.Fatalf("load (empty) = %v, %v; want nil, nil", data, err)
	}

	for i := 1; i <= 3; i++ {
		if err := repo.Save(ctx, &Artifact{Key: "m", FormatVersion: "v1.0.0", Payload: []byte(fmt.Sprintf("p%d", i))}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if err := repo.Save(ctx, &Artifact{Key: "other", FormatVersion: "v1.0.0", Payload: []byte("x")}); err != nil {
		t.Fatalf("save other: %v", err)
	}

	a, err := repo.Latest(ctx, "m")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if string(a.Payload) != "p3" || a.FormatVersion != "v1.0.0" {
		t.Errorf("latest = %q %q, want p3", a.Payload, a.FormatVersion)
	}
}

func TestArtifactPrune(t *testing.T) {
	s := openTestStore(t)
	repo := s.ArtifactRepo()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if err := repo.Save(ctx, &Artifact{Key: "m", FormatVersion: "v1.0.0", Payload: []byte{byte(i)}}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if err := repo.Save(ctx, &Artifact{Key: "keep", FormatVersion: "v1.0.0", Payload: []byte("k")}); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Prune to keep 5.
	if err := repo.Prune(ctx, "m", 5); err != nil {
		t.Fatalf("prune: %v", err)
	}

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM model_artifacts WHERE key = 'm'").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Errorf("remaining artifacts = %d, want 5", count)
	}
	a, err := repo.Latest(ctx, "m")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if a.Payload[0] != 6 {
		t.Errorf("latest payload = %d, want 6", a.Payload[0])
	}
	if _, err := repo.Latest(ctx, "keep"); err != nil {
		t.Errorf("prune touched another key: %v", err)
	}

	// Prune with keep greater than the count is a no-op.
	if err := repo.Prune(ctx, "m", 50); err != nil {
		t.Fatalf("prune: %v", err)
	}
}

func TestArtifactSaveArtifactKeepsRecentVersions(t *testing.T) {
	s := openTestStore(t)
	repo := s.ArtifactRepo()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.SaveArtifact(ctx, "m", []byte{byte(i)}); err != nil {
			t.Fatalf("save artifact %d: %v", i, err)
		}
	}
	data, err := repo.LoadArtifact(ctx, "m")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(data) != 1 || data[0] != 4 {
		t.Errorf("load = %v, want [4]", data)
	}

	n, err := repo.Delete(ctx, "m")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != keepArtifacts {
		t.Errorf("deleted %d, want %d", n, keepArtifacts)
	}
	if data, _ := repo.LoadArtifact(ctx, "m"); data != nil {
		t.Error("artifact survived delete")
	}
}

func TestTrainingRuns(t *testing.T) {
	s := openTestStore(t)
	repo := s.TrainingRunRepo()
	ctx := context.Background()

	run, err := repo.LatestTrainingRun(ctx)
	if err != nil {
		t.Fatalf("latest (empty): %v", err)
	}
	if run != nil {
		t.Fatal("expected nil run when none exist")
	}

	if err := repo.AppendTrainingRun(ctx, kb.TrainingRun{Samples: 6, Diseases: 6, Symptoms: 20, Duration: 42 * time.Millisecond, Success: true}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.AppendTrainingRun(ctx, kb.TrainingRun{Success: false, ErrorMessage: "no training data available"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	run, err = repo.LatestTrainingRun(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if run.Success || run.ErrorMessage != "no training data available" {
		t.Errorf("latest = %+v", run)
	}

	runs, err := repo.TrainingRuns(ctx, 0)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[1].Duration != 42*time.Millisecond || runs[1].Symptoms != 20 || !runs[1].Success {
		t.Errorf("first run = %+v", runs[1])
	}
}
