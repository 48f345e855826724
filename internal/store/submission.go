package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/medpredict/internal/kb"
)

// submissionRepo implements SubmissionRepo.
type submissionRepo struct {
	s *Store
}

func (r *submissionRepo) Record(ctx context.Context, rec kb.SubmissionRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	b := r.s.builder()

	err := r.s.withTx(ctx, func(tx *sql.Tx) error {
		query, args := b.Insert(SubmissionsTable.Name).
			Columns("id", "user_id", "session_id", "severity_score", "severity_category", "created_at", "primary_disease_id").
			Values(rec.ID, nullString(rec.UserID), rec.SessionID, rec.SeverityScore,
				string(rec.SeverityCategory), rec.CreatedAt.UTC(), nullInt(rec.PrimaryDiseaseID)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}

		if len(rec.Observations) > 0 {
			ins := b.Insert(SubmissionSymptomsTable.Name).
				Columns("submission_id", "symptom_id", "severity", "duration", "onset")
			for _, o := range rec.Observations {
				ins.Values(rec.ID, o.SymptomID, o.Severity, o.Duration, string(o.Onset))
			}
			query, args := ins.Query()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert submission symptoms: %w", err)
			}
		}

		if len(rec.Predictions) > 0 {
			ins := b.Insert(PredictionsTable.Name).
				Columns("submission_id", "disease_id", "disease_name", "confidence", "rank")
			for _, p := range rec.Predictions {
				ins.Values(rec.ID, p.DiseaseID, p.DiseaseName, p.Confidence, p.Rank)
			}
			query, args := ins.Query()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert predictions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("record submission: %w", err)
	}
	return rec.ID, nil
}

func (r *submissionRepo) TrainingSubmissions(ctx context.Context, limit int) ([]kb.SubmissionRecord, error) {
	return r.query(ctx, entsql.NotNull("primary_disease_id"), limit)
}

func (r *submissionRepo) Recent(ctx context.Context, userID string, limit int) ([]kb.SubmissionRecord, error) {
	var where *entsql.Predicate
	if userID != "" {
		where = entsql.EQ("user_id", userID)
	}
	return r.query(ctx, where, limit)
}

func (r *submissionRepo) UserHistory(ctx context.Context, userID string, threshold float64) (kb.UserHistory, error) {
	h := kb.UserHistory{UserID: userID, Counts: make(map[int]int)}
	if userID == "" {
		return h, nil
	}

	b := r.s.builder()
	p := b.Table(PredictionsTable.Name)
	s := b.Table(SubmissionsTable.Name)
	query, args := b.Select(p.C("disease_id"), entsql.Count("*")).
		From(p).
		Join(s).On(p.C("submission_id"), s.C("id")).
		Where(entsql.And(
			entsql.EQ(s.C("user_id"), userID),
			entsql.GTE(p.C("confidence"), threshold),
		)).
		GroupBy(p.C("disease_id")).
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return h, fmt.Errorf("query user history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var diseaseID, count int
		if err := rows.Scan(&diseaseID, &count); err != nil {
			return h, fmt.Errorf("scan user history: %w", err)
		}
		h.Counts[diseaseID] = count
	}
	return h, rows.Err()
}

// query loads submissions matching where, newest first, with their
// observations, predictions and primary disease name.
func (r *submissionRepo) query(ctx context.Context, where *entsql.Predicate, limit int) ([]kb.SubmissionRecord, error) {
	b := r.s.builder()
	sel := b.Select("id", "user_id", "session_id", "severity_score", "severity_category", "created_at", "primary_disease_id").
		From(b.Table(SubmissionsTable.Name)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if where != nil {
		sel.Where(where)
	}
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	var recs []kb.SubmissionRecord
	index := make(map[string]int)
	for rows.Next() {
		var (
			rec      kb.SubmissionRecord
			userID   sql.NullString
			category string
			primary  sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &userID, &rec.SessionID, &rec.SeverityScore, &category, &rec.CreatedAt, &primary); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		rec.UserID = userID.String
		rec.SeverityCategory = kb.SeverityCategory(category)
		rec.PrimaryDiseaseID = int(primary.Int64)
		index[rec.ID] = len(recs)
		recs = append(recs, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}

	ids := make([]any, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	if err := r.loadObservations(ctx, ids, recs, index); err != nil {
		return nil, err
	}
	if err := r.loadPredictions(ctx, ids, recs, index); err != nil {
		return nil, err
	}
	if err := r.loadPrimaryNames(ctx, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *submissionRepo) loadObservations(ctx context.Context, ids []any, recs []kb.SubmissionRecord, index map[string]int) error {
	b := r.s.builder()
	query, args := b.Select("submission_id", "symptom_id", "severity", "duration", "onset").
		From(b.Table(SubmissionSymptomsTable.Name)).
		Where(entsql.In("submission_id", ids...)).
		OrderBy("id").
		Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query submission symptoms: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			subID string
			onset string
			o     kb.SymptomObservation
		)
		if err := rows.Scan(&subID, &o.SymptomID, &o.Severity, &o.Duration, &onset); err != nil {
			return fmt.Errorf("scan submission symptom: %w", err)
		}
		o.Onset = kb.Onset(onset)
		i := index[subID]
		recs[i].Observations = append(recs[i].Observations, o)
	}
	return rows.Err()
}

func (r *submissionRepo) loadPredictions(ctx context.Context, ids []any, recs []kb.SubmissionRecord, index map[string]int) error {
	b := r.s.builder()
	query, args := b.Select("submission_id", "rank", "disease_id", "disease_name", "confidence").
		From(b.Table(PredictionsTable.Name)).
		Where(entsql.In("submission_id", ids...)).
		OrderBy("submission_id", "rank").
		Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			subID string
			p     kb.PredictedDisease
		)
		if err := rows.Scan(&subID, &p.Rank, &p.DiseaseID, &p.DiseaseName, &p.Confidence); err != nil {
			return fmt.Errorf("scan prediction: %w", err)
		}
		i := index[subID]
		recs[i].Predictions = append(recs[i].Predictions, p)
	}
	return rows.Err()
}

// loadPrimaryNames resolves primary disease names from the current
// knowledge base.
func (r *submissionRepo) loadPrimaryNames(ctx context.Context, recs []kb.SubmissionRecord) error {
	seen := make(map[int]bool)
	var ids []any
	for _, rec := range recs {
		if rec.PrimaryDiseaseID != 0 && !seen[rec.PrimaryDiseaseID] {
			seen[rec.PrimaryDiseaseID] = true
			ids = append(ids, rec.PrimaryDiseaseID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	b := r.s.builder()
	query, args := b.Select("id", "name").
		From(b.Table(DiseasesTable.Name)).
		Where(entsql.In("id", ids...)).
		Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query primary diseases: %w", err)
	}
	defer rows.Close()
	names := make(map[int]string)
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("scan primary disease: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range recs {
		recs[i].PrimaryDisease = names[recs[i].PrimaryDiseaseID]
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
