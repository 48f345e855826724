package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/medpredict/internal/kb"
)

// trainingRunRepo implements TrainingRunRepo.
type trainingRunRepo struct {
	s *Store
}

func (r *trainingRunRepo) AppendTrainingRun(ctx context.Context, run kb.TrainingRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	query, args := r.s.builder().Insert(TrainingRunsTable.Name).
		Columns("samples", "diseases", "symptoms", "duration_ms", "success", "error_message", "created_at").
		Values(run.Samples, run.Diseases, run.Symptoms, run.Duration.Milliseconds(),
			run.Success, run.ErrorMessage, run.CreatedAt.UTC()).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save training run: %w", err)
	}
	return nil
}

func (r *trainingRunRepo) LatestTrainingRun(ctx context.Context) (*kb.TrainingRun, error) {
	runs, err := r.TrainingRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func (r *trainingRunRepo) TrainingRuns(ctx context.Context, limit int) ([]kb.TrainingRun, error) {
	b := r.s.builder()
	sel := b.Select("id", "samples", "diseases", "symptoms", "duration_ms", "success", "error_message", "created_at").
		From(b.Table(TrainingRunsTable.Name)).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query training runs: %w", err)
	}
	defer rows.Close()

	var runs []kb.TrainingRun
	for rows.Next() {
		var (
			run kb.TrainingRun
			ms  int64
		)
		if err := rows.Scan(&run.ID, &run.Samples, &run.Diseases, &run.Symptoms, &ms,
			&run.Success, &run.ErrorMessage, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan training run: %w", err)
		}
		run.Duration = time.Duration(ms) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
