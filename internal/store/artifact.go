package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/medpredict/internal/classifier"
)

// artifactRepo implements ArtifactRepo.
type artifactRepo struct {
	s *Store
}

func (r *artifactRepo) Save(ctx context.Context, a *Artifact) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	id, err := insertID(ctx, r.s.db, r.s.builder().Insert(ModelArtifactsTable.Name).
		Columns("key", "format_version", "payload", "created_at").
		Values(a.Key, a.FormatVersion, a.Payload, a.CreatedAt.UTC()))
	if err != nil {
		return fmt.Errorf("save artifact %q: %w", a.Key, err)
	}
	a.ID = id
	return nil
}

func (r *artifactRepo) Latest(ctx context.Context, key string) (*Artifact, error) {
	b := r.s.builder()
	query, args := b.Select("id", "key", "format_version", "payload", "created_at").
		From(b.Table(ModelArtifactsTable.Name)).
		Where(entsql.EQ("key", key)).
		OrderBy(entsql.Desc("id")).
		Limit(1).
		Query()

	var a Artifact
	err := r.s.db.QueryRowContext(ctx, query, args...).
		Scan(&a.ID, &a.Key, &a.FormatVersion, &a.Payload, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("query latest artifact %q: %w", key, err)
	}
	return &a, nil
}

func (r *artifactRepo) Prune(ctx context.Context, key string, keep int) error {
	b := r.s.builder()
	// Find the ID threshold: the Nth newest artifact.
	query, args := b.Select("id").
		From(b.Table(ModelArtifactsTable.Name)).
		Where(entsql.EQ("key", key)).
		OrderBy(entsql.Desc("id")).
		Offset(keep).
		Limit(1).
		Query()
	var threshold int
	if err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&threshold); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil // fewer than keep artifacts exist
		}
		return fmt.Errorf("query artifacts for prune: %w", err)
	}

	query, args = b.Delete(ModelArtifactsTable.Name).
		Where(entsql.And(entsql.EQ("key", key), entsql.LTE("id", threshold))).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune artifacts: %w", err)
	}
	return nil
}

func (r *artifactRepo) Delete(ctx context.Context, key string) (int, error) {
	query, args := r.s.builder().Delete(ModelArtifactsTable.Name).
		Where(entsql.EQ("key", key)).
		Query()
	res, err := r.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete artifacts %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// keepArtifacts is how many versions SaveArtifact retains per key.
const keepArtifacts = 3

func (r *artifactRepo) SaveArtifact(ctx context.Context, key string, data []byte) error {
	if err := r.Save(ctx, &Artifact{Key: key, FormatVersion: classifier.FormatVersion, Payload: data}); err != nil {
		return err
	}
	return r.Prune(ctx, key, keepArtifacts)
}

func (r *artifactRepo) LoadArtifact(ctx context.Context, key string) ([]byte, error) {
	a, err := r.Latest(ctx, key)
	if errors.Is(err, ErrArtifactNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a.Payload, nil
}
