package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/medpredict/internal/kb"
)

// execQuerier is satisfied by *sql.DB and *sql.Tx.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertID runs an INSERT ... RETURNING id.
func insertID(ctx context.Context, q execQuerier, ins *entsql.InsertBuilder) (int, error) {
	query, args := ins.Returning("id").Query()
	var id int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// knowledgeRepo implements KnowledgeRepo.
type knowledgeRepo struct {
	s *Store
}

func (r *knowledgeRepo) CreateSymptom(ctx context.Context, sym kb.Symptom) (int, error) {
	return r.createSymptom(ctx, r.s.db, sym)
}

func (r *knowledgeRepo) createSymptom(ctx context.Context, q execQuerier, sym kb.Symptom) (int, error) {
	name := strings.TrimSpace(sym.Name)
	if name == "" {
		return 0, &kb.ValidationError{Field: "symptom.name", Reason: "must not be empty"}
	}
	id, err := insertID(ctx, q, r.s.builder().Insert(SymptomsTable.Name).
		Columns("name", "description", "created_at").
		Values(name, sym.Description, time.Now().UTC()))
	if err != nil {
		return 0, fmt.Errorf("create symptom %q: %w", name, err)
	}
	return id, nil
}

func (r *knowledgeRepo) CreateDisease(ctx context.Context, d kb.Disease) (int, error) {
	return r.createDisease(ctx, r.s.db, d)
}

func (r *knowledgeRepo) createDisease(ctx context.Context, q execQuerier, d kb.Disease) (int, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return 0, &kb.ValidationError{Field: "disease.name", Reason: "must not be empty"}
	}
	id, err := insertID(ctx, q, r.s.builder().Insert(DiseasesTable.Name).
		Columns("name", "description", "lifestyle_tips", "diet_advice", "medical_advice", "created_at").
		Values(name, d.Description, d.LifestyleTips, d.DietAdvice, d.MedicalAdvice, time.Now().UTC()))
	if err != nil {
		return 0, fmt.Errorf("create disease %q: %w", name, err)
	}
	return id, nil
}

func (r *knowledgeRepo) SetWeight(ctx context.Context, w kb.DiseaseSymptomWeight) error {
	return r.setWeight(ctx, r.s.db, w)
}

func (r *knowledgeRepo) setWeight(ctx context.Context, q execQuerier, w kb.DiseaseSymptomWeight) error {
	if err := kb.ValidateWeight(w.Weight); err != nil {
		return err
	}
	query, args := r.s.builder().Insert(DiseaseSymptomsTable.Name).
		Columns("disease_id", "symptom_id", "weight").
		Values(w.DiseaseID, w.SymptomID, w.Weight).
		OnConflict(
			entsql.ConflictColumns("disease_id", "symptom_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("weight")
			}),
		).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set weight disease %d symptom %d: %w", w.DiseaseID, w.SymptomID, err)
	}
	return nil
}

func (r *knowledgeRepo) KnowledgeBase(ctx context.Context) (*kb.KnowledgeBase, error) {
	b := r.s.builder()

	var diseases []kb.Disease
	query, args := b.Select("id", "name", "description", "lifestyle_tips", "diet_advice", "medical_advice").
		From(b.Table(DiseasesTable.Name)).
		OrderBy("id").
		Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query diseases: %w", err)
	}
	for rows.Next() {
		var d kb.Disease
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.LifestyleTips, &d.DietAdvice, &d.MedicalAdvice); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan disease: %w", err)
		}
		diseases = append(diseases, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query diseases: %w", err)
	}

	var symptoms []kb.Symptom
	query, args = b.Select("id", "name", "description").
		From(b.Table(SymptomsTable.Name)).
		OrderBy("id").
		Query()
	rows, err = r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query symptoms: %w", err)
	}
	for rows.Next() {
		var sym kb.Symptom
		if err := rows.Scan(&sym.ID, &sym.Name, &sym.Description); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan symptom: %w", err)
		}
		symptoms = append(symptoms, sym)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query symptoms: %w", err)
	}

	var weights []kb.DiseaseSymptomWeight
	query, args = b.Select("disease_id", "symptom_id", "weight").
		From(b.Table(DiseaseSymptomsTable.Name)).
		OrderBy("disease_id", "symptom_id").
		Query()
	rows, err = r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query weights: %w", err)
	}
	for rows.Next() {
		var w kb.DiseaseSymptomWeight
		if err := rows.Scan(&w.DiseaseID, &w.SymptomID, &w.Weight); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan weight: %w", err)
		}
		weights = append(weights, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query weights: %w", err)
	}

	k, err := kb.NewKnowledgeBase(diseases, symptoms, weights)
	if err != nil {
		return nil, fmt.Errorf("build knowledge base: %w", err)
	}
	return k, nil
}

func (r *knowledgeRepo) Seed(ctx context.Context, seed kb.Seed) (SeedResult, error) {
	existing, err := r.KnowledgeBase(ctx)
	if err != nil {
		return SeedResult{}, err
	}

	var res SeedResult
	err = r.s.withTx(ctx, func(tx *sql.Tx) error {
		symptomIDs := make(map[string]int)
		for _, sym := range existing.Symptoms() {
			symptomIDs[strings.ToLower(sym.Name)] = sym.ID
		}
		for _, sym := range seed.Symptoms {
			key := strings.ToLower(strings.TrimSpace(sym.Name))
			if _, ok := symptomIDs[key]; ok {
				continue
			}
			id, err := r.createSymptom(ctx, tx, kb.Symptom{Name: sym.Name, Description: sym.Description})
			if err != nil {
				return err
			}
			symptomIDs[key] = id
			res.Symptoms++
		}

		for _, d := range seed.Diseases {
			if _, ok := existing.DiseaseByName(d.Name); ok {
				continue
			}
			id, err := r.createDisease(ctx, tx, kb.Disease{
				Name:          d.Name,
				Description:   d.Description,
				LifestyleTips: d.LifestyleTips,
				DietAdvice:    d.DietAdvice,
				MedicalAdvice: d.MedicalAdvice,
			})
			if err != nil {
				return err
			}
			res.Diseases++

			for _, w := range d.Weights {
				symID, ok := symptomIDs[strings.ToLower(strings.TrimSpace(w.Symptom))]
				if !ok {
					return fmt.Errorf("seed disease %q references unknown symptom %q", d.Name, w.Symptom)
				}
				if err := r.setWeight(ctx, tx, kb.DiseaseSymptomWeight{DiseaseID: id, SymptomID: symID, Weight: w.Weight}); err != nil {
					return err
				}
				res.Weights++
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed knowledge base: %w", err)
	}
	return res, nil
}

func (r *knowledgeRepo) Reset(ctx context.Context) error {
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{DiseaseSymptomsTable.Name, DiseasesTable.Name, SymptomsTable.Name} {
			query, args := r.s.builder().Delete(table).Query()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}
