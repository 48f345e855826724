package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/medpredict/internal/kb"
)

// Stats summarizes stored submissions.
type Stats struct {
	TotalPredictions int                         `json:"total_predictions" yaml:"total_predictions"`
	AvgSeverity      float64                     `json:"avg_severity" yaml:"avg_severity"`
	Distribution     map[kb.SeverityCategory]int `json:"severity_distribution" yaml:"severity_distribution"`
	Diseases         []DiseaseStat               `json:"diseases" yaml:"diseases"`
	Monthly          []MonthStat                 `json:"monthly_trends" yaml:"monthly_trends"`
}

// DiseaseStat describes one primary disease among submissions.
type DiseaseStat struct {
	DiseaseName string  `json:"disease_name" yaml:"disease_name"`
	Count       int     `json:"count" yaml:"count"`
	AvgSeverity float64 `json:"avg_severity" yaml:"avg_severity"`
	Percentage  float64 `json:"percentage" yaml:"percentage"`
}

// MonthStat aggregates submissions in one calendar month.
type MonthStat struct {
	Month       string  `json:"month" yaml:"month"` // YYYY-MM
	Count       int     `json:"count" yaml:"count"`
	AvgSeverity float64 `json:"avg_severity" yaml:"avg_severity"`
}

const (
	topDiseaseStats = 5
	trendWindow     = 180 * 24 * time.Hour
)

// Percentage returns the share of submissions in a category, to 1 decimal.
func (s *Stats) Percentage(c kb.SeverityCategory) float64 {
	if s.TotalPredictions == 0 {
		return 0
	}
	return round1(float64(s.Distribution[c]) / float64(s.TotalPredictions) * 100)
}

func (r *submissionRepo) Stats(ctx context.Context, userID string) (*Stats, error) {
	b := r.s.builder()
	sub := b.Table(SubmissionsTable.Name)
	dis := b.Table(DiseasesTable.Name)
	sel := b.Select(sub.C("severity_score"), sub.C("severity_category"), sub.C("created_at"), dis.C("name")).
		From(sub).
		LeftJoin(dis).On(sub.C("primary_disease_id"), dis.C("id"))
	if userID != "" {
		sel.Where(entsql.EQ(sub.C("user_id"), userID))
	}
	query, args := sel.Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	st := &Stats{Distribution: map[kb.SeverityCategory]int{
		kb.SeverityNormal:   0,
		kb.SeverityModerate: 0,
		kb.SeverityRisky:    0,
	}}
	type agg struct {
		count int
		sum   float64
	}
	var total float64
	byDisease := make(map[string]*agg)
	byMonth := make(map[string]*agg)
	since := time.Now().Add(-trendWindow)

	for rows.Next() {
		var (
			score    float64
			category string
			at       time.Time
			name     entsql.NullString
		)
		if err := rows.Scan(&score, &category, &at, &name); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		st.TotalPredictions++
		total += score
		st.Distribution[kb.SeverityCategory(category)]++

		disease := "Unknown"
		if name.Valid {
			disease = name.String
		}
		if byDisease[disease] == nil {
			byDisease[disease] = &agg{}
		}
		byDisease[disease].count++
		byDisease[disease].sum += score

		if at.After(since) {
			month := at.UTC().Format("2006-01")
			if byMonth[month] == nil {
				byMonth[month] = &agg{}
			}
			byMonth[month].count++
			byMonth[month].sum += score
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if st.TotalPredictions == 0 {
		return st, nil
	}

	st.AvgSeverity = round2(total / float64(st.TotalPredictions))
	for name, a := range byDisease {
		st.Diseases = append(st.Diseases, DiseaseStat{
			DiseaseName: name,
			Count:       a.count,
			AvgSeverity: round2(a.sum / float64(a.count)),
			Percentage:  round1(float64(a.count) / float64(st.TotalPredictions) * 100),
		})
	}
	sort.Slice(st.Diseases, func(i, j int) bool {
		if st.Diseases[i].Count != st.Diseases[j].Count {
			return st.Diseases[i].Count > st.Diseases[j].Count
		}
		return st.Diseases[i].DiseaseName < st.Diseases[j].DiseaseName
	})
	if len(st.Diseases) > topDiseaseStats {
		st.Diseases = st.Diseases[:topDiseaseStats]
	}

	for month, a := range byMonth {
		st.Monthly = append(st.Monthly, MonthStat{Month: month, Count: a.count, AvgSeverity: round2(a.sum / float64(a.count))})
	}
	sort.Slice(st.Monthly, func(i, j int) bool { return st.Monthly[i].Month < st.Monthly[j].Month })
	return st, nil
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }
