// Package formatter renders prediction results and statistics for the CLI.
package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/medpredict/internal/diagnosis"
	"github.com/abhisek/medpredict/internal/kb"
	"github.com/abhisek/medpredict/internal/store"
)

// Output formats accepted by the Display functions.
const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ValidFormat reports whether format is one the Display functions accept.
func ValidFormat(format string) bool {
	switch format {
	case FormatHuman, FormatJSON, FormatYAML, "":
		return true
	}
	return false
}

// DisplayPrediction writes a prediction result in the given format.
func DisplayPrediction(w io.Writer, res *diagnosis.Result, format string) error {
	switch format {
	case FormatJSON:
		return displayJSON(w, res)
	case FormatYAML:
		return displayYAML(w, res)
	default:
		displayPredictionHuman(w, res)
	}
	return nil
}

// DisplayStats writes submission statistics in the given format.
func DisplayStats(w io.Writer, st *store.Stats, format string) error {
	switch format {
	case FormatJSON:
		return displayJSON(w, st)
	case FormatYAML:
		return displayYAML(w, st)
	default:
		displayStatsHuman(w, st)
	}
	return nil
}

// DisplayHistory writes past submissions in the given format.
func DisplayHistory(w io.Writer, recs []kb.SubmissionRecord, format string) error {
	switch format {
	case FormatJSON, FormatYAML:
		rows := make([]historyRow, len(recs))
		for i, r := range recs {
			rows[i] = historyRow{
				ID:               r.ID,
				CreatedAt:        r.CreatedAt.Format("2006-01-02 15:04"),
				PrimaryDisease:   r.PrimaryDisease,
				SeverityScore:    r.SeverityScore,
				SeverityCategory: string(r.SeverityCategory),
				Symptoms:         len(r.Observations),
			}
		}
		if format == FormatJSON {
			return displayJSON(w, rows)
		}
		return displayYAML(w, rows)
	default:
		displayHistoryHuman(w, recs)
	}
	return nil
}

type historyRow struct {
	ID               string  `json:"id" yaml:"id"`
	CreatedAt        string  `json:"created_at" yaml:"created_at"`
	PrimaryDisease   string  `json:"primary_disease,omitempty" yaml:"primary_disease,omitempty"`
	SeverityScore    float64 `json:"severity_score" yaml:"severity_score"`
	SeverityCategory string  `json:"severity_category" yaml:"severity_category"`
	Symptoms         int     `json:"symptoms" yaml:"symptoms"`
}

func displayJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(output))
	return nil
}

func displayYAML(w io.Writer, v any) error {
	output, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprint(w, string(output))
	return nil
}

func displayPredictionHuman(w io.Writer, res *diagnosis.Result) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)

	sev := severityColor(res.Severity.Category)
	sev.Fprintf(w, "%s SEVERITY: %s (%.2f/100)\n", severityIcon(res.Severity.Category), res.Severity.Category, res.Severity.Score)
	if res.Interpretation != "" {
		fmt.Fprintf(w, "   %s\n", res.Interpretation)
	}
	fmt.Fprintln(w)

	if res.Empty() {
		fmt.Fprintf(w, "   %s\n\n", color.YellowString("No matching disease found."))
		return
	}

	cyan.Fprintln(w, "🩺 POSSIBLE CONDITIONS:")
	for _, c := range res.Candidates {
		fmt.Fprintf(w, "   %d. %-22s %6.2f%%", c.Rank, c.DiseaseName, c.Confidence)
		fmt.Fprintf(w, "  %s\n", color.HiBlackString("(model %.2f%%, rules %.2f%%)", c.MLConfidence, c.RuleConfidence))
	}
	fmt.Fprintln(w)

	writeList(w, green, "🌿 LIFESTYLE:", res.Recommendations.Lifestyle)
	writeList(w, green, "🥗 DIET:", res.Recommendations.Diet)
	writeList(w, white, "💊 MEDICAL:", res.Recommendations.Medical)

	if res.NextSteps != "" {
		sev.Fprintln(w, "➡️  NEXT STEPS:")
		fmt.Fprintf(w, "   %s\n\n", res.NextSteps)
	}

	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("This is not a medical diagnosis. Consult a healthcare professional."))
}

func writeList(w io.Writer, c *color.Color, title string, items []string) {
	if len(items) == 0 {
		return
	}
	c.Fprintln(w, title)
	for _, item := range items {
		fmt.Fprintf(w, "   • %s\n", item)
	}
	fmt.Fprintln(w)
}

func displayStatsHuman(w io.Writer, st *store.Stats) {
	cyan := color.New(color.FgCyan, color.Bold)

	fmt.Fprintln(w)
	cyan.Fprintf(w, "📊 PREDICTIONS: %d\n", st.TotalPredictions)
	if st.TotalPredictions == 0 {
		fmt.Fprintf(w, "   %s\n", color.HiBlackString("No predictions yet."))
		return
	}
	fmt.Fprintf(w, "   Average severity: %.2f\n\n", st.AvgSeverity)

	cyan.Fprintln(w, "SEVERITY DISTRIBUTION:")
	for _, c := range []kb.SeverityCategory{kb.SeverityNormal, kb.SeverityModerate, kb.SeverityRisky} {
		severityColor(c).Fprintf(w, "   %-9s", c)
		fmt.Fprintf(w, " %4d  (%.1f%%)\n", st.Distribution[c], st.Percentage(c))
	}
	fmt.Fprintln(w)

	if len(st.Diseases) > 0 {
		cyan.Fprintln(w, "TOP CONDITIONS:")
		for i, d := range st.Diseases {
			fmt.Fprintf(w, "   %d. %-22s %4d  (%.1f%%, avg severity %.2f)\n", i+1, d.DiseaseName, d.Count, d.Percentage, d.AvgSeverity)
		}
		fmt.Fprintln(w)
	}

	if len(st.Monthly) > 0 {
		cyan.Fprintln(w, "MONTHLY TREND:")
		for _, m := range st.Monthly {
			fmt.Fprintf(w, "   %s  %4d  avg %.2f\n", m.Month, m.Count, m.AvgSeverity)
		}
		fmt.Fprintln(w)
	}
}

func displayHistoryHuman(w io.Writer, recs []kb.SubmissionRecord) {
	if len(recs) == 0 {
		fmt.Fprintf(w, "%s\n", color.HiBlackString("No predictions recorded."))
		return
	}
	for _, r := range recs {
		disease := r.PrimaryDisease
		if disease == "" {
			disease = "-"
		}
		fmt.Fprintf(w, "%s  %-22s ", r.CreatedAt.Local().Format("2006-01-02 15:04"), disease)
		severityColor(r.SeverityCategory).Fprintf(w, "%-9s", r.SeverityCategory)
		fmt.Fprintf(w, " %6.2f  %s\n", r.SeverityScore, color.HiBlackString(shortID(r.ID)))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func severityColor(c kb.SeverityCategory) *color.Color {
	switch c {
	case kb.SeverityRisky:
		return color.New(color.FgRed, color.Bold)
	case kb.SeverityModerate:
		return color.New(color.FgYellow, color.Bold)
	case kb.SeverityNormal:
		return color.New(color.FgGreen, color.Bold)
	default:
		return color.New(color.FgWhite)
	}
}

func severityIcon(c kb.SeverityCategory) string {
	switch c {
	case kb.SeverityRisky:
		return "🔴"
	case kb.SeverityModerate:
		return "🟡"
	case kb.SeverityNormal:
		return "🟢"
	default:
		return "⚪"
	}
}
