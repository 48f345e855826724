package diagnosis

import (
	"fmt"

	"github.com/abhisek/medpredict/internal/kb"
)

// Category thresholds on the 0–100 severity score (upper bounds, inclusive).
const (
	NormalMaxScore   = 30.0
	ModerateMaxScore = 70.0
)

// AssessSeverity averages reported severities into a 0–100 score.
// Unreported severities count as kb.DefaultSeverity. No observations
// yields a score of 0 and NORMAL.
func AssessSeverity(obs []kb.SymptomObservation) Severity {
	if len(obs) == 0 {
		return Severity{Score: 0, Category: kb.SeverityNormal}
	}
	total := 0
	for _, o := range obs {
		if o.HasSeverity() {
			total += o.Severity
		} else {
			total += kb.DefaultSeverity
		}
	}
	avg := float64(total) / float64(len(obs))
	score := round2(avg / 10 * 100)
	return Severity{Score: score, Category: Categorize(score)}
}

// Categorize maps a severity score to its category.
func Categorize(score float64) kb.SeverityCategory {
	switch {
	case score <= NormalMaxScore:
		return kb.SeverityNormal
	case score <= ModerateMaxScore:
		return kb.SeverityModerate
	default:
		return kb.SeverityRisky
	}
}

// Interpretation returns a one-line reading of a severity category.
func Interpretation(c kb.SeverityCategory) string {
	switch c {
	case kb.SeverityNormal:
		return "Mild symptoms detected. Continue monitoring and maintain good health practices."
	case kb.SeverityModerate:
		return "Moderate symptoms detected. Monitor your health and seek care if symptoms worsen."
	case kb.SeverityRisky:
		return "Severe symptoms detected. Consult a healthcare provider immediately."
	}
	return ""
}

// NextSteps suggests what to do given the category and the top disease.
func NextSteps(c kb.SeverityCategory, diseaseName string) string {
	switch c {
	case kb.SeverityRisky:
		return fmt.Sprintf("Seek immediate medical attention. Your symptoms suggest %s which requires professional evaluation.", diseaseName)
	case kb.SeverityModerate:
		return "Track your symptoms for the next 3 days. If symptoms worsen, consult a healthcare provider."
	default:
		return "Continue monitoring your symptoms. Maintain good hygiene and rest. Consult a doctor if symptoms persist."
	}
}
