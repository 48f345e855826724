package diagnosis

import (
	"math"
	"sort"

	"github.com/abhisek/medpredict/internal/kb"
)

const (
	// MatchShare and WeightShare split rule confidence between symptom
	// overlap and severity-weighted overlap.
	MatchShare  = 0.4
	WeightShare = 0.6

	// BonusPerPrediction is added per past high-confidence prediction of the
	// same disease, up to MaxHistoryBonus.
	BonusPerPrediction = 3.0
	MaxHistoryBonus    = 15.0

	// MaxRuleCandidates caps the rule list handed to the combiner.
	MaxRuleCandidates = 5
)

// MatchRules scores every disease sharing at least one symptom with obs.
//
// match% divides the overlap by all symptoms recorded for the disease, not
// by the number of reported symptoms, so diseases with long symptom lists
// score low on match% even when every reported symptom matches.
func MatchRules(knowledge *kb.KnowledgeBase, obs []kb.SymptomObservation, user UserContext) []RuleScore {
	severities := make(map[int]int, len(obs))
	for _, o := range obs {
		sev := o.Severity
		if sev == 0 {
			sev = kb.DefaultSeverity
		}
		severities[o.SymptomID] = sev
	}
	personalize := user != nil && user.Authenticated()

	var scores []RuleScore
	for _, d := range knowledge.Diseases() {
		weights := knowledge.WeightsFor(d.ID)
		if len(weights) == 0 {
			continue
		}

		var matched int
		var weightScore, maxWeight float64
		for _, w := range weights {
			sev, ok := severities[w.SymptomID]
			if !ok {
				continue
			}
			matched++
			weightScore += float64(w.Weight) * (float64(sev) / 10)
			maxWeight += float64(w.Weight)
		}
		if matched == 0 {
			continue
		}

		matchPct := float64(matched) / float64(len(weights)) * 100
		var weightPct float64
		if maxWeight > 0 {
			weightPct = weightScore / maxWeight * 100
		}
		confidence := MatchShare*matchPct + WeightShare*weightPct

		var bonus float64
		if personalize {
			bonus = math.Min(float64(user.HighConfidenceCount(d.ID))*BonusPerPrediction, MaxHistoryBonus)
			confidence += bonus
		}
		confidence = clamp(confidence, 0, 100)

		scores = append(scores, RuleScore{
			Candidate: Candidate{
				DiseaseID:   d.ID,
				DiseaseName: d.Name,
				Confidence:  round2(confidence),
			},
			MatchedSymptoms:  matched,
			TotalSymptoms:    len(weights),
			MatchPercentage:  round2(matchPct),
			WeightPercentage: round2(weightPct),
			HistoryBonus:     bonus,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.DiseaseName != b.DiseaseName {
			return a.DiseaseName < b.DiseaseName
		}
		return a.DiseaseID < b.DiseaseID
	})
	if len(scores) > MaxRuleCandidates {
		scores = scores[:MaxRuleCandidates]
	}
	return scores
}

// RuleCandidates strips the explanation from rule scores.
func RuleCandidates(scores []RuleScore) []Candidate {
	out := make([]Candidate, len(scores))
	for i, s := range scores {
		out[i] = s.Candidate
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
