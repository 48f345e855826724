package diagnosis

import "sort"

const (
	MLShare   = 0.6
	RuleShare = 0.4

	// MaxResults is the size of the authoritative prediction result.
	MaxResults = 3
)

// Combine merges the classifier and rule lists by disease id. A disease
// missing from one list scores 0 on that side. Ties keep first-seen order,
// classifier list first.
func Combine(ml, rule []Candidate) []RankedCandidate {
	var merged []RankedCandidate
	index := make(map[int]int)

	for _, c := range ml {
		if _, seen := index[c.DiseaseID]; seen {
			continue
		}
		index[c.DiseaseID] = len(merged)
		merged = append(merged, RankedCandidate{
			DiseaseID:    c.DiseaseID,
			DiseaseName:  c.DiseaseName,
			MLConfidence: c.Confidence,
		})
	}
	for _, c := range rule {
		if i, seen := index[c.DiseaseID]; seen {
			merged[i].RuleConfidence = c.Confidence
			continue
		}
		index[c.DiseaseID] = len(merged)
		merged = append(merged, RankedCandidate{
			DiseaseID:      c.DiseaseID,
			DiseaseName:    c.DiseaseName,
			RuleConfidence: c.Confidence,
		})
	}

	for i := range merged {
		merged[i].Confidence = round2(MLShare*merged[i].MLConfidence + RuleShare*merged[i].RuleConfidence)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})

	if len(merged) > MaxResults {
		merged = merged[:MaxResults]
	}
	for i := range merged {
		merged[i].Rank = i + 1
	}
	return merged
}
