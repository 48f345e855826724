package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abhisek/medpredict/internal/kb"
)

// parseSymptom parses "Name[:severity[:duration[:onset]]]" against the
// knowledge base. Empty fields are left unset; names match in any case and
// a numeric name is tried as a symptom id.
func parseSymptom(k *kb.KnowledgeBase, spec string) (kb.SymptomObservation, error) {
	parts := strings.SplitN(spec, ":", 4)
	name := strings.TrimSpace(parts[0])
	sym, ok := k.SymptomByName(name)
	if !ok {
		if id, err := strconv.Atoi(name); err == nil {
			sym, ok = k.Symptom(id)
		}
	}
	if !ok {
		return kb.SymptomObservation{}, fmt.Errorf("unknown symptom %q", name)
	}
	obs := kb.SymptomObservation{SymptomID: sym.ID}

	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		sev, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return obs, fmt.Errorf("symptom %q: invalid severity %q", name, parts[1])
		}
		obs.Severity = sev
	}
	if len(parts) > 2 {
		obs.Duration = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
		onset, err := kb.ParseOnset(parts[3])
		if err != nil {
			return obs, fmt.Errorf("symptom %q: %w", name, err)
		}
		obs.Onset = onset
	}
	return obs, kb.ValidateObservation(obs)
}

func parseSymptoms(k *kb.KnowledgeBase, specs []string) ([]kb.SymptomObservation, error) {
	obs := make([]kb.SymptomObservation, 0, len(specs))
	for _, spec := range specs {
		o, err := parseSymptom(k, spec)
		if err != nil {
			return nil, err
		}
		obs = append(obs, o)
	}
	return obs, nil
}
