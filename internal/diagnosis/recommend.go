package diagnosis

import (
	"strings"

	"github.com/abhisek/medpredict/internal/kb"
)

// FormatAdvice splits a free-text advice field into bullet items. Each line
// loses surrounding whitespace and any leading •, - or * glyphs; empty lines
// are dropped.
func FormatAdvice(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "•")
		line = strings.TrimLeft(line, "-")
		line = strings.TrimLeft(line, "*")
		line = strings.TrimSpace(line)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

// RecommendationsFor formats the three advice fields of a disease.
func RecommendationsFor(d kb.Disease) Recommendations {
	return Recommendations{
		Lifestyle: FormatAdvice(d.LifestyleTips),
		Diet:      FormatAdvice(d.DietAdvice),
		Medical:   FormatAdvice(d.MedicalAdvice),
	}
}
