package document

import (
	"strings"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
)

// roundingNoteWindow is how many characters of context to keep on each side of
// a rounding match.
const roundingNoteWindow = 50

// DetectMetadata infers document-wide currency and rounding scale from page
// text.
//
// Both detectors run per page; the last page with a hit wins for the whole
// document. Within a page the currency table and the rounding categories are
// tested in declared order and the first hit stands. This ordering is load
// bearing for output compatibility; see DESIGN.md before changing it.
func DetectMetadata(pages []Page) entity.DocumentMetadata {
	md := entity.DocumentMetadata{
		Currency: constants.DefaultCurrency,
		Rounding: constants.DefaultRounding,
	}

	for _, page := range pages {
		text := page.Text()

		if currency, ok := detectCurrency(text); ok {
			md.Currency = currency
		}
		if rounding, note, ok := detectRounding(text); ok {
			md.Rounding = rounding
			if note != "" {
				md.RoundingNote = note
			}
		}
	}
	return md
}

// detectCurrency returns the first currency whose patterns match the
// uppercased text.
func detectCurrency(text string) (string, bool) {
	upper := strings.ToUpper(text)
	for _, cp := range constants.CurrencyPatterns {
		for _, pattern := range cp.Patterns {
			if pattern.MatchString(upper) {
				return cp.Code, true
			}
		}
	}
	return "", false
}

// detectRounding tests the scale categories in declared order against the
// lowercased text; the first category with a matching pattern wins for this
// page and a context window around the match is kept as the rounding note.
// The free-form rounding sentences are a last resort.
func detectRounding(text string) (scale, note string, ok bool) {
	lower := strings.ToLower(text)

	for _, rp := range constants.RoundingPatterns {
		for _, pattern := range rp.Patterns {
			loc := pattern.FindStringIndex(lower)
			if loc == nil {
				continue
			}
			start := max(0, loc[0]-roundingNoteWindow)
			end := min(len(lower), loc[1]+roundingNoteWindow)
			return rp.Scale, strings.TrimSpace(lower[start:end]), true
		}
	}

	for _, pattern := range constants.RoundingStatements {
		m := pattern.FindString(lower)
		if m == "" {
			continue
		}
		if strings.Contains(m, "million") {
			return "millions", m, true
		}
		if strings.Contains(m, "thousand") {
			return "thousands", m, true
		}
	}

	return "", "", false
}
