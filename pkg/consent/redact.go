package consent

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/benjaminschreck/go-consent/pkg/consent/xml"
)

// Normalised region values with clause rules
const (
	RegionCordoba     = "cordoba"
	RegionBuenosAires = "buenosaires"
)

// RedactStats counts what a redaction changed
type RedactStats struct {
	Removed  int
	Replaced int
	// Errors holds per-paragraph failures. They never stop the remaining matches.
	Errors []error
}

func (s *RedactStats) add(other RedactStats) {
	s.Removed += other.Removed
	s.Replaced += other.Replaced
	s.Errors = append(s.Errors, other.Errors...)
}

// FindParagraphs returns every paragraph of the story, table cells included, whose
// text contains snippet ignoring case. An empty snippet matches nothing.
func FindParagraphs(story xml.Story, snippet string) []xml.Paragraph {
	if strings.TrimSpace(snippet) == "" {
		return nil
	}
	needle := strings.ToLower(snippet)

	var out []xml.Paragraph
	for _, para := range story.AllParagraphs() {
		if strings.Contains(strings.ToLower(para.Text()), needle) {
			out = append(out, para)
		}
	}
	return out
}

// RemoveParagraphs deletes every paragraph matching snippet from its parent
func RemoveParagraphs(story xml.Story, snippet string) (int, []error) {
	removed := 0
	var errs []error
	for _, para := range FindParagraphs(story, snippet) {
		if err := removeParagraph(para); err != nil {
			errs = append(errs, fmt.Errorf("remove paragraph matching %q: %w", snippet, err))
			continue
		}
		removed++
	}
	return removed, errs
}

func removeParagraph(para xml.Paragraph) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = RecoverError(r)
		}
	}()
	return para.Remove()
}

// ReplaceParagraphText clears every paragraph matching snippet and gives it text as a
// single run. Returns the number of paragraphs rewritten.
func ReplaceParagraphText(story xml.Story, snippet, text string, style *Style) int {
	paras := FindParagraphs(story, snippet)
	for _, para := range paras {
		rewriteParagraph(para, text, style)
	}
	return len(paras)
}

// ApplyRule runs one deployment-defined redaction rule
func ApplyRule(story xml.Story, rule RedactionRule, style *Style) RedactStats {
	var stats RedactStats
	switch rule.Action {
	case ActionDelete:
		stats.Removed, stats.Errors = RemoveParagraphs(story, rule.Snippet)
	case ActionReplace:
		stats.Replaced = ReplaceParagraphText(story, rule.Snippet, rule.Text, style)
	default:
		stats.Errors = append(stats.Errors, fmt.Errorf("unknown redaction action %q", rule.Action))
	}
	return stats
}

// NormalizeRegion lowercases a region, removes all whitespace and strips accents,
// so "Buenos Aires" reads "buenosaires" and "Córdoba" reads "cordoba".
func NormalizeRegion(region string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, region)
	if err != nil {
		folded = region
	}

	var sb strings.Builder
	for _, r := range strings.ToLower(folded) {
		if !unicode.IsSpace(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ApplyJurisdiction adapts the region-dependent clauses:
//   - cordoba: the contraceptive clause and the Buenos Aires notice are removed
//   - buenosaires: the contraceptive clause is replaced by the Buenos Aires clause,
//     or the notice is when the clause is absent
//
// Other regions leave the document untouched.
func ApplyJurisdiction(story xml.Story, region string, j Jurisdiction, style *Style) RedactStats {
	var stats RedactStats

	switch NormalizeRegion(region) {
	case RegionCordoba:
		stats.add(ApplyRule(story, RedactionRule{Snippet: j.ContraceptiveClause, Action: ActionDelete}, style))
		stats.add(ApplyRule(story, RedactionRule{Snippet: j.BuenosAiresNotice, Action: ActionDelete}, style))
	case RegionBuenosAires:
		stats.Replaced = ReplaceParagraphText(story, j.ContraceptiveClause, j.BuenosAiresClause, style)
		if stats.Replaced == 0 {
			stats.Replaced = ReplaceParagraphText(story, j.BuenosAiresNotice, j.BuenosAiresClause, style)
		}
	}
	return stats
}
