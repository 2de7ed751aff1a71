package consent

import (
	"github.com/benjaminschreck/go-consent/pkg/consent/xml"
)

// SubstituteStats counts what one substitution pass changed
type SubstituteStats struct {
	Paragraphs int // paragraphs that contained a token
	Merged     int // runs merged away before replacement
	RunLocal   int // runs rewritten in place
	Fallbacks  int // paragraphs rebuilt as a single run
}

// Add accumulates other into s
func (s *SubstituteStats) Add(other SubstituteStats) {
	s.Paragraphs += other.Paragraphs
	s.Merged += other.Merged
	s.RunLocal += other.RunLocal
	s.Fallbacks += other.Fallbacks
}

type substituteOptions struct {
	merge bool
}

// SubstituteOption configures Substitute
type SubstituteOption func(*substituteOptions)

// WithMergeRuns turns merging of identically formatted runs on or off (on by default)
func WithMergeRuns(enabled bool) SubstituteOption {
	return func(o *substituteOptions) {
		o.merge = enabled
	}
}

// Substitute replaces tokens in every paragraph of the story, table cells included.
//
// Each run is first rewritten on its own, which keeps the formatting of the runs
// around it. A token split across runs survives that pass; such a paragraph is then
// rebuilt as one run holding its full text with every token replaced. Runs that are
// rewritten or rebuilt get style when it is non-nil.
func Substitute(story xml.Story, reps Replacements, style *Style, opts ...SubstituteOption) SubstituteStats {
	o := substituteOptions{merge: true}
	for _, opt := range opts {
		opt(&o)
	}

	var stats SubstituteStats
	if len(reps) == 0 {
		return stats
	}

	for _, para := range story.AllParagraphs() {
		if !reps.Contains(para.Text()) {
			continue
		}
		stats.Paragraphs++

		if o.merge {
			stats.Merged += xml.MergeRuns(para)
		}

		for _, run := range para.Runs() {
			text := run.Text()
			replaced := reps.Apply(text)
			if replaced == text {
				continue
			}
			run.SetText(replaced)
			applyStyle(run, style)
			stats.RunLocal++
		}

		if full := para.Text(); reps.Contains(full) {
			rewriteParagraph(para, reps.Apply(full), style)
			stats.Fallbacks++
		}
	}
	return stats
}

// rewriteParagraph replaces the paragraph's text with a single run. The new run
// starts from the properties of the first run that carried text.
func rewriteParagraph(para xml.Paragraph, text string, style *Style) xml.Run {
	var props *xml.Element
	for _, run := range para.Runs() {
		if run.Text() != "" {
			props = run.Properties()
			break
		}
	}
	if props != nil {
		props = props.Clone()
	}

	para.ClearText()
	run := para.AddRun(text)
	if props != nil {
		run.CopyProperties(props)
	}
	applyStyle(run, style)
	return run
}

func applyStyle(run xml.Run, style *Style) {
	if style == nil {
		return
	}
	if style.Font != "" {
		run.SetFont(style.Font)
	}
	if style.SizePt > 0 {
		run.SetSize(style.SizePt)
	}
	if style.Color != "" {
		run.SetColor(style.Color)
	}
}
