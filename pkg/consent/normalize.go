package consent

import "github.com/benjaminschreck/go-consent/pkg/consent/xml"

// Normalize gives every run of the story, table cells included, the same font,
// size and color. Returns the number of runs styled.
func Normalize(story xml.Story, style Style) int {
	n := 0
	for _, para := range story.AllParagraphs() {
		for _, run := range para.Runs() {
			applyStyle(run, &style)
			n++
		}
	}
	return n
}

// insertedStyle returns the style to apply while editing under the given policy.
// Under PolicyDocument edits stay unstyled and Normalize runs at the end.
func insertedStyle(policy NormalizePolicy, style Style) *Style {
	if policy == PolicyDocument {
		return nil
	}
	return &style
}
