package xml

import (
	"bytes"
	"strings"
)

// Paragraph is a view over a w:p element
type Paragraph struct {
	el *Element
	ns string
}

// Element returns the underlying w:p element
func (p Paragraph) Element() *Element {
	return p.el
}

// Attached reports whether the paragraph is still part of a tree
func (p Paragraph) Attached() bool {
	return p.el.parent != nil
}

// inlineContainers hold runs that belong to the paragraph's visible text.
// Deleted revisions (w:del, w:moveFrom) are left out on purpose.
var inlineContainers = map[string]bool{
	"hyperlink": true,
	"ins":       true,
	"moveTo":    true,
	"smartTag":  true,
	"fldSimple": true,
	"customXml": true,
}

// Runs returns the paragraph's runs in document order, including runs nested in
// hyperlinks, insertions, smart tags and inline content controls.
func (p Paragraph) Runs() []Run {
	var out []Run
	var walk func(el *Element)
	walk = func(el *Element) {
		for _, child := range el.Elements() {
			if child.Name.Space != p.ns {
				continue
			}
			switch {
			case child.Name.Local == "r":
				out = append(out, Run{el: child, ns: p.ns})
			case child.Name.Local == "sdt":
				if content := child.Child(p.ns, "sdtContent"); content != nil {
					walk(content)
				}
			case inlineContainers[child.Name.Local]:
				walk(child)
			}
		}
	}
	walk(p.el)
	return out
}

// Text returns the concatenated text of all runs
func (p Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs() {
		sb.WriteString(r.Text())
	}
	return sb.String()
}

// AddRun appends a new run holding text as the paragraph's last child
func (p Paragraph) AddRun(text string) Run {
	r := Run{el: NewElement(p.ns, "r"), ns: p.ns}
	p.el.AppendChild(r.el)
	r.SetText(text)
	return r
}

// ClearText empties every run of the paragraph. Runs left with nothing but their
// properties are removed; runs carrying drawings, fields or page breaks stay.
func (p Paragraph) ClearText() {
	for _, r := range p.Runs() {
		r.SetText("")
		if r.isEmpty() {
			_ = r.el.Detach()
		}
	}
}

// Remove deletes the paragraph from its parent. A table cell must keep at least one
// paragraph, so removing a cell's last paragraph leaves an empty one in its place.
func (p Paragraph) Remove() error {
	parent := p.el.parent
	if parent == nil {
		return ErrDetached
	}
	if err := parent.RemoveChild(p.el); err != nil {
		return err
	}
	if parent.Is(p.ns, "tc") && parent.Child(p.ns, "p") == nil {
		parent.AppendChild(NewElement(p.ns, "p"))
	}
	return nil
}

// MergeRuns merges neighbouring runs of the paragraph that carry plain text and
// identical run properties. Visible text and formatting are unchanged; placeholders
// that an editor split over such runs become contiguous again. Spell-check markers
// between runs do not prevent a merge. Returns the number of runs merged away.
func MergeRuns(p Paragraph) int {
	merged := 0
	var prev *Element
	var prevProps []byte

	for i := 0; i < len(p.el.Children); {
		el, ok := p.el.Children[i].(*Element)
		if !ok {
			i++
			continue
		}
		switch {
		case el.Is(p.ns, "proofErr"):
			i++
			continue
		case isPlainTextRun(el, p.ns):
			props := runPropertiesKey(el, p.ns)
			if prev != nil && bytes.Equal(props, prevProps) {
				target := Run{el: prev, ns: p.ns}
				target.SetText(target.Text() + Run{el: el, ns: p.ns}.Text())
				_ = p.el.RemoveChild(el)
				merged++
				continue
			}
			prev, prevProps = el, props
		default:
			prev, prevProps = nil, nil
		}
		i++
	}
	return merged
}

func isPlainTextRun(el *Element, ns string) bool {
	if !el.Is(ns, "r") {
		return false
	}
	for _, child := range el.Elements() {
		if child.Name.Space != ns {
			return false
		}
		switch child.Name.Local {
		case "rPr", "t", "tab":
		default:
			return false
		}
	}
	return true
}

func runPropertiesKey(el *Element, ns string) []byte {
	props := el.Child(ns, "rPr")
	if props == nil {
		return []byte{}
	}
	return Marshal(props)
}
