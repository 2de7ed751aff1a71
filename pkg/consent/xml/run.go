package xml

import (
	"math"
	"strconv"
	"strings"
)

// Run is a view over a w:r element
type Run struct {
	el *Element
	ns string
}

// Element returns the underlying w:r element
func (r Run) Element() *Element {
	return r.el
}

// isTextChild reports whether a run child contributes to the run's text
func (r Run) isTextChild(el *Element) bool {
	if el.Name.Space != r.ns {
		return false
	}
	switch el.Name.Local {
	case "t", "tab", "cr", "noBreakHyphen", "softHyphen":
		return true
	case "br":
		typ, _ := el.AttrValue(r.ns, "type")
		return typ == "" || typ == "textWrapping"
	}
	return false
}

// Text returns the run's text. Tabs read as "\t", line breaks as "\n".
func (r Run) Text() string {
	var sb strings.Builder
	for _, child := range r.el.Elements() {
		if !r.isTextChild(child) {
			continue
		}
		switch child.Name.Local {
		case "t":
			sb.WriteString(child.Text())
		case "tab":
			sb.WriteByte('\t')
		case "br", "cr":
			sb.WriteByte('\n')
		case "noBreakHyphen":
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// SetText replaces the run's text. "\t" becomes a w:tab and "\n", "\v" or "\f" a
// w:br; "\r" and characters XML cannot carry are dropped. The run's properties
// and non-text content (drawings, fields, page breaks) are kept.
func (r Run) SetText(s string) {
	at := -1
	kept := r.el.Children[:0:0]
	for _, n := range r.el.Children {
		if el, ok := n.(*Element); ok && r.isTextChild(el) {
			if at < 0 {
				at = len(kept)
			}
			el.parent = nil
			continue
		}
		kept = append(kept, n)
	}
	r.el.Children = kept
	if at < 0 {
		at = len(r.el.Children)
	}

	for _, el := range r.textElements(s) {
		r.el.InsertChild(at, el)
		at++
	}
}

func (r Run) textElements(s string) []*Element {
	var out []*Element
	var segment strings.Builder
	flush := func() {
		if segment.Len() == 0 {
			return
		}
		t := NewElement(r.ns, "t")
		t.SetAttr("xml", "space", "preserve")
		t.AppendChild(CharData(segment.String()))
		out = append(out, t)
		segment.Reset()
	}
	for _, c := range s {
		switch c {
		case '\t':
			flush()
			out = append(out, NewElement(r.ns, "tab"))
		case '\n', '\v', '\f':
			flush()
			out = append(out, NewElement(r.ns, "br"))
		default:
			if legalXMLChar(c) && c != '\r' {
				segment.WriteRune(c)
			}
		}
	}
	flush()
	return out
}

// legalXMLChar reports whether c may appear in XML 1.0 character data
func legalXMLChar(c rune) bool {
	switch {
	case c == '\t' || c == '\n' || c == '\r':
		return true
	case c < 0x20:
		return false
	case c >= 0xD800 && c <= 0xDFFF, c == 0xFFFE, c == 0xFFFF:
		return false
	}
	return c <= 0x10FFFF
}

// isEmpty reports whether the run holds nothing but its properties
func (r Run) isEmpty() bool {
	for _, child := range r.el.Elements() {
		if !child.Is(r.ns, "rPr") {
			return false
		}
	}
	return true
}

// Properties returns the run's w:rPr element, or nil
func (r Run) Properties() *Element {
	return r.el.Child(r.ns, "rPr")
}

// CopyProperties replaces the run's properties with a copy of props (nil clears them)
func (r Run) CopyProperties(props *Element) {
	if existing := r.Properties(); existing != nil {
		_ = r.el.RemoveChild(existing)
	}
	if props != nil {
		r.el.InsertChild(0, props.Clone())
	}
}

func (r Run) ensureProperties() *Element {
	if props := r.Properties(); props != nil {
		return props
	}
	props := NewElement(r.ns, "rPr")
	r.el.InsertChild(0, props)
	return props
}

// runPropertyOrder is the element sequence of CT_RPr. Word rejects run properties
// that are out of order, so new children are inserted at their schema position.
var runPropertyOrder = []string{
	"rStyle", "rFonts", "b", "bCs", "i", "iCs", "caps", "smallCaps", "strike", "dstrike",
	"outline", "shadow", "emboss", "imprint", "noProof", "snapToGrid", "vanish", "webHidden",
	"color", "spacing", "w", "kern", "position", "sz", "szCs", "highlight", "u", "effect",
	"bdr", "shd", "fitText", "vertAlign", "rtl", "cs", "em", "lang", "eastAsianLayout",
	"specVanish", "oMath", "rPrChange",
}

func runPropertyRank(local string) int {
	for i, name := range runPropertyOrder {
		if name == local {
			return i
		}
	}
	// unknown extensions go just before rPrChange
	return len(runPropertyOrder) - 1
}

// property returns the rPr child named local, creating it at its schema position
func (r Run) property(local string) *Element {
	props := r.ensureProperties()
	if el := props.Child(r.ns, local); el != nil {
		return el
	}
	el := NewElement(r.ns, local)
	rank := runPropertyRank(local)
	at := len(props.Children)
	for i, n := range props.Children {
		if child, ok := n.(*Element); ok && runPropertyRank(child.Name.Local) > rank {
			at = i
			break
		}
	}
	props.InsertChild(at, el)
	return el
}

// SetFont sets the run's font family. Theme font references are dropped since Word
// would otherwise prefer them over the explicit family.
func (r Run) SetFont(name string) {
	fonts := r.property("rFonts")
	fonts.SetAttr(r.ns, "ascii", name)
	fonts.SetAttr(r.ns, "hAnsi", name)
	fonts.SetAttr(r.ns, "cs", name)
	for _, theme := range []string{"asciiTheme", "hAnsiTheme", "cstheme"} {
		fonts.RemoveAttr(r.ns, theme)
	}
}

// SetSize sets the run's font size in points (stored as half points)
func (r Run) SetSize(points float64) {
	half := strconv.Itoa(int(math.Round(points * 2)))
	r.property("sz").SetAttr(r.ns, "val", half)
	r.property("szCs").SetAttr(r.ns, "val", half)
}

// SetColor sets the run's color as an RRGGBB hex value
func (r Run) SetColor(hex string) {
	color := r.property("color")
	color.SetAttr(r.ns, "val", strings.ToUpper(hex))
	for _, theme := range []string{"themeColor", "themeTint", "themeShade"} {
		color.RemoveAttr(r.ns, theme)
	}
}

// Font returns the run's explicit ASCII font family, or ""
func (r Run) Font() string {
	if props := r.Properties(); props != nil {
		if fonts := props.Child(r.ns, "rFonts"); fonts != nil {
			v, _ := fonts.AttrValue(r.ns, "ascii")
			return v
		}
	}
	return ""
}

// Size returns the run's explicit font size in points, or 0
func (r Run) Size() float64 {
	if props := r.Properties(); props != nil {
		if sz := props.Child(r.ns, "sz"); sz != nil {
			v, _ := sz.AttrValue(r.ns, "val")
			half, err := strconv.Atoi(v)
			if err == nil {
				return float64(half) / 2
			}
		}
	}
	return 0
}

// Color returns the run's explicit color, or ""
func (r Run) Color() string {
	if props := r.Properties(); props != nil {
		if color := props.Child(r.ns, "color"); color != nil {
			v, _ := color.AttrValue(r.ns, "val")
			return v
		}
	}
	return ""
}
