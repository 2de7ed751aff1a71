package xml

// Table is a view over a w:tbl element
type Table struct {
	el *Element
	ns string
}

// Row is a view over a w:tr element
type Row struct {
	el *Element
	ns string
}

// Cell is a view over a w:tc element
type Cell struct {
	el *Element
	ns string
}

// Element returns the underlying w:tbl element
func (t Table) Element() *Element {
	return t.el
}

// collect returns children named local, looking through content controls and custom XML
func collect(el *Element, ns, local string) []*Element {
	var out []*Element
	for _, child := range el.Elements() {
		switch {
		case child.Is(ns, local):
			out = append(out, child)
		case child.Is(ns, "sdt"):
			if content := child.Child(ns, "sdtContent"); content != nil {
				out = append(out, collect(content, ns, local)...)
			}
		case child.Is(ns, "customXml"):
			out = append(out, collect(child, ns, local)...)
		}
	}
	return out
}

// Rows returns the table's rows in order
func (t Table) Rows() []Row {
	var out []Row
	for _, el := range collect(t.el, t.ns, "tr") {
		out = append(out, Row{el: el, ns: t.ns})
	}
	return out
}

// Cells returns the row's cells in order. A cell spanning several grid columns is
// returned once.
func (r Row) Cells() []Cell {
	var out []Cell
	for _, el := range collect(r.el, r.ns, "tc") {
		out = append(out, Cell{el: el, ns: r.ns})
	}
	return out
}

// Element returns the underlying w:tc element
func (c Cell) Element() *Element {
	return c.el
}

// Story returns the cell's block content
func (c Cell) Story() Story {
	return Story{el: c.el, ns: c.ns}
}

// Paragraphs returns the cell's own paragraphs
func (c Cell) Paragraphs() []Paragraph {
	return c.Story().Paragraphs()
}

// Text returns the cell text, one line per paragraph
func (c Cell) Text() string {
	return c.Story().Text()
}
