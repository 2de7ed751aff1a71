package xml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoBody is returned when a part has no block-level content container
var ErrNoBody = errors.New("part has no body")

// Document is a parsed WordprocessingML part: word/document.xml, a header or a footer
type Document struct {
	Tree *Tree
	ns   string
}

// ParseDocument parses a WordprocessingML part and checks that it has a body
func ParseDocument(r io.Reader) (*Document, error) {
	tree, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	doc := &Document{Tree: tree, ns: mainPrefix(tree.Root)}
	if _, err := doc.Body(); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc, nil
}

// ParseDocumentBytes is ParseDocument over a byte slice
func ParseDocumentBytes(data []byte) (*Document, error) {
	return ParseDocument(bytes.NewReader(data))
}

// mainPrefix finds the prefix bound to the WordprocessingML namespace on the root element
func mainPrefix(root *Element) string {
	for _, a := range root.Attr {
		if a.Value != NamespaceMain {
			continue
		}
		if a.Name.Space == "xmlns" {
			return a.Name.Local
		}
		if a.Name.Space == "" && a.Name.Local == "xmlns" {
			return ""
		}
	}
	return "w"
}

// Prefix returns the prefix used for WordprocessingML elements in this part
func (d *Document) Prefix() string {
	return d.ns
}

// Kind returns the local name of the root element ("document", "hdr", "ftr", ...)
func (d *Document) Kind() string {
	return d.Tree.Root.Name.Local
}

// Body returns the part's block container: w:body for the main document, the root
// element for headers, footers, footnotes and endnotes.
func (d *Document) Body() (Story, error) {
	root := d.Tree.Root
	if root.Name.Space != d.ns {
		return Story{}, ErrNoBody
	}
	switch root.Name.Local {
	case "document":
		body := root.Child(d.ns, "body")
		if body == nil {
			return Story{}, ErrNoBody
		}
		return Story{el: body, ns: d.ns}, nil
	case "hdr", "ftr", "footnotes", "endnotes":
		return Story{el: root, ns: d.ns}, nil
	}
	return Story{}, ErrNoBody
}

// Bytes serialises the part
func (d *Document) Bytes() []byte {
	return d.Tree.Bytes()
}

// Story is a container of block-level content: a document body, a header, a footer or a table cell
type Story struct {
	el *Element
	ns string
}

// Element returns the underlying element
func (s Story) Element() *Element {
	return s.el
}

// walkBlocks calls fn for every block-level p and tbl directly inside el, descending
// through content controls and custom XML wrappers.
func walkBlocks(el *Element, ns string, fn func(*Element)) {
	for _, child := range el.Elements() {
		switch {
		case child.Is(ns, "p"), child.Is(ns, "tbl"):
			fn(child)
		case child.Is(ns, "sdt"):
			if content := child.Child(ns, "sdtContent"); content != nil {
				walkBlocks(content, ns, fn)
			}
		case child.Is(ns, "customXml"):
			walkBlocks(child, ns, fn)
		}
	}
}

// Paragraphs returns the story's own paragraphs, excluding those inside tables
func (s Story) Paragraphs() []Paragraph {
	var out []Paragraph
	walkBlocks(s.el, s.ns, func(el *Element) {
		if el.Name.Local == "p" {
			out = append(out, Paragraph{el: el, ns: s.ns})
		}
	})
	return out
}

// Tables returns the story's own tables
func (s Story) Tables() []Table {
	var out []Table
	walkBlocks(s.el, s.ns, func(el *Element) {
		if el.Name.Local == "tbl" {
			out = append(out, Table{el: el, ns: s.ns})
		}
	})
	return out
}

// AllParagraphs returns every paragraph of the story in document order, including the
// paragraphs of every cell of every table, nested tables included.
func (s Story) AllParagraphs() []Paragraph {
	var out []Paragraph
	walkBlocks(s.el, s.ns, func(el *Element) {
		if el.Name.Local == "p" {
			out = append(out, Paragraph{el: el, ns: s.ns})
			return
		}
		table := Table{el: el, ns: s.ns}
		for _, row := range table.Rows() {
			for _, cell := range row.Cells() {
				out = append(out, cell.Story().AllParagraphs()...)
			}
		}
	})
	return out
}

// AppendParagraph adds a paragraph holding text at the end of the story. In a document
// body the paragraph goes before the final section properties.
func (s Story) AppendParagraph(text string) Paragraph {
	p := Paragraph{el: NewElement(s.ns, "p"), ns: s.ns}
	if text != "" {
		p.AddRun(text)
	}

	children := s.el.Elements()
	if n := len(children); n > 0 && children[n-1].Is(s.ns, "sectPr") {
		s.el.InsertChild(s.el.IndexOf(children[n-1]), p.el)
	} else {
		s.el.AppendChild(p.el)
	}
	return p
}

// Text returns the text of all paragraphs, one line per paragraph
func (s Story) Text() string {
	paras := s.AllParagraphs()
	lines := make([]string, len(paras))
	for i, p := range paras {
		lines[i] = p.Text()
	}
	return strings.Join(lines, "\n")
}
