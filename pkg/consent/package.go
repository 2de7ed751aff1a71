package consent

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/benjaminschreck/go-consent/pkg/consent/xml"
)

// Template is the immutable source DOCX. It is parsed afresh by every Open, so
// the packages of different records never share a tree.
type Template struct {
	source   []byte
	modified time.Time
	parts    []string
}

// LoadTemplate reads and checks a template
func LoadTemplate(r io.Reader) (*Template, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	return NewTemplate(data)
}

// LoadTemplateFile reads a template from disk
func LoadTemplateFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewDocumentError("read", path, err)
	}
	return NewTemplate(data)
}

// NewTemplate checks that data is a DOCX package with a parseable main document.
// The template keeps data; callers must not modify it afterwards.
func NewTemplate(data []byte) (*Template, error) {
	dr, err := NewDocxReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	content, err := dr.GetPart(documentPartName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if _, err := xml.ParseDocumentBytes(content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	t := &Template{source: data, parts: dr.ListParts()}
	if core, err := dr.GetPart(corePropsName); err == nil {
		t.modified, _ = parseModified(core)
	}
	return t, nil
}

// Size returns the template size in bytes
func (t *Template) Size() int {
	return len(t.source)
}

// Parts returns the names of the template's parts in archive order
func (t *Template) Parts() []string {
	out := make([]string, len(t.parts))
	copy(out, t.parts)
	return out
}

// Modified returns the dcterms:modified date of the template's core properties
func (t *Template) Modified() (time.Time, bool) {
	return t.modified, !t.modified.IsZero()
}

// Open returns a new, independently mutable copy of the template
func (t *Template) Open() (*Package, error) {
	dr, err := NewDocxReader(bytes.NewReader(t.source), int64(len(t.source)))
	if err != nil {
		return nil, NewDocumentError("open", "", err)
	}

	content, err := dr.GetPart(documentPartName)
	if err != nil {
		return nil, NewDocumentError("open", documentPartName, err)
	}
	doc, err := xml.ParseDocumentBytes(content)
	if err != nil {
		return nil, NewDocumentError("parse", documentPartName, err)
	}

	return &Package{
		reader:   dr,
		Document: doc,
		parts:    make(map[string]*xml.Document),
	}, nil
}

// Part is a parsed header or footer
type Part struct {
	Name     string
	Document *xml.Document
}

// IsFooter reports whether the part is a page footer
func (p Part) IsFooter() bool {
	return p.Document.Kind() == "ftr"
}

// Story returns the part's content
func (p Part) Story() (xml.Story, error) {
	return p.Document.Body()
}

// Package is one record's working copy of the template
type Package struct {
	reader   *DocxReader
	Document *xml.Document
	parts    map[string]*xml.Document
}

// Body returns the main document body
func (p *Package) Body() (xml.Story, error) {
	return p.Document.Body()
}

// HeadersAndFooters parses every header and footer part. Parts are parsed once
// per package; later calls return the same trees.
func (p *Package) HeadersAndFooters() ([]Part, error) {
	var out []Part
	for _, name := range p.reader.HeaderFooterParts() {
		doc, ok := p.parts[name]
		if !ok {
			content, err := p.reader.GetPart(name)
			if err != nil {
				return nil, NewDocumentError("open", name, err)
			}
			doc, err = xml.ParseDocumentBytes(content)
			if err != nil {
				return nil, NewDocumentError("parse", name, err)
			}
			p.parts[name] = doc
		}
		out = append(out, Part{Name: name, Document: doc})
	}
	return out, nil
}

// Footers returns the footer parts
func (p *Package) Footers() ([]Part, error) {
	all, err := p.HeadersAndFooters()
	if err != nil {
		return nil, err
	}
	var out []Part
	for _, part := range all {
		if part.IsFooter() {
			out = append(out, part)
		}
	}
	return out, nil
}

// WriteTo serialises the package as a DOCX archive
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	replaced := map[string][]byte{documentPartName: p.Document.Bytes()}
	for name, doc := range p.parts {
		replaced[name] = doc.Bytes()
	}

	cw := &countingWriter{w: w}
	err := writePackage(cw, p.reader, replaced)
	return cw.n, err
}

// Bytes serialises the package as a DOCX archive
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// parseModified reads dcterms:modified from docProps/core.xml
func parseModified(core []byte) (time.Time, error) {
	tree, err := xml.Parse(bytes.NewReader(core))
	if err != nil {
		return time.Time{}, err
	}
	for _, el := range tree.Root.Elements() {
		if el.Name.Local != "modified" {
			continue
		}
		value := strings.TrimSpace(el.Text())
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, value); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised modified date %q", value)
	}
	return time.Time{}, fmt.Errorf("no modified date in %s", corePropsName)
}
