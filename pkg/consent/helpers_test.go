package consent

import (
	"archive/zip"
	"bytes"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/benjaminschreck/go-consent/pkg/consent/xml"
)

const testNamespaces = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// p builds a paragraph with one plain run per text
func p(texts ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	for _, t := range texts {
		sb.WriteString(`<w:r><w:t xml:space="preserve">`)
		sb.WriteString(xmlEscaper.Replace(t))
		sb.WriteString(`</w:t></w:r>`)
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

// styledRun builds a run with the given run properties
func styledRun(props, text string) string {
	return `<w:r><w:rPr>` + props + `</w:rPr><w:t xml:space="preserve">` + xmlEscaper.Replace(text) + `</w:t></w:r>`
}

// tbl builds a one-row table, one cell per content
func tbl(cells ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:tbl><w:tr>")
	for _, c := range cells {
		sb.WriteString("<w:tc>" + c + "</w:tc>")
	}
	sb.WriteString("</w:tr></w:tbl>")
	return sb.String()
}

func documentXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document ` + testNamespaces + `><w:body>` + body +
		`<w:sectPr><w:footerReference w:type="default" r:id="rId9"/></w:sectPr></w:body></w:document>`
}

func footerXML(inner string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:ftr ` + testNamespaces + `>` + inner + `</w:ftr>`
}

func headerXML(inner string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:hdr ` + testNamespaces + `>` + inner + `</w:hdr>`
}

func coreXML(modified string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
		`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" ` +
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		`<dc:creator>Admin</dc:creator>` +
		`<dcterms:modified xsi:type="dcterms:W3CDTF">` + modified + `</dcterms:modified>` +
		`</cp:coreProperties>`
}

// createDOCXBytes creates a minimal DOCX with the given body and extra parts
func createDOCXBytes(t *testing.T, body string, extra map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	write := func(name, content string) {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	write("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`)
	write("_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`)
	write("word/document.xml", documentXML(body))

	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		write(name, extra[name])
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func mustTemplate(t *testing.T, body string, extra map[string]string) *Template {
	t.Helper()
	tmpl, err := NewTemplate(createDOCXBytes(t, body, extra))
	if err != nil {
		t.Fatalf("NewTemplate() error = %v", err)
	}
	return tmpl
}

// parseStory parses a body fragment for engine tests
func parseStory(t *testing.T, body string) (*xml.Document, xml.Story) {
	t.Helper()
	doc, err := xml.ParseDocumentBytes([]byte(documentXML(body)))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	story, err := doc.Body()
	if err != nil {
		t.Fatalf("Body() error = %v", err)
	}
	return doc, story
}

// openOutput reopens a generated document
func openOutput(t *testing.T, data []byte) *Package {
	t.Helper()
	tmpl, err := NewTemplate(data)
	if err != nil {
		t.Fatalf("generated document is not a valid DOCX: %v", err)
	}
	pkg, err := tmpl.Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return pkg
}

func bodyText(t *testing.T, pkg *Package) string {
	t.Helper()
	body, err := pkg.Body()
	if err != nil {
		t.Fatalf("Body() error = %v", err)
	}
	return body.Text()
}

func paragraphTexts(story xml.Story) []string {
	var out []string
	for _, para := range story.AllParagraphs() {
		out = append(out, para.Text())
	}
	return out
}

// fullRecord has a value for every recognised column
func fullRecord(index int) Record {
	return Record{
		Index: index,
		Row:   index + 2,
		Values: map[string]string{
			string(ColProtocol):        "XYZ-001",
			string(ColStudyTitle):      "Estudio de fase III",
			string(ColSponsor):         "Laboratorio Sur",
			string(ColInvestigator):    "Dra. Ana Pérez",
			string(ColInstitution):     "Hospital Central",
			string(ColAddress):         "Av. Siempreviva 742",
			string(ColRole):            "Jefa de servicio",
			string(ColSite):            "12",
			string(ColCommittee):       "CEI Central",
			string(ColSubInvestigator): "Dr. Luis Gómez",
			string(ColPhone):           "0800-111-2222",
			string(ColSubPhone):        "0800-333-4444",
			string(ColProvince):        "Mendoza",
		},
	}
}
