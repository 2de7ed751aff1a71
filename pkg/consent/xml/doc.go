// Package xml provides a lossless tree for WordprocessingML parts and typed views over it.
//
// DOCX files are ZIP archives of XML parts. The generator needs to edit a handful of
// elements (paragraphs, runs, run properties, table cells) while every other element of
// the part survives untouched, so parts are kept as a generic element tree and the
// document concepts are thin views on top of it.
//
// # Structure Organization
//
//   - node.go: Element and the other node kinds, structural editing (append, insert, remove, clone)
//   - tree.go: parsing a part into a Tree and serialising it back
//   - document.go: Document (document.xml, headerN.xml, footerN.xml) and Story, the block container
//   - paragraph.go: Paragraph, run merging
//   - run.go: Run text and run properties (font, size, color)
//   - table.go: Table, Row and Cell
//
// # Key Concepts
//
// Story: any container of block-level content. The document body, a header, a footer and a
// table cell are all stories.
//
// Run: a contiguous span of text sharing one formatting state. A placeholder can be split
// over several runs by the editor that produced the file.
//
// Element names keep the prefix exactly as written in the source (Name.Space is "w" for
// <w:p>), so a part that is parsed and written back without edits is byte-for-byte
// equivalent apart from entity normalisation.
//
// Example:
//
//	doc, err := xml.ParseDocument(r)
//	if err != nil {
//	    return err
//	}
//	body, err := doc.Body()
//	if err != nil {
//	    return err
//	}
//	for _, para := range body.AllParagraphs() {
//	    fmt.Println(para.Text())
//	}
package xml
