package consent

import (
	"archive/zip"
	"fmt"
	"io"
	"regexp"
)

// Well-known part names
const (
	documentPartName = "word/document.xml"
	corePropsName    = "docProps/core.xml"
)

var headerFooterPattern = regexp.MustCompile(`^word/(header|footer)\d*\.xml$`)

// DocxReader handles reading the parts of a DOCX package
type DocxReader struct {
	reader *zip.Reader
	Parts  map[string]*zip.File
}

// NewDocxReader creates a new DOCX reader
func NewDocxReader(r io.ReaderAt, size int64) (*DocxReader, error) {
	zipReader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read zip file: %v", ErrInvalidTemplate, err)
	}

	dr := &DocxReader{
		reader: zipReader,
		Parts:  make(map[string]*zip.File),
	}

	for _, file := range zipReader.File {
		dr.Parts[file.Name] = file
	}

	if _, ok := dr.Parts[documentPartName]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidTemplate, documentPartName)
	}

	return dr, nil
}

// GetPart retrieves the content of a specific part
func (dr *DocxReader) GetPart(partName string) ([]byte, error) {
	file, ok := dr.Parts[partName]
	if !ok {
		return nil, fmt.Errorf("part %s not found", partName)
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open part %s: %w", partName, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read part %s: %w", partName, err)
	}

	return content, nil
}

// ListParts returns the part names in archive order
func (dr *DocxReader) ListParts() []string {
	parts := make([]string, 0, len(dr.reader.File))
	for _, file := range dr.reader.File {
		parts = append(parts, file.Name)
	}
	return parts
}

// HeaderFooterParts returns the names of the header and footer parts in archive order
func (dr *DocxReader) HeaderFooterParts() []string {
	var names []string
	for _, name := range dr.ListParts() {
		if headerFooterPattern.MatchString(name) {
			names = append(names, name)
		}
	}
	return names
}

// writePackage writes a DOCX archive. Parts found in replaced are written from
// there; every other part is copied from the reader without recompression.
func writePackage(w io.Writer, dr *DocxReader, replaced map[string][]byte) error {
	zw := zip.NewWriter(w)

	for _, file := range dr.reader.File {
		content, ok := replaced[file.Name]
		if !ok {
			if err := zw.Copy(file); err != nil {
				return fmt.Errorf("failed to copy %s: %w", file.Name, err)
			}
			continue
		}

		header := &zip.FileHeader{
			Name:     file.Name,
			Method:   zip.Deflate,
			Modified: file.Modified,
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", file.Name, err)
		}
		if _, err := fw.Write(content); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize docx: %w", err)
	}
	return nil
}
