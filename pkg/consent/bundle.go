package consent

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"time"
)

// BundleName is the archive name offered for download
const BundleName = "consentimientos_generados.zip"

// Entry is one generated document
type Entry struct {
	Name string
	Data []byte
}

// Bundle collects generated documents in processing order. Adding a name twice
// keeps the first position and the last data.
type Bundle struct {
	entries []Entry
	index   map[string]int
}

// NewBundle creates an empty bundle
func NewBundle() *Bundle {
	return &Bundle{index: make(map[string]int)}
}

// Add stores a document and reports whether it replaced an earlier one of the same name
func (b *Bundle) Add(name string, data []byte) bool {
	if i, ok := b.index[name]; ok {
		b.entries[i].Data = data
		return true
	}
	b.index[name] = len(b.entries)
	b.entries = append(b.entries, Entry{Name: name, Data: data})
	return false
}

// Len returns the number of distinct entries
func (b *Bundle) Len() int {
	return len(b.entries)
}

// Entries returns the entries in order
func (b *Bundle) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// WriteZip writes the bundle as a deflate-compressed zip archive
func (b *Bundle) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)
	now := time.Now()

	for _, e := range b.entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", e.Name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

// Bytes returns the zip archive
func (b *Bundle) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := b.WriteZip(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
