// Package sheet reads consent records from an XLSX workbook.
//
// The first non-empty row of the sheet names the columns. Every following
// non-blank row becomes a consent.Record keyed by those names, with cells read
// as the workbook displays them.
package sheet

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/benjaminschreck/go-consent/pkg/consent"
	"github.com/xuri/excelize/v2"
)

// ErrEmptySheet is returned when a sheet has a header but no data rows.
// It matches consent.ErrEmptyData with errors.Is.
var ErrEmptySheet = consent.ErrEmptyData

// Options selects what part of the workbook is read
type Options struct {
	// Sheet is the sheet name. Empty means the first sheet.
	Sheet string
}

// Read parses the workbook in r. Failures to open or read the workbook are
// returned as *consent.InputError.
func Read(r io.Reader, opts Options) ([]consent.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, consent.NewInputError("data", fmt.Errorf("failed to open workbook: %w", err))
	}
	defer f.Close()

	records, err := readSheet(f, opts)
	if err != nil {
		return nil, consent.NewInputError("data", err)
	}
	return records, nil
}

// ReadFile opens path and reads it with Read
func ReadFile(path string, opts Options) ([]consent.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, consent.NewInputError("data", err)
	}
	defer file.Close()
	return Read(file, opts)
}

func readSheet(f *excelize.File, opts Options) ([]consent.Record, error) {
	name := opts.Sheet
	if name == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		name = sheets[0]
	} else if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", name)
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}

	headerIdx := -1
	for i, row := range rows {
		if !blank(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrEmptySheet
	}
	headers := make([]string, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		headers[i] = strings.TrimSpace(h)
	}

	var records []consent.Record
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}
		rowNum := i + 1

		values := make(map[string]string, len(headers))
		for col, header := range headers {
			if header == "" {
				continue
			}
			if _, dup := values[header]; dup {
				continue
			}
			if col < len(row) {
				values[header] = row[col]
			} else {
				values[header] = ""
			}
		}

		visible, err := f.GetRowVisible(name, rowNum)
		if err != nil {
			return nil, fmt.Errorf("failed to read visibility of row %d: %w", rowNum, err)
		}

		records = append(records, consent.Record{
			Index:  len(records),
			Row:    rowNum,
			Values: values,
			Hidden: !visible,
		})
	}

	if len(records) == 0 {
		return nil, ErrEmptySheet
	}
	return records, nil
}

// Visible drops hidden records. A workbook with no hidden rows is returned
// unchanged. Index and Row keep their workbook positions.
func Visible(records []consent.Record) []consent.Record {
	hidden := 0
	for _, rec := range records {
		if rec.Hidden {
			hidden++
		}
	}
	if hidden == 0 {
		return records
	}

	visible := make([]consent.Record, 0, len(records)-hidden)
	for _, rec := range records {
		if !rec.Hidden {
			visible = append(visible, rec)
		}
	}
	return visible
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
