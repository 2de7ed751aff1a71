package sheet

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/benjaminschreck/go-consent/pkg/consent"
	"github.com/xuri/excelize/v2"
)

// workbook builds an XLSX with the given rows starting at A<startRow> of
// Sheet1. Rows listed in hidden are hidden.
func workbook(t *testing.T, startRow int, rows [][]interface{}, hidden ...int) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			t.Fatal(err)
		}
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	for _, row := range hidden {
		if err := f.SetRowVisible("Sheet1", row, false); err != nil {
			t.Fatalf("SetRowVisible() error = %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	return buf.Bytes()
}

var header = []interface{}{"Investigador", " Nro. de Centro ", "Numero de protocolo", "provincia"}

func TestRead(t *testing.T) {
	data := workbook(t, 1, [][]interface{}{
		header,
		{"Ana Pérez", 12, "XYZ-001", "Mendoza"},
		{},
		{"Luis Gómez", 7, "XYZ-001"},
	})

	records, err := Read(bytes.NewReader(data), Options{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	first := records[0]
	if first.Index != 0 || first.Row != 2 {
		t.Errorf("first position = %d/%d, want 0/2", first.Index, first.Row)
	}
	if got := first.Get(consent.ColSite); got != "12" {
		t.Errorf("site = %q, want 12 (header should be trimmed)", got)
	}
	if got := first.Get(consent.ColInvestigator); got != "Ana Pérez" {
		t.Errorf("investigator = %q", got)
	}

	second := records[1]
	if second.Index != 1 || second.Row != 4 {
		t.Errorf("second position = %d/%d, want 1/4", second.Index, second.Row)
	}
	if got := second.Get(consent.ColProvince); got != "" {
		t.Errorf("missing trailing cell = %q, want empty", got)
	}
	if _, ok := second.Values["provincia"]; !ok {
		t.Error("missing trailing cell should still be present in Values")
	}
}

func TestReadHeaderAfterBlankRows(t *testing.T) {
	data := workbook(t, 3, [][]interface{}{
		header,
		{"Ana Pérez", 12, "XYZ-001", "Córdoba"},
	})

	records, err := Read(bytes.NewReader(data), Options{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(records) != 1 || records[0].Row != 4 {
		t.Fatalf("records = %+v", records)
	}
	if records[0].Get(consent.ColProvince) != "Córdoba" {
		t.Errorf("province = %q", records[0].Get(consent.ColProvince))
	}
}

func TestReadHiddenRows(t *testing.T) {
	data := workbook(t, 1, [][]interface{}{
		header,
		{"Ana", 1, "P", "Salta"},
		{"Beto", 2, "P", "Jujuy"},
		{"Carla", 3, "P", "Tucumán"},
	}, 3)

	records, err := Read(bytes.NewReader(data), Options{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if records[0].Hidden || !records[1].Hidden || records[2].Hidden {
		t.Errorf("hidden flags = %v %v %v", records[0].Hidden, records[1].Hidden, records[2].Hidden)
	}

	visible := Visible(records)
	if len(visible) != 2 {
		t.Fatalf("Visible() = %d records, want 2", len(visible))
	}
	if visible[1].Get(consent.ColInvestigator) != "Carla" || visible[1].Index != 2 || visible[1].Row != 4 {
		t.Errorf("visible record lost its position: %+v", visible[1])
	}
}

func TestVisibleWithoutHiddenRows(t *testing.T) {
	records := []consent.Record{{Index: 0}, {Index: 1}}
	if got := Visible(records); len(got) != 2 {
		t.Errorf("Visible() = %d records, want 2", len(got))
	}
}

func TestReadSelectsSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if _, err := f.NewSheet("Centros"); err != nil {
		t.Fatal(err)
	}
	row := []interface{}{"Investigador"}
	if err := f.SetSheetRow("Centros", "A1", &row); err != nil {
		t.Fatal(err)
	}
	row = []interface{}{"Dra. Ruiz"}
	if err := f.SetSheetRow("Centros", "A2", &row); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	records, err := Read(bytes.NewReader(data), Options{Sheet: "Centros"})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(records) != 1 || records[0].Get(consent.ColInvestigator) != "Dra. Ruiz" {
		t.Errorf("records = %+v", records)
	}

	if _, err := Read(bytes.NewReader(data), Options{Sheet: "Otra"}); !consent.IsInputError(err) {
		t.Errorf("unknown sheet error = %v, want input error", err)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		sentinel error
	}{
		{name: "not a workbook", data: []byte("hola")},
		{name: "empty sheet", data: workbook(t, 1, nil), sentinel: ErrEmptySheet},
		{name: "header only", data: workbook(t, 1, [][]interface{}{header}), sentinel: consent.ErrEmptyData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data), Options{})
			if !consent.IsInputError(err) {
				t.Fatalf("Read() error = %v, want input error", err)
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("Read() error = %v, want %v", err, tt.sentinel)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datos.xlsx")
	data := workbook(t, 1, [][]interface{}{header, {"Ana", 1, "P", "Salta"}})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := ReadFile(path, Options{})
	if err != nil || len(records) != 1 {
		t.Fatalf("ReadFile() = %v, %v", records, err)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.xlsx"), Options{}); !consent.IsInputError(err) {
		t.Errorf("missing file error = %v, want input error", err)
	}
}
