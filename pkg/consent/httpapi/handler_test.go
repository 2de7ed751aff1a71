package httpapi

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/benjaminschreck/go-consent/pkg/consent"
	"github.com/xuri/excelize/v2"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p><w:r><w:t>Investigador: &lt;&lt;INVESTIGADOR&gt;&gt;</w:t></w:r></w:p>` +
	`</w:body></w:document>`

func templateBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(fw, documentXML); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func workbookBytes(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, field+".bin")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/generate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestHandler() *Handler {
	return NewHandler(consent.DefaultConfig(), consent.DefaultRules(), consent.NopLogger())
}

func TestGenerate(t *testing.T) {
	data := workbookBytes(t,
		[]interface{}{"Investigador", "Nro. de Centro", "Numero de protocolo", "provincia"},
		[]interface{}{"Ana Pérez", 12, "XYZ-001", "Mendoza"},
		[]interface{}{"", "", "XYZ-001", "Salta"},
	)
	req := uploadRequest(t, map[string][]byte{FieldTemplate: templateBytes(t), FieldData: data})
	rec := httptest.NewRecorder()

	newTestHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, consent.BundleName) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if got := rec.Header().Get(HeaderGenerated); got != "2" {
		t.Errorf("%s = %q, want 2", HeaderGenerated, got)
	}
	var rowErrors []string
	if err := json.Unmarshal([]byte(rec.Header().Get(HeaderRowErrors)), &rowErrors); err != nil || len(rowErrors) != 0 {
		t.Errorf("%s = %q, %v", HeaderRowErrors, rec.Header().Get(HeaderRowErrors), err)
	}
	if rec.Header().Get(HeaderBatchID) == "" {
		t.Error("batch id header missing")
	}

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("response is not a zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	want := []string{"Ana Pérez - Centro 12 - XYZ-001.docx", "documento_generado_2.docx"}
	if strings.Join(names, "|") != strings.Join(want, "|") {
		t.Errorf("entries = %v, want %v", names, want)
	}
}

func TestGenerateInputErrors(t *testing.T) {
	data := workbookBytes(t,
		[]interface{}{"Investigador"},
		[]interface{}{"Ana"},
	)
	headerOnly := workbookBytes(t, []interface{}{"Investigador"})

	tests := []struct {
		name  string
		files map[string][]byte
	}{
		{"missing template", map[string][]byte{FieldData: data}},
		{"missing data", map[string][]byte{FieldTemplate: templateBytes(t)}},
		{"template not a docx", map[string][]byte{FieldTemplate: []byte("hola"), FieldData: data}},
		{"data not a workbook", map[string][]byte{FieldTemplate: templateBytes(t), FieldData: []byte("hola")}},
		{"no data rows", map[string][]byte{FieldTemplate: templateBytes(t), FieldData: headerOnly}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestHandler().ServeHTTP(rec, uploadRequest(t, tt.files))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var payload map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil || payload["error"] == "" {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestGenerateRejectsNonMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newTestHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/generate", http.StatusMethodNotAllowed},
		{http.MethodGet, "/otra", http.StatusNotFound},
	}
	h := newTestHandler()
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
