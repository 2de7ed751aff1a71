// Package httpapi serves consent generation over HTTP: a template and a
// spreadsheet are uploaded, a zip of filled documents comes back.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/benjaminschreck/go-consent/pkg/consent"
	"github.com/benjaminschreck/go-consent/pkg/consent/sheet"
)

// Upload form fields
const (
	FieldTemplate = "template"
	FieldData     = "data"
)

// Response headers of POST /generate
const (
	HeaderGenerated = "X-Generated-Count"
	HeaderRowErrors = "X-Row-Errors"
	HeaderBatchID   = "X-Batch-Id"
)

const maxUploadMemory = 32 << 20

// Handler wires upload requests to the document builder.
type Handler struct {
	cfg    *consent.Config
	rules  *consent.Rules
	logger *consent.Logger
	mux    *http.ServeMux
}

// NewHandler creates the HTTP handler. A nil cfg, rules or logger falls back to
// the global configuration, the default rules and the global logger.
func NewHandler(cfg *consent.Config, rules *consent.Rules, logger *consent.Logger) *Handler {
	if cfg == nil {
		cfg = consent.GetGlobalConfig()
	}
	if rules == nil {
		rules = consent.DefaultRules()
	}
	if logger == nil {
		logger = consent.GetLogger()
	}

	h := &Handler{cfg: cfg, rules: rules, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("POST /generate", h.Generate)
	h.mux.HandleFunc("GET /healthz", h.Health)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Generate handles POST /generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid upload: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	tmpl, err := h.readTemplate(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	records, err := h.readRecords(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	builder := consent.NewBuilder(tmpl,
		consent.WithConfig(h.cfg),
		consent.WithRules(h.rules),
		consent.WithLogger(h.logger),
	)
	report, err := consent.Generate(r.Context(), builder, records, consent.GenerateOptions{
		Workers: h.cfg.Workers,
		Logger:  h.logger,
	})
	if err != nil {
		if report == nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		// the client is gone
		h.logger.Warn("batch %s interrupted: %v", report.BatchID, err)
		return
	}

	archive, err := report.Bundle.Bytes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	rowErrors := make([]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		rowErrors = append(rowErrors, f.Error())
	}
	encoded, err := json.Marshal(rowErrors)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", consent.BundleName))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	w.Header().Set(HeaderGenerated, strconv.Itoa(report.Generated))
	w.Header().Set(HeaderRowErrors, string(encoded))
	w.Header().Set(HeaderBatchID, report.BatchID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readTemplate(r *http.Request) (*consent.Template, error) {
	file, err := openFormFile(r, FieldTemplate)
	if err != nil {
		return nil, consent.NewInputError("template", err)
	}
	defer file.Close()

	tmpl, err := consent.LoadTemplate(file)
	if err != nil {
		return nil, consent.NewInputError("template", err)
	}
	return tmpl, nil
}

func (h *Handler) readRecords(r *http.Request) ([]consent.Record, error) {
	data, err := formFile(r, FieldData)
	if err != nil {
		return nil, consent.NewInputError("data", err)
	}
	records, err := sheet.Read(bytes.NewReader(data), sheet.Options{Sheet: h.cfg.Sheet})
	if err != nil {
		return nil, err
	}
	return sheet.Visible(records), nil
}

func openFormFile(r *http.Request, field string) (multipart.File, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, fmt.Errorf("missing form field %q", field)
		}
		return nil, err
	}
	return file, nil
}

func formFile(r *http.Request, field string) ([]byte, error) {
	file, err := openFormFile(r, field)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func statusFor(err error) int {
	if consent.IsInputError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
