package consent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Name component limits, in characters
const (
	maxInvestigatorLen = 100
	maxSiteLen         = 50
	maxProtocolLen     = 50
)

var illegalFileChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// GenerateOptions configures a batch
type GenerateOptions struct {
	// Workers builds that many records at once; 0 or 1 builds sequentially
	Workers int
	Logger  *Logger
	// BatchID overrides the generated correlation id
	BatchID string
}

// Report is the outcome of a batch
type Report struct {
	BatchID   string
	Bundle    *Bundle
	Failures  []*RowError
	Generated int
	Total     int
}

// Summary returns the user-facing result: one line per failed row, then the count
func (r *Report) Summary() string {
	var sb strings.Builder
	for _, f := range r.Failures {
		sb.WriteString(f.Error())
		sb.WriteByte('\n')
	}
	sb.WriteString(fmt.Sprintf("Documentos generados: %d", r.Generated))
	return sb.String()
}

// Err returns the row failures as one error, or nil
func (r *Report) Err() error {
	m := NewMultiError()
	for _, f := range r.Failures {
		m.Add(f)
	}
	return m.Err()
}

type buildResult struct {
	done bool
	data []byte
	err  error
}

// Generate builds a document for every record. A failing record is reported in
// Report.Failures and the batch goes on. Documents are bundled in record order
// whatever the number of workers.
//
// When ctx is cancelled no further record is started; the report holds what was
// built so far and ctx.Err() is returned with it.
func Generate(ctx context.Context, b DocumentBuilder, records []Record, opts GenerateOptions) (*Report, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}

	batchID := opts.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = GetLogger()
	}
	logger = logger.WithField("batch", batchID)
	logger.Info("generating %d documents", len(records))

	results := make([]buildResult, len(records))
	if opts.Workers <= 1 {
		for i, rec := range records {
			if ctx.Err() != nil {
				break
			}
			results[i] = buildRecord(b, rec)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for i, rec := range records {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				results[i] = buildRecord(b, rec)
				return nil
			})
		}
		_ = g.Wait()
	}

	report := &Report{BatchID: batchID, Bundle: NewBundle(), Total: len(records)}
	for i, res := range results {
		if !res.done {
			continue
		}
		rec := records[i]
		rowLogger := logger.WithField("row", rec.Row)

		if res.err != nil {
			failure := &RowError{Row: rec.Row, Index: rec.Index, Cause: res.err}
			report.Failures = append(report.Failures, failure)
			rowLogger.Error("%v", failure)
			continue
		}

		name := FileName(rec)
		if report.Bundle.Add(name, res.data) {
			rowLogger.Warn("duplicate file name %q, keeping the latest document", name)
		}
		report.Generated++
	}

	logger.Info("generated %d of %d documents, %d failed", report.Generated, len(records), len(report.Failures))
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func buildRecord(b DocumentBuilder, rec Record) (res buildResult) {
	defer func() {
		if r := recover(); r != nil {
			res = buildResult{done: true, err: RecoverError(r)}
		}
	}()
	data, err := b.Build(rec)
	return buildResult{done: true, data: data, err: err}
}

// FileName derives the archive entry name of a record:
// "<investigator> - Centro <site> - <protocol>.docx". Records with neither an
// investigator nor a site are named after their position.
func FileName(rec Record) string {
	inv := sanitizeName(rec.Get(ColInvestigator), maxInvestigatorLen)
	site := sanitizeName(rec.Get(ColSite), maxSiteLen)
	protocol := sanitizeName(rec.Get(ColProtocol), maxProtocolLen)

	if inv == "" && site == "" {
		return fmt.Sprintf("documento_generado_%d.docx", rec.Index+1)
	}
	return fmt.Sprintf("%s - Centro %s - %s.docx", inv, site, protocol)
}

func sanitizeName(s string, limit int) string {
	s = illegalFileChars.ReplaceAllString(s, "_")
	if r := []rune(s); len(r) > limit {
		s = string(r[:limit])
	}
	return s
}
