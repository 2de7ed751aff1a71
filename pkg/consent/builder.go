package consent

import (
	"fmt"
	"strings"

	"github.com/benjaminschreck/go-consent/pkg/consent/xml"
)

// DocumentBuilder produces the document of one record
type DocumentBuilder interface {
	Build(rec Record) ([]byte, error)
}

// Builder fills the template for one record at a time. It is safe for concurrent
// use: every Build works on its own copy of the template.
type Builder struct {
	template   *Template
	resolver   *Resolver
	rules      *Rules
	policy     NormalizePolicy
	copyFooter bool
	headers    bool
	mergeRuns  bool
	logger     *Logger
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithRules sets style, token syntax, clauses, extra rules and trailer
func WithRules(rules *Rules) BuilderOption {
	return func(b *Builder) {
		if rules != nil {
			b.rules = rules
		}
	}
}

// WithPolicy sets the normalization policy
func WithPolicy(policy NormalizePolicy) BuilderOption {
	return func(b *Builder) {
		b.policy = policy
	}
}

// WithFooterCopy enables footer propagation from a reference copy of the template
func WithFooterCopy(enabled bool) BuilderOption {
	return func(b *Builder) {
		b.copyFooter = enabled
	}
}

// WithHeaders extends substitution to header and footer parts
func WithHeaders(enabled bool) BuilderOption {
	return func(b *Builder) {
		b.headers = enabled
	}
}

// WithRunMerging enables merging of identically formatted runs before substitution
func WithRunMerging(enabled bool) BuilderOption {
	return func(b *Builder) {
		b.mergeRuns = enabled
	}
}

// WithLogger sets the logger used for non-fatal problems
func WithLogger(logger *Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithConfig applies the document options of a configuration
func WithConfig(cfg *Config) BuilderOption {
	return func(b *Builder) {
		if cfg == nil {
			return
		}
		b.policy = cfg.Normalize
		b.copyFooter = cfg.CopyFooter
		b.headers = cfg.Headers
		b.mergeRuns = cfg.MergeRuns
	}
}

// NewBuilder creates a builder for the template
func NewBuilder(t *Template, opts ...BuilderOption) *Builder {
	b := &Builder{
		template:  t,
		rules:     DefaultRules(),
		policy:    PolicyInserted,
		mergeRuns: true,
		logger:    GetLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.resolver = NewResolver(b.rules.Syntax)
	return b
}

// Rules returns the rules in effect
func (b *Builder) Rules() *Rules {
	return b.rules
}

// Build generates the document for rec. Errors are returned to the caller; only
// paragraph removals and footer propagation fail softly.
func (b *Builder) Build(rec Record) ([]byte, error) {
	logger := b.logger.WithField("row", rec.Row)

	pkg, err := b.template.Open()
	if err != nil {
		return nil, err
	}

	var reference []footerText
	if b.copyFooter {
		reference, err = b.captureFooters()
		if err != nil {
			logger.Warn("footer capture failed: %v", err)
		}
	}

	body, err := pkg.Body()
	if err != nil {
		return nil, NewDocumentError("build", documentPartName, err)
	}
	stories := []xml.Story{body}
	if b.headers {
		parts, err := pkg.HeadersAndFooters()
		if err != nil {
			return nil, err
		}
		for _, part := range parts {
			story, err := part.Story()
			if err != nil {
				return nil, NewDocumentError("build", part.Name, err)
			}
			stories = append(stories, story)
		}
	}

	res := b.resolver.Resolve(rec)
	style := insertedStyle(b.policy, b.rules.Style)

	for _, token := range res.Omitted {
		for _, story := range stories {
			removed, errs := RemoveParagraphs(story, token)
			b.logRedaction(logger, token, RedactStats{Removed: removed, Errors: errs})
		}
	}

	var stats SubstituteStats
	for _, story := range stories {
		stats.Add(Substitute(story, res.Replacements, style, WithMergeRuns(b.mergeRuns)))
	}
	logger.Debug("substituted %d paragraphs (%d runs in place, %d rebuilt, %d merged)",
		stats.Paragraphs, stats.RunLocal, stats.Fallbacks, stats.Merged)

	region := rec.Get(ColProvince)
	b.logRedaction(logger, "jurisdiction "+NormalizeRegion(region),
		ApplyJurisdiction(body, region, b.rules.Jurisdiction, style))

	for _, rule := range b.rules.Extra {
		b.logRedaction(logger, rule.Snippet, ApplyRule(body, rule, style))
	}

	if b.policy == PolicyDocument {
		for _, story := range stories {
			Normalize(story, b.rules.Style)
		}
	}

	if b.copyFooter && reference != nil {
		if err := b.propagateFooters(pkg, reference, res); err != nil {
			logger.Warn("footer propagation failed: %v", err)
		}
	}

	if b.rules.Trailer.Enabled {
		b.appendTrailer(body)
	}

	out, err := pkg.Bytes()
	if err != nil {
		return nil, NewDocumentError("serialize", "", err)
	}
	return out, nil
}

func (b *Builder) logRedaction(logger *Logger, what string, stats RedactStats) {
	if stats.Removed > 0 || stats.Replaced > 0 {
		logger.Debug("%s: %d paragraphs removed, %d replaced", what, stats.Removed, stats.Replaced)
	}
	for _, err := range stats.Errors {
		logger.Debug("ignored redaction failure: %v", err)
	}
}

// footerText is the paragraph text of one reference footer
type footerText struct {
	name  string
	lines []string
}

// captureFooters reads the footers of an untouched copy of the template
func (b *Builder) captureFooters() ([]footerText, error) {
	ref, err := b.template.Open()
	if err != nil {
		return nil, err
	}
	footers, err := ref.Footers()
	if err != nil {
		return nil, err
	}

	out := make([]footerText, 0, len(footers))
	for _, part := range footers {
		story, err := part.Story()
		if err != nil {
			return nil, NewDocumentError("read footer", part.Name, err)
		}
		ft := footerText{name: part.Name}
		for _, para := range story.AllParagraphs() {
			ft.lines = append(ft.lines, para.Text())
		}
		out = append(out, ft)
	}
	return out, nil
}

// propagateFooters clears every footer paragraph of pkg and refills it with the
// reference text, tokens replaced, as a single run in the configured style.
// Paragraphs and reference lines holding an omitted token are dropped before
// lines are paired with paragraphs.
func (b *Builder) propagateFooters(pkg *Package, reference []footerText, res Resolution) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = RecoverError(r)
		}
	}()

	footers, err := pkg.Footers()
	if err != nil {
		return err
	}

	byName := make(map[string][]string, len(reference))
	for _, ft := range reference {
		byName[ft.name] = ft.lines
	}

	for _, part := range footers {
		lines, ok := byName[part.Name]
		if !ok {
			return fmt.Errorf("no reference for footer %s", part.Name)
		}
		story, err := part.Story()
		if err != nil {
			return NewDocumentError("write footer", part.Name, err)
		}
		for _, token := range res.Omitted {
			if _, errs := RemoveParagraphs(story, token); len(errs) > 0 {
				return errs[0]
			}
		}
		lines = withoutTokens(lines, res.Omitted)
		reps := res.Replacements

		paras := story.AllParagraphs()
		for i, para := range paras {
			para.ClearText()
			if i < len(lines) && lines[i] != "" {
				applyStyle(para.AddRun(reps.Apply(lines[i])), &b.rules.Style)
			}
		}
		for _, line := range lines[min(len(paras), len(lines)):] {
			for _, run := range story.AppendParagraph(reps.Apply(line)).Runs() {
				applyStyle(run, &b.rules.Style)
			}
		}
	}
	return nil
}

// withoutTokens drops the lines that contain any of tokens, ignoring case
func withoutTokens(lines []string, tokens []string) []string {
	out := make([]string, 0, len(lines))
outer:
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, token := range tokens {
			if strings.TrimSpace(token) != "" && strings.Contains(lower, strings.ToLower(token)) {
				continue outer
			}
		}
		out = append(out, line)
	}
	return out
}

// appendTrailer adds "<prefix> <template date>" as the last paragraph of the body
func (b *Builder) appendTrailer(body xml.Story) {
	date := "sin fecha"
	if modified, ok := b.template.Modified(); ok {
		date = modified.Format(b.rules.Trailer.Layout)
	}
	para := body.AppendParagraph(b.rules.Trailer.Prefix + " " + date)
	for _, run := range para.Runs() {
		applyStyle(run, &b.rules.Style)
	}
}
