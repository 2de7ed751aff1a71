package consent

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Syntax is the delimiter pair wrapping a field name in the template
type Syntax struct {
	Open  string
	Close string
}

var (
	// SyntaxAngle is <<NAME>>
	SyntaxAngle = Syntax{Open: "<<", Close: ">>"}
	// SyntaxCurly is {{NAME}}
	SyntaxCurly = Syntax{Open: "{{", Close: "}}"}
)

// Token returns the placeholder text for a field name
func (s Syntax) Token(name string) string {
	return s.Open + name + s.Close
}

func (s Syntax) String() string {
	switch s {
	case SyntaxAngle:
		return "angle"
	case SyntaxCurly:
		return "curly"
	}
	return s.Open + "..." + s.Close
}

// UnmarshalYAML accepts "angle" or "curly"
func (s *Syntax) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "angle", "<<>>":
		*s = SyntaxAngle
	case "curly", "{{}}":
		*s = SyntaxCurly
	default:
		return fmt.Errorf("line %d: unknown token syntax %q", value.Line, name)
	}
	return nil
}

// Style is the font, size and color given to normalized runs
type Style struct {
	Font   string  `yaml:"font"`
	SizePt float64 `yaml:"size"`
	Color  string  `yaml:"color"`
}

// DefaultStyle is Arial 11pt black
func DefaultStyle() Style {
	return Style{Font: "Arial", SizePt: 11, Color: "000000"}
}

var hexColor = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

// RedactAction is what happens to a paragraph matched by a redaction rule
type RedactAction string

const (
	ActionDelete  RedactAction = "delete"
	ActionReplace RedactAction = "replace"
)

// RedactionRule pairs a snippet with the action applied to every paragraph containing it
type RedactionRule struct {
	Snippet string       `yaml:"snippet"`
	Action  RedactAction `yaml:"action"`
	Text    string       `yaml:"text,omitempty"`
}

// Jurisdiction holds the clause texts used by the region rules
type Jurisdiction struct {
	// ContraceptiveClause identifies the informed-consent contraceptive clause
	ContraceptiveClause string `yaml:"contraceptive_clause"`
	// BuenosAiresNotice identifies the Buenos Aires requirement notice
	BuenosAiresNotice string `yaml:"buenos_aires_notice"`
	// BuenosAiresClause is the full text that replaces the clause for Buenos Aires sites
	BuenosAiresClause string `yaml:"buenos_aires_clause"`
}

// DefaultJurisdiction returns the clause texts used when no rules file overrides them
func DefaultJurisdiction() Jurisdiction {
	return Jurisdiction{
		ContraceptiveClause: "deberá utilizar un método anticonceptivo eficaz",
		BuenosAiresNotice:   "Requisito para sitios de la Provincia de Buenos Aires",
		BuenosAiresClause: "De acuerdo con la normativa vigente en la Provincia de Buenos Aires, " +
			"si usted puede quedar embarazada deberá utilizar un método anticonceptivo eficaz " +
			"durante todo el estudio y hasta el final del período de seguimiento indicado por el investigador.",
	}
}

// Trailer is the optional informational line appended to every document
type Trailer struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`
	Layout  string `yaml:"layout"`
}

// Rules groups everything a deployment can tune without code changes
type Rules struct {
	Syntax       Syntax          `yaml:"syntax"`
	Style        Style           `yaml:"style"`
	Jurisdiction Jurisdiction    `yaml:"jurisdiction"`
	Extra        []RedactionRule `yaml:"extra"`
	Trailer      Trailer         `yaml:"trailer"`
}

// DefaultRules returns the rules used when no file is given
func DefaultRules() *Rules {
	return &Rules{
		Syntax:       SyntaxAngle,
		Style:        DefaultStyle(),
		Jurisdiction: DefaultJurisdiction(),
		Trailer: Trailer{
			Enabled: false,
			Prefix:  "Documento basado en modelo de fecha:",
			Layout:  "02/01/2006",
		},
	}
}

// LoadRules reads YAML rules. Keys that are absent keep their default value.
func LoadRules(r io.Reader) (*Rules, error) {
	rules := DefaultRules()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(rules); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// LoadRulesFile reads rules from path. An empty path yields the defaults.
func LoadRulesFile(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	rules, err := LoadRules(bytes.NewReader(data))
	if err != nil {
		return nil, WithContext(err, "load rules", map[string]interface{}{"path": path})
	}
	return rules, nil
}

// Validate checks the rules for values Word or the engines cannot use
func (r *Rules) Validate() error {
	verr := &ValidationError{}

	if r.Syntax != SyntaxAngle && r.Syntax != SyntaxCurly {
		verr.add("syntax", "must be angle or curly")
	}
	if strings.TrimSpace(r.Style.Font) == "" {
		verr.add("style.font", "cannot be empty")
	}
	if r.Style.SizePt <= 0 || r.Style.SizePt > 1638 {
		verr.add("style.size", fmt.Sprintf("out of range: %v", r.Style.SizePt))
	}
	if !hexColor.MatchString(r.Style.Color) {
		verr.add("style.color", fmt.Sprintf("want RRGGBB, got %q", r.Style.Color))
	}

	for i, rule := range r.Extra {
		field := fmt.Sprintf("extra[%d]", i)
		if strings.TrimSpace(rule.Snippet) == "" {
			verr.add(field, "snippet cannot be empty")
		}
		switch rule.Action {
		case ActionDelete:
		case ActionReplace:
			if rule.Text == "" {
				verr.add(field, "replace needs a text")
			}
		default:
			verr.add(field, fmt.Sprintf("unknown action %q", rule.Action))
		}
	}

	if r.Trailer.Enabled && r.Trailer.Layout == "" {
		verr.add("trailer.layout", "cannot be empty when the trailer is enabled")
	}

	return verr.err()
}
