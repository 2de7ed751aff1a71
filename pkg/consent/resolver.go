package consent

import "strings"

// Field binds a placeholder name to the spreadsheet column it is filled from
type Field struct {
	Name   string
	Column Column
}

// Field names with special handling
const (
	FieldSubInvestigator = "SUBINVESTIGADOR"
	FieldSubPhone        = "TELEFONO_24HS_SUBINV"
)

// DefaultFields is the fixed set of placeholders a consent template may use
var DefaultFields = []Field{
	{Name: "NUMERO_PROTOCOLO", Column: ColProtocol},
	{Name: "TITULO_ESTUDIO", Column: ColStudyTitle},
	{Name: "PATROCINADOR", Column: ColSponsor},
	{Name: "INVESTIGADOR", Column: ColInvestigator},
	{Name: "INSTITUCION", Column: ColInstitution},
	{Name: "DIRECCION", Column: ColAddress},
	{Name: "CARGO_INVESTIGADOR", Column: ColRole},
	{Name: "Centro_Nro.", Column: ColSite},
	{Name: "COMITE", Column: ColCommittee},
	{Name: FieldSubInvestigator, Column: ColSubInvestigator},
	{Name: "TELEFONO_24HS", Column: ColPhone},
	{Name: FieldSubPhone, Column: ColSubPhone},
	{Name: "PROVINCIA", Column: ColProvince},
}

// Replacement is one token and the text that replaces it
type Replacement struct {
	Token string
	Value string
}

// Replacements is an ordered replacement map. Order matters: tokens are replaced
// one after the other.
type Replacements []Replacement

// Value returns the replacement for token
func (r Replacements) Value(token string) (string, bool) {
	for _, rep := range r {
		if rep.Token == token {
			return rep.Value, true
		}
	}
	return "", false
}

// Without returns a copy with the given tokens removed
func (r Replacements) Without(tokens ...string) Replacements {
	out := make(Replacements, 0, len(r))
outer:
	for _, rep := range r {
		for _, t := range tokens {
			if rep.Token == t {
				continue outer
			}
		}
		out = append(out, rep)
	}
	return out
}

// Contains reports whether s holds any of the tokens
func (r Replacements) Contains(s string) bool {
	for _, rep := range r {
		if rep.Token != "" && strings.Contains(s, rep.Token) {
			return true
		}
	}
	return false
}

// Apply replaces every token in s, literally and in order. Text brought in by a
// replacement is not searched for the tokens that come before it.
func (r Replacements) Apply(s string) string {
	for _, rep := range r {
		if rep.Token != "" {
			s = strings.ReplaceAll(s, rep.Token, rep.Value)
		}
	}
	return s
}

// Resolution is the outcome of resolving one record
type Resolution struct {
	Replacements Replacements
	// Omitted lists the tokens withheld from Replacements. Paragraphs that still
	// contain them are removed from the document.
	Omitted []string
}

// Resolver turns a record into replacements
type Resolver struct {
	Syntax Syntax
	Fields []Field
}

// NewResolver creates a resolver for the default field set
func NewResolver(syntax Syntax) *Resolver {
	return &Resolver{Syntax: syntax, Fields: DefaultFields}
}

// Resolve looks up every field in the record. Unknown or empty columns map to "",
// except that an empty sub-investigator withholds both sub-investigator tokens.
func (r *Resolver) Resolve(rec Record) Resolution {
	reps := make(Replacements, 0, len(r.Fields))
	for _, f := range r.Fields {
		reps = append(reps, Replacement{Token: r.Syntax.Token(f.Name), Value: rec.Get(f.Column)})
	}

	res := Resolution{Replacements: reps}
	if v, _ := reps.Value(r.Syntax.Token(FieldSubInvestigator)); v == "" {
		res.Omitted = []string{r.Syntax.Token(FieldSubInvestigator), r.Syntax.Token(FieldSubPhone)}
		res.Replacements = reps.Without(res.Omitted...)
	}
	return res
}
