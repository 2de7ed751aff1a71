package consent

import (
	"reflect"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		syntax      Syntax
		values      map[string]string
		want        map[string]string
		wantOmitted []string
	}{
		{
			name:   "values are trimmed",
			syntax: SyntaxAngle,
			values: map[string]string{
				"Investigador":    "  Ana  ",
				"Subinvestigador": "Luis",
			},
			want: map[string]string{
				"<<INVESTIGADOR>>":    "Ana",
				"<<SUBINVESTIGADOR>>": "Luis",
				"<<COMITE>>":          "",
			},
		},
		{
			name:   "nan and none read as empty",
			syntax: SyntaxAngle,
			values: map[string]string{
				"Investigador":    "NaN",
				"Institucion":     "None",
				"Subinvestigador": "Luis",
			},
			want: map[string]string{
				"<<INVESTIGADOR>>": "",
				"<<INSTITUCION>>":  "",
			},
		},
		{
			name:   "empty sub-investigator withholds both tokens",
			syntax: SyntaxAngle,
			values: map[string]string{
				"Investigador":                  "Ana",
				"Subinvestigador":               " ",
				"TELEFONO 24HS subinvestigador": "0800",
			},
			want: map[string]string{
				"<<INVESTIGADOR>>": "Ana",
			},
			wantOmitted: []string{"<<SUBINVESTIGADOR>>", "<<TELEFONO_24HS_SUBINV>>"},
		},
		{
			name:   "curly syntax",
			syntax: SyntaxCurly,
			values: map[string]string{
				"Nro. de Centro":  "12",
				"Subinvestigador": "Luis",
			},
			want: map[string]string{
				"{{Centro_Nro.}}": "12",
			},
		},
		{
			name:   "column names are case sensitive",
			syntax: SyntaxAngle,
			values: map[string]string{
				"investigador":    "Ana",
				"Subinvestigador": "Luis",
			},
			want: map[string]string{
				"<<INVESTIGADOR>>": "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewResolver(tt.syntax).Resolve(Record{Values: tt.values})

			for token, want := range tt.want {
				got, ok := res.Replacements.Value(token)
				if !ok {
					t.Errorf("token %s missing", token)
					continue
				}
				if got != want {
					t.Errorf("%s = %q, want %q", token, got, want)
				}
			}
			if !reflect.DeepEqual(res.Omitted, tt.wantOmitted) {
				t.Errorf("Omitted = %q, want %q", res.Omitted, tt.wantOmitted)
			}
			for _, token := range res.Omitted {
				if _, ok := res.Replacements.Value(token); ok {
					t.Errorf("omitted token %s still mapped", token)
				}
			}
			wantLen := len(DefaultFields) - len(tt.wantOmitted)
			if len(res.Replacements) != wantLen {
				t.Errorf("len(Replacements) = %d, want %d", len(res.Replacements), wantLen)
			}
		})
	}
}

func TestReplacementsApply(t *testing.T) {
	reps := Replacements{
		{Token: "<<A>>", Value: "1"},
		{Token: "<<B>>", Value: "<<A>>"},
	}

	// tokens are replaced in order; a value is never substituted again
	if got := reps.Apply("<<A>> <<B>> <<A>>"); got != "1 <<A>> 1" {
		t.Errorf("Apply() = %q, want %q", got, "1 <<A>> 1")
	}
	if !reps.Contains("x<<B>>y") || reps.Contains("<<C>>") {
		t.Error("Contains() mismatch")
	}

	without := reps.Without("<<A>>")
	if len(without) != 1 || without[0].Token != "<<B>>" {
		t.Errorf("Without() = %v", without)
	}
	if len(reps) != 2 {
		t.Error("Without() modified the receiver")
	}
}
