package consent

import "strings"

// Column is a recognised spreadsheet header. Header names are matched exactly.
type Column string

const (
	ColProtocol        Column = "Numero de protocolo"
	ColStudyTitle      Column = "Titulo del Estudio"
	ColSponsor         Column = "Patrocinador"
	ColInvestigator    Column = "Investigador"
	ColInstitution     Column = "Institucion"
	ColAddress         Column = "Direccion"
	ColRole            Column = "Cargo del Investigador en la Institucion"
	ColSite            Column = "Nro. de Centro"
	ColCommittee       Column = "COMITE"
	ColSubInvestigator Column = "Subinvestigador"
	ColPhone           Column = "TELEFONO 24HS"
	ColSubPhone        Column = "TELEFONO 24HS subinvestigador"
	ColProvince        Column = "provincia"
)

// Record is one spreadsheet row
type Record struct {
	// Index is the position among the data rows, starting at 0
	Index int
	// Row is the spreadsheet row number, starting at 1 with the header
	Row int
	// Values maps header names to cell text
	Values map[string]string
	// Hidden is set when the row is hidden or filtered out in the workbook
	Hidden bool
}

// Get returns the trimmed value of a column. Missing cells and the spreadsheet
// placeholders "nan" and "none" read as "".
func (r Record) Get(col Column) string {
	return cleanValue(r.Values[string(col)])
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "nan", "none":
		return ""
	}
	return v
}
