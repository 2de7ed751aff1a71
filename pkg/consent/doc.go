// Package consent generates personalised consent documents from a Word template
// and one spreadsheet record per research site.
//
// # Quick Start
//
//	tmpl, err := consent.LoadTemplateFile("modelo.docx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	records, err := sheet.ReadFile("datos.xlsx", sheet.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	builder := consent.NewBuilder(tmpl, consent.WithConfig(consent.GetGlobalConfig()))
//	report, err := consent.Generate(ctx, builder, sheet.Visible(records), consent.GenerateOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.Summary())
//
// # Placeholders
//
// A template uses one token style throughout, either <<NAME>> (the default) or
// {{NAME}}. The recognised names are listed in DefaultFields together with the
// spreadsheet column each one is filled from. A token may be split over several
// runs of a paragraph by Word's editing history; such paragraphs are rebuilt as a
// single run.
//
// # Per-record processing
//
// Every record starts from a fresh copy of the template:
//
//  1. paragraphs holding withheld tokens are removed (an empty sub-investigator
//     removes the sub-investigator and its phone paragraphs)
//  2. tokens are replaced in the body, table cells included
//  3. region clauses are adapted from the "provincia" column
//  4. extra redaction rules from the rules file run
//  5. formatting is normalised according to the configured policy
//  6. footers are optionally refilled and a trailing date line appended
//
// # Configuration
//
// Options come from CONSENT_* environment variables (see ConfigFromEnvironment)
// and an optional YAML rules file (see LoadRules):
//
//	syntax: angle
//	style:
//	  font: Arial
//	  size: 11
//	  color: "000000"
//	jurisdiction:
//	  contraceptive_clause: "método anticonceptivo"
//	  buenos_aires_notice: "Requisito Provincia de Buenos Aires"
//	  buenos_aires_clause: "Texto de reemplazo..."
//	extra:
//	  - snippet: "Borrador"
//	    action: delete
//	trailer:
//	  enabled: true
//	  prefix: "Documento basado en modelo de fecha:"
//	  layout: "02/01/2006"
package consent
