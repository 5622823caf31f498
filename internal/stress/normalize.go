package stress

import "strings"

// Normalize collapses a material specification to its canonical table
// form: whitespace trimmed and collapsed, tokens uppercased, and the
// grade designator unified to "Gr". All of these resolve identically:
//
//	"SA-516 Gr 70"
//	"SA-516 Grade 70"
//	"sa-516 gr. 70"
//	"  SA-516   GR 70 "
//
// Normalization is deliberately conservative: it unifies spelling of
// the same designation but never maps one material to another.
func Normalize(spec string) string {
	fields := strings.Fields(spec)
	for i, f := range fields {
		if isGradeToken(f) {
			fields[i] = "Gr"
			continue
		}
		fields[i] = strings.ToUpper(f)
	}
	return strings.Join(fields, " ")
}

// isGradeToken reports whether a token is a grade designator spelling.
func isGradeToken(tok string) bool {
	tok = strings.TrimSuffix(tok, ".")
	return strings.EqualFold(tok, "gr") || strings.EqualFold(tok, "grade")
}
