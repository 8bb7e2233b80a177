package transform

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"relatoria-go/internal/types"
)

// placeholder fills numero/anio when the identifier does not carry them.
const placeholder = "0000"

var (
	identifierPattern = regexp.MustCompile(`^([CAT])-?(\d+)-(\d+)`)
	partSeparators    = regexp.MustCompile(`[-_]`)
)

// Classify maps the first letter of an identifier to its ruling type.
func Classify(identifier string) types.Tipo {
	r, _ := utf8.DecodeRuneInString(identifier)
	switch unicode.ToUpper(r) {
	case 'C':
		return types.TipoConstitucionalidad
	case 'A':
		return types.TipoAuto
	case 'T':
		return types.TipoTutela
	default:
		return types.TipoDesconocido
	}
}

type Metadata struct {
	Tipo   types.Tipo
	Numero string
	Anio   string
}

// ExtractMetadata reads numero and the 2-digit anio from identifiers like "A742-24" or
// "C-411-22". Anything else falls back to the hyphen/underscore-separated parts, with
// "0000" for missing ones, so malformed names still yield a record.
func ExtractMetadata(identifier string) Metadata {
	if m := identifierPattern.FindStringSubmatch(identifier); m != nil {
		return Metadata{Tipo: Classify(identifier), Numero: m[2], Anio: m[3]}
	}

	parts := partSeparators.Split(identifier, -1)
	md := Metadata{Tipo: Classify(parts[0]), Numero: placeholder, Anio: placeholder}
	if len(parts) > 1 {
		md.Numero = parts[1]
	}
	if len(parts) > 2 {
		md.Anio = parts[2]
	}
	return md
}

var typographic = strings.NewReplacer(
	"\u201c", `"`,
	"\u201d", `"`,
	"\u2018", "'",
	"\u2019", "'",
	"\u2026", "...",
	"\u200b", "",
	"\u00a0", " ",
	"\u00b4", "'",
	"`", "'",
)

// CleanText replaces typographic variants with ASCII-safe ones, then trims and collapses
// whitespace runs. Applying it twice gives the same result as applying it once.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(typographic.Replace(text)), " ")
}
