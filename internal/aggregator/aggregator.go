package aggregator

import (
	"sort"

	"relatoria-go/internal/types"
)

type Summary struct {
	Total   int                `json:"total"`
	PorTipo map[types.Tipo]int `json:"por_tipo"`
	PorAnio map[string]int     `json:"por_anio"`
	// Caracteres is the total length of all texts, in runes.
	Caracteres int `json:"caracteres"`
}

// Count tallies records per tipo and per expanded year. Every closed tipo is present,
// with zero when no record has it.
func Count(records []types.Record) Summary {
	porTipo := make(map[types.Tipo]int, len(types.Tipos))
	for _, t := range types.Tipos {
		porTipo[t] = 0
	}
	porAnio := map[string]int{}
	chars := 0
	for _, r := range records {
		porTipo[r.Tipo]++
		porAnio["20"+r.Anio]++
		chars += len([]rune(r.Texto))
	}
	return Summary{Total: len(records), PorTipo: porTipo, PorAnio: porAnio, Caracteres: chars}
}

// Years returns the keys of PorAnio in ascending order.
func (s Summary) Years() []string {
	years := make([]string, 0, len(s.PorAnio))
	for y := range s.PorAnio {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}
