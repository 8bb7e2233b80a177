package types

import "time"

// Segment is one fixed-duration slice of a decoded, mono, normalized recording.
// Position is 1-based; Total is the segment count of the parent file.
type Segment struct {
	FileID     string
	Position   int
	Total      int
	SampleRate int
	Samples    []float64
}

// ChunkResult is the outcome of transcribing exactly one Segment.
type ChunkResult struct {
	Position  int    `json:"chunk_number"`
	Text      string `json:"text"`
	Succeeded bool   `json:"success"`
}

type ExtractedFile struct {
	Identifier        string `json:"filename"`
	CombinedText      string `json:"raw_text"`
	TotalSegments     int    `json:"total_chunks"`
	SucceededSegments int    `json:"successful_chunks"`
}

// Tipo is the closed set of ruling types.
type Tipo string

const (
	TipoConstitucionalidad Tipo = "Constitucionalidad"
	TipoAuto               Tipo = "Auto"
	TipoTutela             Tipo = "Tutela"
	TipoDesconocido        Tipo = "Desconocido"
)

// Tipos lists every ruling type in a stable order.
var Tipos = []Tipo{TipoConstitucionalidad, TipoAuto, TipoTutela, TipoDesconocido}

// Record is a transformed ruling. Anio keeps the 2-digit year as found in the identifier.
type Record struct {
	Providencia string `json:"providencia"`
	Tipo        Tipo   `json:"tipo"`
	Numero      string `json:"numero"`
	Anio        string `json:"anio"`
	Texto       string `json:"texto"`
}

// StoredDocument is the persisted shape shared with the query service.
type StoredDocument struct {
	Providencia         string    `bson:"providencia" json:"providencia"`
	Tipo                string    `bson:"tipo" json:"tipo"`
	Anio                string    `bson:"anio" json:"anio"`
	Texto               string    `bson:"texto" json:"texto"`
	UltimaActualizacion time.Time `bson:"ultima_actualizacion" json:"ultima_actualizacion,omitzero"`
	Score               float64   `bson:"score,omitempty" json:"score,omitempty"`
}
