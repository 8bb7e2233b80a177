package metrics

import "time"

// File names written under the output directory.
const (
	ExtractionFile     = "extraction_metrics.json"
	TransformationFile = "transformation_metrics.json"
	LoadFile           = "load_metrics.json"
	RunFile            = "etl_metrics.json"
)

type ExtractionReport struct {
	FechaEjecucion       string `json:"fecha_ejecucion"`
	TiempoTotal          string `json:"tiempo_total"`
	TotalArchivos        int    `json:"total_archivos"`
	ExtraccionesExitosas int    `json:"extracciones_exitosas"`
	ExtraccionesFallidas int    `json:"extracciones_fallidas"`
	TasaExito            string `json:"tasa_exito"`
	Error                string `json:"error,omitempty"`
}

func (e Extraction) Report(now time.Time) ExtractionReport {
	return ExtractionReport{
		FechaEjecucion:       now.Format(timestampLayout),
		TiempoTotal:          seconds(e.Duration()),
		TotalArchivos:        e.TotalFiles,
		ExtraccionesExitosas: e.Successful,
		ExtraccionesFallidas: e.Failed,
		TasaExito:            pct(e.SuccessRate()),
		Error:                e.Aborted,
	}
}

type TransformationReport struct {
	FechaEjecucion           string         `json:"fecha_ejecucion"`
	TiempoTotal              string         `json:"tiempo_total"`
	TotalProcesados          int            `json:"total_procesados"`
	TransformacionesExitosas int            `json:"transformaciones_exitosas"`
	TransformacionesFallidas int            `json:"transformaciones_fallidas"`
	TiposEncontrados         map[string]int `json:"tipos_encontrados"`
	TasaExito                float64        `json:"tasa_exito"`
}

func (t Transformation) Report(now time.Time) TransformationReport {
	tipos := make(map[string]int, len(t.Tipos))
	for k, v := range t.Tipos {
		tipos[string(k)] = v
	}
	return TransformationReport{
		FechaEjecucion:           now.Format(timestampLayout),
		TiempoTotal:              seconds(t.Duration()),
		TotalProcesados:          t.Total,
		TransformacionesExitosas: t.Successful,
		TransformacionesFallidas: t.Failed,
		TiposEncontrados:         tipos,
		TasaExito:                t.SuccessRate(),
	}
}

type LoadReport struct {
	FechaEjecucion string `json:"fecha_ejecucion"`
	TiempoTotal    string `json:"tiempo_total"`
	Documentos     int    `json:"documentos"`
	Lotes          int    `json:"lotes"`
	Exitosos       int    `json:"exitosos"`
	Fallidos       int    `json:"fallidos"`
}

func (l Load) Report(now time.Time) LoadReport {
	return LoadReport{
		FechaEjecucion: now.Format(timestampLayout),
		TiempoTotal:    seconds(l.Duration()),
		Documentos:     l.Documents,
		Lotes:          l.Batches,
		Exitosos:       l.Successful,
		Fallidos:       l.Failed,
	}
}

type RunReport struct {
	ID                     string `json:"id_ejecucion"`
	FechaEjecucion         string `json:"fecha_ejecucion"`
	TiempoTotal            string `json:"tiempo_total"`
	ArchivosExtraidos      int    `json:"archivos_extraidos"`
	RegistrosTransformados int    `json:"registros_transformados"`
	DocumentosCargados     int    `json:"documentos_cargados"`
	TasaExito              string `json:"tasa_exito"`
}

func (r Run) Report(now time.Time) RunReport {
	return RunReport{
		ID:                     r.ID,
		FechaEjecucion:         now.Format(timestampLayout),
		TiempoTotal:            seconds(r.Duration()),
		ArchivosExtraidos:      r.Extracted(),
		RegistrosTransformados: r.Transformed(),
		DocumentosCargados:     r.Loaded(),
		TasaExito:              pct(r.SuccessRate()),
	}
}
