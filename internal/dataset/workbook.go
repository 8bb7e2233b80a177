// Package dataset writes the corpus summary workbook produced at the end of a run.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"relatoria-go/internal/aggregator"
	"relatoria-go/internal/types"
)

const (
	SheetProvidencias = "providencias"
	SheetResumen      = "resumen"
)

var (
	providenciasHeader = []interface{}{"providencia", "tipo", "anio", "caracteres"}
	resumenHeader      = []interface{}{"categoria", "clave", "total"}
)

// WriteSummary writes one row per record plus the per-tipo and per-anio counts.
// An existing file at path is replaced.
func WriteSummary(path string, records []types.Record) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create workbook dir: %w", err)
		}
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetProvidencias); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRow(f, SheetProvidencias, 1, providenciasHeader); err != nil {
		return err
	}
	for i, r := range records {
		row := []interface{}{r.Providencia, string(r.Tipo), "20" + r.Anio, len([]rune(r.Texto))}
		if err := writeRow(f, SheetProvidencias, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetResumen); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetResumen, err)
	}
	if err := writeRow(f, SheetResumen, 1, resumenHeader); err != nil {
		return err
	}
	sum := aggregator.Count(records)
	rows := [][]interface{}{{"total", "", sum.Total}}
	for _, t := range types.Tipos {
		rows = append(rows, []interface{}{"tipo", string(t), sum.PorTipo[t]})
	}
	for _, y := range sum.Years() {
		rows = append(rows, []interface{}{"anio", y, sum.PorAnio[y]})
	}
	rows = append(rows, []interface{}{"caracteres", "", sum.Caracteres})
	for i, row := range rows {
		if err := writeRow(f, SheetResumen, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
