package project

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// SaveXLSX writes the project as a single workbook with one named
// sheet per table.
func SaveXLSX(p *Project, path string) error {
	f := xlsx.NewFile()

	if err := writeSheet(f, TableConfig, configHeader, encodeConfigRows(p.Config)); err != nil {
		return err
	}
	if err := writeSheet(f, TableItems, itemHeader, mapRows(p.DemandItems, encodeItemRow)); err != nil {
		return err
	}
	if err := writeSheet(f, TableCatalog, catalogHeader, mapRows(p.Catalog, func(r RecordRow) []string { return encodeRecordRow(r, false) })); err != nil {
		return err
	}
	if err := writeSheet(f, TableManual, manualHeader, mapRows(p.Manual, func(r RecordRow) []string { return encodeRecordRow(r, true) })); err != nil {
		return err
	}
	if err := writeSheet(f, TableStatistics, statsHeader, mapRows(p.Statistics, encodeStatsRow)); err != nil {
		return err
	}
	if err := writeSheet(f, TableHistory, historyHeader, mapRows(p.History, encodeHistoryRow)); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "project: save workbook")
	}
	return nil
}

// LoadXLSX reads a workbook project file.
func LoadXLSX(path string) (*Project, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "project: open workbook")
	}

	var p Project

	cfgRows, err := readSheet(f, TableConfig)
	if err != nil {
		return nil, err
	}
	if p.Config, err = decodeConfigRows(cfgRows); err != nil {
		return nil, err
	}

	if p.DemandItems, err = decodeSheet(f, TableItems, decodeItemRow); err != nil {
		return nil, err
	}
	if p.Catalog, err = decodeSheet(f, TableCatalog, func(cells []string) (RecordRow, error) {
		return decodeRecordRow(cells, false)
	}); err != nil {
		return nil, err
	}
	if p.Manual, err = decodeSheet(f, TableManual, func(cells []string) (RecordRow, error) {
		return decodeRecordRow(cells, true)
	}); err != nil {
		return nil, err
	}
	if p.Statistics, err = decodeSheet(f, TableStatistics, decodeStatsRow); err != nil {
		return nil, err
	}
	if p.History, err = decodeSheet(f, TableHistory, decodeHistoryRow); err != nil {
		return nil, err
	}

	return &p, nil
}

func writeSheet(f *xlsx.File, name string, header []string, rows [][]string) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "project: add sheet %q", name)
	}
	appendRow(sheet, header)
	for _, row := range rows {
		appendRow(sheet, row)
	}
	return nil
}

func appendRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().Value = c
	}
}

// readSheet returns a sheet's rows as strings, header excluded.
func readSheet(f *xlsx.File, name string) ([][]string, error) {
	sheet, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("project: sheet %q not found", name)
	}
	var rows [][]string
	for i, row := range sheet.Rows {
		if i == 0 {
			continue
		}
		cells := make([]string, len(row.Cells))
		empty := true
		for j, cell := range row.Cells {
			cells[j] = cell.String()
			if cells[j] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func decodeSheet[T any](f *xlsx.File, name string, decode func([]string) (T, error)) ([]T, error) {
	rows, err := readSheet(f, name)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := decode(row)
		if err != nil {
			return nil, eris.Wrapf(err, "project: sheet %q", name)
		}
		out = append(out, v)
	}
	return out, nil
}

func mapRows[T any](rows []T, encode func(T) []string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = encode(r)
	}
	return out
}
