package project

import (
	"archive/zip"
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// SaveZip writes the project as a ZIP archive with one CSV file per
// table.
func SaveZip(p *Project, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "project: create archive")
	}
	defer f.Close() //nolint:errcheck

	zw := zip.NewWriter(f)

	tables := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{TableConfig, configHeader, encodeConfigRows(p.Config)},
		{TableItems, itemHeader, mapRows(p.DemandItems, encodeItemRow)},
		{TableCatalog, catalogHeader, mapRows(p.Catalog, func(r RecordRow) []string { return encodeRecordRow(r, false) })},
		{TableManual, manualHeader, mapRows(p.Manual, func(r RecordRow) []string { return encodeRecordRow(r, true) })},
		{TableStatistics, statsHeader, mapRows(p.Statistics, encodeStatsRow)},
		{TableHistory, historyHeader, mapRows(p.History, encodeHistoryRow)},
	}
	for _, t := range tables {
		w, err := zw.Create(t.name + ".csv")
		if err != nil {
			return eris.Wrapf(err, "project: create archive entry %q", t.name)
		}
		cw := csv.NewWriter(w)
		if err := cw.Write(t.header); err != nil {
			return eris.Wrapf(err, "project: write %q header", t.name)
		}
		if err := cw.WriteAll(t.rows); err != nil {
			return eris.Wrapf(err, "project: write %q rows", t.name)
		}
	}

	if err := zw.Close(); err != nil {
		return eris.Wrap(err, "project: finalize archive")
	}
	return nil
}

// LoadZip reads a ZIP-of-CSVs project file.
func LoadZip(path string) (*Project, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, eris.Wrap(err, "project: open archive")
	}
	defer zr.Close() //nolint:errcheck

	read := func(name string) ([][]string, error) {
		for _, zf := range zr.File {
			if zf.Name != name+".csv" {
				continue
			}
			rc, err := zf.Open()
			if err != nil {
				return nil, eris.Wrapf(err, "project: open archive entry %q", name)
			}
			defer rc.Close() //nolint:errcheck
			rows, err := readCSV(rc)
			if err != nil {
				return nil, eris.Wrapf(err, "project: table %q", name)
			}
			return rows, nil
		}
		return nil, eris.Errorf("project: archive is missing table %q", name)
	}

	var p Project

	cfgRows, err := read(TableConfig)
	if err != nil {
		return nil, err
	}
	if p.Config, err = decodeConfigRows(cfgRows); err != nil {
		return nil, err
	}

	if p.DemandItems, err = decodeTable(read, TableItems, decodeItemRow); err != nil {
		return nil, err
	}
	if p.Catalog, err = decodeTable(read, TableCatalog, func(cells []string) (RecordRow, error) {
		return decodeRecordRow(cells, false)
	}); err != nil {
		return nil, err
	}
	if p.Manual, err = decodeTable(read, TableManual, func(cells []string) (RecordRow, error) {
		return decodeRecordRow(cells, true)
	}); err != nil {
		return nil, err
	}
	if p.Statistics, err = decodeTable(read, TableStatistics, decodeStatsRow); err != nil {
		return nil, err
	}
	if p.History, err = decodeTable(read, TableHistory, decodeHistoryRow); err != nil {
		return nil, err
	}

	return &p, nil
}

// readCSV returns all data rows of a CSV stream, header excluded.
func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "read csv")
	}
	if len(all) <= 1 {
		return nil, nil
	}
	return all[1:], nil
}

func decodeTable[T any](read func(string) ([][]string, error), name string, decode func([]string) (T, error)) ([]T, error) {
	rows, err := read(name)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := decode(row)
		if err != nil {
			return nil, eris.Wrapf(err, "project: table %q", name)
		}
		out = append(out, v)
	}
	return out, nil
}
