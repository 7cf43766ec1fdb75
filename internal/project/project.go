// Package project serializes a ledger to and from portable project
// files: a JSON document, an XLSX workbook (one sheet per table), or a
// ZIP archive of per-table CSV files.
package project

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/pricemine/internal/ledger"
	"github.com/sells-group/pricemine/internal/model"
)

// Format identifies a project file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatZip  Format = "zip"
)

// DetectFormat infers the encoding from a file name.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".zip":
		return FormatZip, nil
	}
	return "", eris.Errorf("project: unrecognized file extension %q", filepath.Ext(path))
}

// Config is the single-object configuration table of a project.
type Config struct {
	Query            string `json:"query,omitempty"`
	PageBudget       int    `json:"page_budget,omitempty"`
	LookbackMonths   int    `json:"lookback_months,omitempty"`
	IncludeEstimated bool   `json:"include_estimated,omitempty"`
}

// ItemRow is one DemandItems table row.
type ItemRow struct {
	Hash string           `json:"hash"`
	Item model.DemandItem `json:"item"`
}

// RecordRow is one CatalogRecords or ManualRecords table row; the hash
// is the owning demand item's foreign key.
type RecordRow struct {
	ItemHash string            `json:"item_hash"`
	Record   model.PriceRecord `json:"record"`
}

// StatisticsRow caches one entry's computed statistics together with
// the options they were computed under.
type StatisticsRow struct {
	ItemHash         string          `json:"item_hash"`
	SanitizedMean    decimal.Decimal `json:"sanitized_mean"`
	Median           decimal.Decimal `json:"median"`
	SampleCount      int             `json:"sample_count"`
	LookbackMonths   int             `json:"lookback_months"`
	IncludeEstimated bool            `json:"include_estimated"`
	Anchor           time.Time       `json:"anchor"`
}

// HistoryRow is one SearchHistory table row.
type HistoryRow struct {
	ItemHash string            `json:"item_hash"`
	Event    model.SearchEvent `json:"event"`
}

// Project is the full set of named tables of an exported ledger.
type Project struct {
	Config      Config          `json:"config"`
	DemandItems []ItemRow       `json:"demand_items"`
	Catalog     []RecordRow     `json:"catalog_records"`
	Manual      []RecordRow     `json:"manual_records"`
	Statistics  []StatisticsRow `json:"statistics"`
	History     []HistoryRow    `json:"search_history"`
}

// Build flattens a ledger into project tables.
func Build(l *ledger.Ledger, cfg Config) *Project {
	p := &Project{Config: cfg}
	for _, item := range l.Items() {
		h := item.Hash()
		e := l.Entry(h)
		p.DemandItems = append(p.DemandItems, ItemRow{Hash: h, Item: item})
		for _, r := range e.CatalogRecords {
			p.Catalog = append(p.Catalog, RecordRow{ItemHash: h, Record: r})
		}
		for _, r := range e.ManualRecords {
			p.Manual = append(p.Manual, RecordRow{ItemHash: h, Record: r})
		}
		for _, ev := range e.SearchHistory {
			p.History = append(p.History, HistoryRow{ItemHash: h, Event: ev})
		}
		if e.StatisticsReady {
			p.Statistics = append(p.Statistics, StatisticsRow{
				ItemHash:         h,
				SanitizedMean:    e.SanitizedMean,
				Median:           e.Median,
				SampleCount:      e.SampleCount,
				LookbackMonths:   e.StatsLookbackMonths,
				IncludeEstimated: e.StatsIncludeEstimated,
				Anchor:           e.StatsAnchor,
			})
		}
	}
	return p
}

// Restore reconciles project tables into a fresh ledger. Each item's
// hash is recomputed from its current (lot, item number); child rows
// keyed by the stored hash are re-keyed to the recomputed one. Cached
// statistics are re-derived from the restored raw records under the
// stored options, so the record-level partition stays consistent with
// the numeric summary even across schema evolution. The returned
// ledger is complete or the error leaves nothing applied.
func (p *Project) Restore() (*ledger.Ledger, error) {
	l := ledger.New()

	rekey := make(map[string]string, len(p.DemandItems))
	for _, row := range p.DemandItems {
		h, err := l.Restore(model.LedgerEntry{Item: row.Item})
		if err != nil {
			return nil, eris.Wrapf(err, "project: restore item %q", row.Hash)
		}
		rekey[row.Hash] = h
		if row.Hash != h {
			zap.L().Warn("project: re-keyed demand item on import",
				zap.String("stored", row.Hash),
				zap.String("recomputed", h),
			)
		}
	}

	resolve := func(stored, table string) (string, error) {
		h, ok := rekey[stored]
		if !ok {
			return "", eris.Errorf("project: %s row references unknown item hash %q", table, stored)
		}
		return h, nil
	}

	for _, row := range p.Catalog {
		h, err := resolve(row.ItemHash, "catalog")
		if err != nil {
			return nil, err
		}
		if _, err := l.AppendCatalogRecords(h, []model.PriceRecord{row.Record}); err != nil {
			return nil, err
		}
	}
	for _, row := range p.Manual {
		h, err := resolve(row.ItemHash, "manual")
		if err != nil {
			return nil, err
		}
		if err := l.AppendManualRecord(h, row.Record); err != nil {
			return nil, eris.Wrap(err, "project: restore manual record")
		}
	}
	for _, row := range p.History {
		h, err := resolve(row.ItemHash, "history")
		if err != nil {
			return nil, err
		}
		ev := row.Event
		if ev.ID == uuid.Nil {
			ev.ID = uuid.New()
		}
		if err := l.AppendSearchEvent(h, ev); err != nil {
			return nil, eris.Wrap(err, "project: restore search event")
		}
	}

	for _, row := range p.Statistics {
		h, err := resolve(row.ItemHash, "statistics")
		if err != nil {
			return nil, err
		}
		// The stored numeric summary is trusted; the partition is not.
		if _, err := l.ComputeStatistics(h, ledger.StatisticsOptions{
			LookbackMonths:   row.LookbackMonths,
			IncludeEstimated: row.IncludeEstimated,
			Now:              row.Anchor,
		}); err != nil {
			if !eris.Is(err, ledger.ErrAllDeselected) {
				return nil, eris.Wrapf(err, "project: recompute statistics for %q", h)
			}
			// Every record was deselected after the export's statistics
			// run, so no partition can be re-derived. The raw records
			// and the stored summary still come through; the entry
			// stays not-ready until statistics are recomputed.
			zap.L().Warn("project: statistics partition not reconstructible on import",
				zap.String("item", h),
			)
		}
		if err := l.RestoreSummary(h, row.SanitizedMean, row.Median, row.SampleCount); err != nil {
			return nil, eris.Wrap(err, "project: restore summary")
		}
	}

	return l, nil
}

// Save writes the project to path in the format implied by its
// extension.
func Save(p *Project, path string) error {
	f, err := DetectFormat(path)
	if err != nil {
		return err
	}
	switch f {
	case FormatJSON:
		return SaveJSON(p, path)
	case FormatXLSX:
		return SaveXLSX(p, path)
	default:
		return SaveZip(p, path)
	}
}

// Load reads a project from path in the format implied by its
// extension.
func Load(path string) (*Project, error) {
	f, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatJSON:
		return LoadJSON(path)
	case FormatXLSX:
		return LoadXLSX(path)
	default:
		return LoadZip(path)
	}
}
