package project

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/pricemine/internal/model"
)

// Tabular encodings (XLSX sheets, CSV files) share one string-row
// representation per table. JSON marshals the typed structs directly.

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// Table names double as sheet names and archive file stems.
const (
	TableConfig     = "Config"
	TableItems      = "DemandItems"
	TableCatalog    = "CatalogRecords"
	TableManual     = "ManualRecords"
	TableStatistics = "Statistics"
	TableHistory    = "SearchHistory"
)

var (
	itemHeader    = []string{"hash", "lot", "item_number", "description", "unit", "quantity"}
	catalogHeader = []string{"item_hash", "date", "source_name", "item_description", "quantity", "unit_price", "origin", "basis", "accepted"}
	manualHeader  = []string{"item_hash", "date", "source_name", "item_description", "quantity", "unit_price", "origin", "status", "accepted"}
	statsHeader   = []string{"item_hash", "sanitized_mean", "median", "sample_count", "lookback_months", "include_estimated", "anchor"}
	historyHeader = []string{"item_hash", "id", "timestamp", "query", "tier", "new_records"}
	configHeader  = []string{"key", "value"}
)

func encodeItemRow(r ItemRow) []string {
	lot := ""
	if r.Item.Lot != nil {
		lot = strconv.Itoa(*r.Item.Lot)
	}
	return []string{r.Hash, lot, strconv.Itoa(r.Item.ItemNumber), r.Item.Description, r.Item.Unit, r.Item.Quantity}
}

func decodeItemRow(cells []string) (ItemRow, error) {
	if len(cells) < 6 {
		return ItemRow{}, eris.Errorf("project: demand item row has %d columns, want 6", len(cells))
	}
	var lot *int
	if cells[1] != "" {
		n, err := strconv.Atoi(cells[1])
		if err != nil {
			return ItemRow{}, eris.Wrap(err, "project: parse lot")
		}
		lot = &n
	}
	num, err := strconv.Atoi(cells[2])
	if err != nil {
		return ItemRow{}, eris.Wrap(err, "project: parse item number")
	}
	return ItemRow{
		Hash: cells[0],
		Item: model.DemandItem{Lot: lot, ItemNumber: num, Description: cells[3], Unit: cells[4], Quantity: cells[5]},
	}, nil
}

func encodeRecordRow(r RecordRow, manual bool) []string {
	tag := string(r.Record.Basis)
	if manual {
		tag = string(r.Record.Status)
	}
	return []string{
		r.ItemHash,
		r.Record.Date.Format(dateLayout),
		r.Record.SourceName,
		r.Record.ItemDescription,
		r.Record.Quantity.String(),
		r.Record.UnitPrice.String(),
		r.Record.Origin,
		tag,
		strconv.FormatBool(r.Record.Accepted),
	}
}

func decodeRecordRow(cells []string, manual bool) (RecordRow, error) {
	if len(cells) < 9 {
		return RecordRow{}, eris.Errorf("project: price record row has %d columns, want 9", len(cells))
	}
	date, err := time.Parse(dateLayout, cells[1])
	if err != nil {
		return RecordRow{}, eris.Wrap(err, "project: parse record date")
	}
	qty, err := decimal.NewFromString(cells[4])
	if err != nil {
		return RecordRow{}, eris.Wrap(err, "project: parse quantity")
	}
	price, err := decimal.NewFromString(cells[5])
	if err != nil {
		return RecordRow{}, eris.Wrap(err, "project: parse unit price")
	}
	accepted, err := strconv.ParseBool(cells[8])
	if err != nil {
		return RecordRow{}, eris.Wrap(err, "project: parse accepted flag")
	}

	rec := model.PriceRecord{
		Date:            date,
		SourceName:      cells[2],
		ItemDescription: cells[3],
		Quantity:        qty,
		UnitPrice:       price,
		Origin:          cells[6],
		Accepted:        accepted,
	}
	if manual {
		rec.Kind = model.KindManual
		rec.Status = model.ParseQuoteStatus(cells[7])
	} else {
		rec.Kind = model.KindCatalog
		rec.Basis = model.PriceBasis(cells[7])
	}
	return RecordRow{ItemHash: cells[0], Record: rec}, nil
}

func encodeStatsRow(r StatisticsRow) []string {
	return []string{
		r.ItemHash,
		r.SanitizedMean.String(),
		r.Median.String(),
		strconv.Itoa(r.SampleCount),
		strconv.Itoa(r.LookbackMonths),
		strconv.FormatBool(r.IncludeEstimated),
		r.Anchor.Format(timeLayout),
	}
}

func decodeStatsRow(cells []string) (StatisticsRow, error) {
	if len(cells) < 7 {
		return StatisticsRow{}, eris.Errorf("project: statistics row has %d columns, want 7", len(cells))
	}
	mean, err := decimal.NewFromString(cells[1])
	if err != nil {
		return StatisticsRow{}, eris.Wrap(err, "project: parse sanitized mean")
	}
	median, err := decimal.NewFromString(cells[2])
	if err != nil {
		return StatisticsRow{}, eris.Wrap(err, "project: parse median")
	}
	count, err := strconv.Atoi(cells[3])
	if err != nil {
		return StatisticsRow{}, eris.Wrap(err, "project: parse sample count")
	}
	lookback, err := strconv.Atoi(cells[4])
	if err != nil {
		return StatisticsRow{}, eris.Wrap(err, "project: parse lookback months")
	}
	estimated, err := strconv.ParseBool(cells[5])
	if err != nil {
		return StatisticsRow{}, eris.Wrap(err, "project: parse include_estimated")
	}
	anchor, err := time.Parse(timeLayout, cells[6])
	if err != nil {
		return StatisticsRow{}, eris.Wrap(err, "project: parse anchor")
	}
	return StatisticsRow{
		ItemHash:         cells[0],
		SanitizedMean:    mean,
		Median:           median,
		SampleCount:      count,
		LookbackMonths:   lookback,
		IncludeEstimated: estimated,
		Anchor:           anchor,
	}, nil
}

func encodeHistoryRow(r HistoryRow) []string {
	return []string{
		r.ItemHash,
		r.Event.ID.String(),
		r.Event.Timestamp.Format(timeLayout),
		r.Event.Query,
		r.Event.Tier,
		strconv.Itoa(r.Event.NewRecords),
	}
}

func decodeHistoryRow(cells []string) (HistoryRow, error) {
	if len(cells) < 6 {
		return HistoryRow{}, eris.Errorf("project: search history row has %d columns, want 6", len(cells))
	}
	id, err := uuid.Parse(cells[1])
	if err != nil {
		return HistoryRow{}, eris.Wrap(err, "project: parse history id")
	}
	ts, err := time.Parse(timeLayout, cells[2])
	if err != nil {
		return HistoryRow{}, eris.Wrap(err, "project: parse history timestamp")
	}
	n, err := strconv.Atoi(cells[5])
	if err != nil {
		return HistoryRow{}, eris.Wrap(err, "project: parse new record count")
	}
	return HistoryRow{
		ItemHash: cells[0],
		Event:    model.SearchEvent{ID: id, Timestamp: ts, Query: cells[3], Tier: cells[4], NewRecords: n},
	}, nil
}

func encodeConfigRows(c Config) [][]string {
	return [][]string{
		{"query", c.Query},
		{"page_budget", strconv.Itoa(c.PageBudget)},
		{"lookback_months", strconv.Itoa(c.LookbackMonths)},
		{"include_estimated", strconv.FormatBool(c.IncludeEstimated)},
	}
}

func decodeConfigRows(rows [][]string) (Config, error) {
	var c Config
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		var err error
		switch row[0] {
		case "query":
			c.Query = row[1]
		case "page_budget":
			c.PageBudget, err = strconv.Atoi(row[1])
		case "lookback_months":
			c.LookbackMonths, err = strconv.Atoi(row[1])
		case "include_estimated":
			c.IncludeEstimated, err = strconv.ParseBool(row[1])
		}
		if err != nil {
			return Config{}, eris.Wrapf(err, "project: parse config key %q", row[0])
		}
	}
	return c, nil
}
