// Package ledger is the per-session store mapping each demand item's
// stable hash to its accumulated price evidence and statistics.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/pricemine/internal/model"
	"github.com/sells-group/pricemine/internal/stats"
)

// ErrAllDeselected is returned when statistics are requested but every
// record has been deselected or filtered out of the accepted pool.
var ErrAllDeselected = eris.New("ledger: all records deselected")

// ErrUnknownItem is returned for operations against a hash with no entry.
var ErrUnknownItem = eris.New("ledger: unknown demand item")

// StatisticsOptions controls which records enter the accepted pool.
type StatisticsOptions struct {
	// LookbackMonths restricts catalog records to publications within
	// this many whole months before Now. Zero disables the filter.
	LookbackMonths int
	// IncludeEstimated admits estimated-basis catalog records in
	// addition to homologated ones.
	IncludeEstimated bool
	// Now anchors the recency filter; zero means time.Now().
	Now time.Time
}

// Summary is the computed statistics for one demand item.
type Summary struct {
	Methodology   string
	SanitizedMean decimal.Decimal
	Median        decimal.Decimal
	Lower         decimal.Decimal
	Upper         decimal.Decimal
	SampleCount   int
	TotalCount    int
	MinValid      decimal.Decimal
	MaxValid      decimal.Decimal
	MinFound      decimal.Decimal
	MaxFound      decimal.Decimal
	Valid         []model.PriceRecord
	Outliers      []model.PriceRecord
}

// Methodology is the statistical rule applied by ComputeStatistics.
const Methodology = "Decreto Estadual (GO) 9900/2021"

// Ledger owns all LedgerEntries for one session. Entries are created
// on first use and live until the ledger is replaced wholesale on
// import. All methods are safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]*model.LedgerEntry
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string]*model.LedgerEntry)}
}

// GetOrCreate returns the entry for the item, creating it if needed.
func (l *Ledger) GetOrCreate(item model.DemandItem) (*model.LedgerEntry, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getOrCreateLocked(item), nil
}

func (l *Ledger) getOrCreateLocked(item model.DemandItem) *model.LedgerEntry {
	h := item.Hash()
	if e, ok := l.entries[h]; ok {
		return e
	}
	e := &model.LedgerEntry{Item: item}
	l.entries[h] = e
	return e
}

// Entry returns the entry for a hash, or nil when absent.
func (l *Ledger) Entry(hash string) *model.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[hash]
}

// Items returns all demand items ordered by (lot, item number).
func (l *Ledger) Items() []model.DemandItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]model.DemandItem, 0, len(l.entries))
	for _, e := range l.entries {
		items = append(items, e.Item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].LotLabel() != items[j].LotLabel() {
			return items[i].LotLabel() < items[j].LotLabel()
		}
		return items[i].ItemNumber < items[j].ItemNumber
	})
	return items
}

// Restore inserts an entry rebuilt from an imported project. The key
// is always recomputed from the item's current (lot, item number),
// never trusted from the file, so hash-algorithm drift or a manually
// edited export cannot orphan the child tables.
func (l *Ledger) Restore(entry model.LedgerEntry) (string, error) {
	if err := entry.Item.Validate(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	h := entry.Item.Hash()
	e := entry
	l.entries[h] = &e
	return h, nil
}

// AppendCatalogRecords appends freshly mined records to the entry.
// Catalog records accumulate monotonically across mining runs; they
// are never replaced. Records without a positive price are rejected at
// this boundary and silently dropped.
func (l *Ledger) AppendCatalogRecords(hash string, records []model.PriceRecord) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[hash]
	if !ok {
		return 0, ErrUnknownItem
	}

	added := 0
	for _, r := range records {
		if r.UnitPrice.Sign() <= 0 {
			continue
		}
		r.Kind = model.KindCatalog
		e.CatalogRecords = append(e.CatalogRecords, r)
		added++
	}
	return added, nil
}

// AppendManualRecord appends a manually collected quotation.
func (l *Ledger) AppendManualRecord(hash string, record model.PriceRecord) error {
	if record.UnitPrice.Sign() <= 0 {
		return eris.New("ledger: manual record requires a positive unit price")
	}
	if record.SourceName == "" {
		return eris.New("ledger: manual record requires a source name")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[hash]
	if !ok {
		return ErrUnknownItem
	}
	record.Kind = model.KindManual
	e.ManualRecords = append(e.ManualRecords, record)
	return nil
}

// RecordSearch appends a search event to the entry's history.
func (l *Ledger) RecordSearch(hash, query, tier string, newRecords int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[hash]
	if !ok {
		return ErrUnknownItem
	}
	e.SearchHistory = append(e.SearchHistory, model.SearchEvent{
		ID:         uuid.New(),
		Timestamp:  time.Now().UTC(),
		Query:      query,
		Tier:       tier,
		NewRecords: newRecords,
	})
	return nil
}

// AppendSearchEvent appends a restored search event verbatim. Unlike
// RecordSearch it trusts the event's id and timestamp; import uses it
// so history survives round-trips unchanged.
func (l *Ledger) AppendSearchEvent(hash string, event model.SearchEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[hash]
	if !ok {
		return ErrUnknownItem
	}
	e.SearchHistory = append(e.SearchHistory, event)
	return nil
}

// RestoreSummary overwrites the cached numeric summary with values
// carried by an imported project. The partition sets are untouched.
func (l *Ledger) RestoreSummary(hash string, mean, median decimal.Decimal, sampleCount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[hash]
	if !ok {
		return ErrUnknownItem
	}
	e.SanitizedMean = mean
	e.Median = median
	e.SampleCount = sampleCount
	return nil
}

// SetAccepted flips the acceptance flag of one record, identified by
// kind and position. This is the curation action behind the review
// checkboxes.
func (l *Ledger) SetAccepted(hash string, kind model.RecordKind, index int, accepted bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[hash]
	if !ok {
		return ErrUnknownItem
	}

	var recs []model.PriceRecord
	switch kind {
	case model.KindCatalog:
		recs = e.CatalogRecords
	case model.KindManual:
		recs = e.ManualRecords
	default:
		return eris.Errorf("ledger: unknown record kind %q", kind)
	}
	if index < 0 || index >= len(recs) {
		return eris.Errorf("ledger: record index %d out of range", index)
	}
	recs[index].Accepted = accepted
	return nil
}

// ComputeStatistics classifies the accepted union of catalog and
// manual records and caches the result on the entry. The valid and
// outlier sets are replaced together, atomically, with
// StatisticsReady set. An empty accepted union is an explicit error,
// not a zeroed result.
func (l *Ledger) ComputeStatistics(hash string, opts StatisticsOptions) (*Summary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[hash]
	if !ok {
		return nil, ErrUnknownItem
	}

	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	accepted := acceptedUnion(e, opts)
	if len(accepted) == 0 {
		return nil, ErrAllDeselected
	}

	res := stats.Classify(accepted)
	valid := stats.SortValid(res.Valid)
	outliers := stats.SortOutliers(res.Outliers)

	sum := &Summary{
		Methodology:   Methodology,
		SanitizedMean: stats.Mean(valid),
		Median:        res.Median,
		Lower:         res.Lower,
		Upper:         res.Upper,
		SampleCount:   len(valid),
		TotalCount:    len(accepted),
		Valid:         valid,
		Outliers:      outliers,
	}
	if len(valid) > 0 {
		sum.MinValid = valid[0].UnitPrice
		sum.MaxValid = valid[len(valid)-1].UnitPrice
	}
	sum.MinFound, sum.MaxFound = priceExtremes(accepted)

	e.ValidSet = valid
	e.OutlierSet = outliers
	e.SanitizedMean = sum.SanitizedMean
	e.Median = sum.Median
	e.SampleCount = sum.SampleCount
	e.StatisticsReady = true
	e.StatsLookbackMonths = opts.LookbackMonths
	e.StatsIncludeEstimated = opts.IncludeEstimated
	e.StatsAnchor = opts.Now

	zap.L().Info("ledger: statistics computed",
		zap.String("item", hash),
		zap.Int("sample", sum.SampleCount),
		zap.Int("total", sum.TotalCount),
	)
	return sum, nil
}

// acceptedUnion builds the record set fed to the classifier: accepted
// catalog records within the recency window whose basis is admitted,
// plus accepted manual records whose status counts toward the valid
// pool. Non-positive prices never pass.
func acceptedUnion(e *model.LedgerEntry, opts StatisticsOptions) []model.PriceRecord {
	var cutoff time.Time
	if opts.LookbackMonths > 0 {
		cutoff = opts.Now.AddDate(0, -opts.LookbackMonths, 0)
	}

	var accepted []model.PriceRecord
	for _, r := range e.CatalogRecords {
		if !r.Accepted || r.UnitPrice.Sign() <= 0 {
			continue
		}
		if r.Basis == model.BasisEstimated && !opts.IncludeEstimated {
			continue
		}
		if !cutoff.IsZero() && r.Date.Before(cutoff) {
			continue
		}
		accepted = append(accepted, r)
	}
	for _, r := range e.ManualRecords {
		if !r.Accepted || r.UnitPrice.Sign() <= 0 {
			continue
		}
		if !r.Status.CountsTowardValidPool() {
			continue
		}
		accepted = append(accepted, r)
	}
	return accepted
}

func priceExtremes(records []model.PriceRecord) (min, max decimal.Decimal) {
	min, max = records[0].UnitPrice, records[0].UnitPrice
	for _, r := range records[1:] {
		if r.UnitPrice.LessThan(min) {
			min = r.UnitPrice
		}
		if r.UnitPrice.GreaterThan(max) {
			max = r.UnitPrice
		}
	}
	return min, max
}
