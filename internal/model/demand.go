package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// UngroupedLot is the lot label used when a demand item carries no lot.
const UngroupedLot = "Único"

// DemandItem is one line of a procurement need. Its identity is the
// stable hash of (lot, item number); description edits never change it.
type DemandItem struct {
	Lot         *int   `json:"lot,omitempty"`
	ItemNumber  int    `json:"item_number"`
	Description string `json:"description"`
	Unit        string `json:"unit,omitempty"`
	Quantity    string `json:"quantity,omitempty"`
}

// LotLabel returns the lot identifier used in the identity hash.
func (d DemandItem) LotLabel() string {
	if d.Lot == nil {
		return UngroupedLot
	}
	return fmt.Sprintf("%d", *d.Lot)
}

// Hash returns the stable identity of the item: the first 16 hex chars
// of SHA-256 over "lotLabel|itemNumber".
func (d DemandItem) Hash() string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d", d.LotLabel(), d.ItemNumber))
	return hex.EncodeToString(sum[:])[:16]
}

// Validate checks required fields at the ledger boundary.
func (d DemandItem) Validate() error {
	if d.ItemNumber <= 0 {
		return eris.New("demand item: item number is required")
	}
	if d.Description == "" {
		return eris.New("demand item: description is required")
	}
	return nil
}

// SearchEvent records one mining run against a demand item.
type SearchEvent struct {
	ID         uuid.UUID `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Query      string    `json:"query"`
	Tier       string    `json:"tier"`
	NewRecords int       `json:"new_records"`
}

// LedgerEntry accumulates all price evidence for one demand item.
// CatalogRecords grows monotonically across mining runs; ValidSet and
// OutlierSet always hold the last-computed partition together.
type LedgerEntry struct {
	Item            DemandItem      `json:"item"`
	CatalogRecords  []PriceRecord   `json:"catalog_records"`
	ManualRecords   []PriceRecord   `json:"manual_records"`
	SearchHistory   []SearchEvent   `json:"search_history"`
	StatisticsReady bool            `json:"statistics_ready"`
	SanitizedMean   decimal.Decimal `json:"sanitized_mean"`
	Median          decimal.Decimal `json:"median"`
	SampleCount     int             `json:"sample_count"`
	ValidSet        []PriceRecord   `json:"valid_set"`
	OutlierSet      []PriceRecord   `json:"outlier_set"`

	// The options the last statistics run was computed with. Kept so
	// an imported project re-derives the identical partition instead
	// of re-filtering against a new "now".
	StatsLookbackMonths   int       `json:"stats_lookback_months,omitempty"`
	StatsIncludeEstimated bool      `json:"stats_include_estimated,omitempty"`
	StatsAnchor           time.Time `json:"stats_anchor,omitempty"`
}

// Tender identifies one procurement notice in the external catalog.
// The search result alone never resolves item prices; a second call
// per tender is always required.
type Tender struct {
	OrgID     string    `json:"org_id"`
	OrgName   string    `json:"org_name"`
	Year      int       `json:"year"`
	Sequence  int       `json:"sequence"`
	Published time.Time `json:"published"`
}

// Complete reports whether the tender carries every identifier needed
// to fetch its item list.
func (t Tender) Complete() bool {
	return t.OrgID != "" && t.Year > 0 && t.Sequence > 0
}
