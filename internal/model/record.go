// Package model holds the core domain types for price mining and curation.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecordKind distinguishes mined catalog prices from manually entered quotes.
type RecordKind string

const (
	KindCatalog RecordKind = "catalog"
	KindManual  RecordKind = "manual"
)

// PriceBasis indicates which source the unit price was resolved from.
// Homologated values come from an award; estimated values are the
// pre-award reference price and are only used when the resolution
// cascade finds no homologated value.
type PriceBasis string

const (
	BasisHomologated PriceBasis = "homologated"
	BasisEstimated   PriceBasis = "estimated"
)

// QuoteStatus is the explicit lifecycle status of a manual quotation.
// It replaces free-text situation labels so that "counts toward the
// valid pool" is a fixed property of the status, not a substring match.
type QuoteStatus string

const (
	StatusProposalReceived QuoteStatus = "proposal_received"
	StatusPublicSource     QuoteStatus = "public_source"
	StatusAwaitingResponse QuoteStatus = "awaiting_response"
	StatusDeclined         QuoteStatus = "declined"
)

// CountsTowardValidPool reports whether records with this status are
// eligible for statistics.
func (s QuoteStatus) CountsTowardValidPool() bool {
	return s == StatusProposalReceived || s == StatusPublicSource
}

// ParseQuoteStatus maps a string to a QuoteStatus, defaulting to
// awaiting_response for unknown input.
func ParseQuoteStatus(s string) QuoteStatus {
	switch QuoteStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusProposalReceived:
		return StatusProposalReceived
	case StatusPublicSource:
		return StatusPublicSource
	case StatusDeclined:
		return StatusDeclined
	default:
		return StatusAwaitingResponse
	}
}

// PriceRecord is one observed unit price for a demand item.
type PriceRecord struct {
	Date            time.Time       `json:"date"`
	SourceName      string          `json:"source_name"`
	ItemDescription string          `json:"item_description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Origin          string          `json:"origin"`
	Kind            RecordKind      `json:"kind"`
	Basis           PriceBasis      `json:"basis,omitempty"`
	Status          QuoteStatus     `json:"status,omitempty"`
	Accepted        bool            `json:"accepted"`
}

// ParseQuantity parses a free-text quantity into a multiplier,
// defaulting to 1 when the text is absent or not numeric.
func ParseQuantity(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.NewFromInt(1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.Sign() <= 0 {
		return decimal.NewFromInt(1)
	}
	return d
}
