// Package miner extracts normalized price records from candidate
// tenders, resolving each item's authoritative unit price through a
// layered cascade.
package miner

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/pricemine/internal/cascade"
	"github.com/sells-group/pricemine/internal/model"
	"github.com/sells-group/pricemine/pkg/pncp"
)

// DefaultWorkers is the bounded worker count for concurrent tender mining.
const DefaultWorkers = 20

// fallbackSituations are the procurement item statuses that justify
// falling back to the estimated/unit value when no homologated value
// exists anywhere ("4" homologated, "6" fracassado com adjudicação).
var fallbackSituations = map[string]struct{}{
	"4": {},
	"6": {},
}

// Miner mines price records from tenders. It holds no state across
// invocations beyond its collaborators.
type Miner struct {
	client  pncp.Client
	workers int
}

// New creates a miner over the given catalog client.
func New(client pncp.Client, workers int) *Miner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Miner{client: client, workers: workers}
}

// Mine fetches one tender's items, keeps those matching the query, and
// emits a price record per item with a resolvable price. It never
// fails: any fault yields an empty result for this tender only.
func (m *Miner) Mine(ctx context.Context, tender model.Tender, query string) []model.PriceRecord {
	if !tender.Complete() {
		return nil
	}

	items, err := m.client.ListItems(ctx, tender.OrgID, tender.Year, tender.Sequence)
	if err != nil {
		zap.L().Warn("miner: item listing failed, skipping tender",
			zap.String("org", tender.OrgID),
			zap.Int("year", tender.Year),
			zap.Int("seq", tender.Sequence),
			zap.Error(err),
		)
		return nil
	}

	terms := cascade.Terms(query)
	origin := m.client.AuditURL(tender.OrgID, tender.Year, tender.Sequence)
	source := strings.ToUpper(tender.OrgName)

	var records []model.PriceRecord
	for _, item := range items {
		if !matches(item.Description, terms) {
			continue
		}

		price, basis := m.resolvePrice(ctx, tender, item)
		if price.Sign() <= 0 {
			continue
		}

		qty := decimal.NewFromInt(1)
		if pncp.Positive(item.Quantity) {
			qty = *item.Quantity
		}

		records = append(records, model.PriceRecord{
			Date:            tender.Published,
			SourceName:      source,
			ItemDescription: item.Description,
			Quantity:        qty,
			UnitPrice:       price,
			Origin:          origin,
			Kind:            model.KindCatalog,
			Basis:           basis,
			Accepted:        true,
		})
	}
	return records
}

// matches reports whether every query term is a substring of the
// folded description. Conjunctive, order-independent, substring.
func matches(description string, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	desc := cascade.Fold(description)
	for _, t := range terms {
		if !strings.Contains(desc, t) {
			return false
		}
	}
	return true
}

// resolvePrice walks the price cascade, highest-confidence source
// first: inline homologated value, then the per-item results
// sub-resource, then the estimated/unit value for items whose status
// allows the fallback. A zero return means "no usable price".
func (m *Miner) resolvePrice(ctx context.Context, tender model.Tender, item pncp.Item) (decimal.Decimal, model.PriceBasis) {
	if pncp.Positive(item.HomologatedUnit) {
		return *item.HomologatedUnit, model.BasisHomologated
	}

	results, err := m.client.ItemResults(ctx, tender.OrgID, tender.Year, tender.Sequence, item.ItemNumber)
	if err == nil {
		for _, r := range results {
			if pncp.Positive(r.HomologatedUnit) {
				return *r.HomologatedUnit, model.BasisHomologated
			}
		}
	}

	if _, ok := fallbackSituations[string(item.Situation)]; ok && pncp.Positive(item.UnitValue) {
		return *item.UnitValue, model.BasisHomologated
	}

	if pncp.Positive(item.EstimatedValue) {
		return *item.EstimatedValue, model.BasisEstimated
	}

	return decimal.Zero, ""
}

// MineAll mines every tender concurrently with a bounded worker pool,
// collecting results as they complete. A slow or failing tender never
// blocks the others; relative order within one tender's records is
// preserved, order across tenders is not.
func (m *Miner) MineAll(ctx context.Context, tenders []model.Tender, query string, progress func(done, total int)) []model.PriceRecord {
	if len(tenders) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	var (
		mu      sync.Mutex
		records []model.PriceRecord
		done    atomic.Int64
	)

	for _, tender := range tenders {
		g.Go(func() error {
			recs := m.Mine(gctx, tender, query)

			mu.Lock()
			records = append(records, recs...)
			mu.Unlock()

			if progress != nil {
				progress(int(done.Add(1)), len(tenders))
			}
			return nil // individual faults never abort the batch
		})
	}

	_ = g.Wait()
	return records
}
