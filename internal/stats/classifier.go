// Package stats implements the median-band outlier classifier used to
// curate mined and quoted prices into a representative price.
package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sells-group/pricemine/internal/model"
)

var (
	// Band limits per Decreto Estadual (GO) 9.900/2021: prices outside
	// [0.75, 1.25] of the median are statistical outliers.
	lowerFactor = decimal.NewFromFloat(0.75)
	upperFactor = decimal.NewFromFloat(1.25)

	two = decimal.NewFromInt(2)
)

// Result is the outcome of classifying a set of accepted price records.
type Result struct {
	Valid    []model.PriceRecord
	Outliers []model.PriceRecord
	Median   decimal.Decimal
	Lower    decimal.Decimal
	Upper    decimal.Decimal
}

// Classify partitions records into valid and outlier subsets around the
// median band. Empty input yields empty sets and zero bounds; it is not
// an error. The union of the two subsets is always exactly the input.
func Classify(records []model.PriceRecord) Result {
	if len(records) == 0 {
		return Result{}
	}

	med := Median(records)
	lower := med.Mul(lowerFactor)
	upper := med.Mul(upperFactor)

	res := Result{Median: med, Lower: lower, Upper: upper}
	for _, r := range records {
		if r.UnitPrice.GreaterThanOrEqual(lower) && r.UnitPrice.LessThanOrEqual(upper) {
			res.Valid = append(res.Valid, r)
		} else {
			res.Outliers = append(res.Outliers, r)
		}
	}
	return res
}

// Median returns the median unit price of the records.
func Median(records []model.PriceRecord) decimal.Decimal {
	if len(records) == 0 {
		return decimal.Zero
	}
	prices := make([]decimal.Decimal, len(records))
	for i, r := range records {
		prices[i] = r.UnitPrice
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })

	n := len(prices)
	if n%2 == 1 {
		return prices[n/2]
	}
	return prices[n/2-1].Add(prices[n/2]).Div(two)
}

// Mean returns the arithmetic mean unit price, or zero for no records.
func Mean(records []model.PriceRecord) decimal.Decimal {
	if len(records) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.UnitPrice)
	}
	return sum.Div(decimal.NewFromInt(int64(len(records))))
}

// SortValid orders valid records ascending by price, preserving the
// original relative order of equal prices.
func SortValid(records []model.PriceRecord) []model.PriceRecord {
	out := append([]model.PriceRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UnitPrice.LessThan(out[j].UnitPrice)
	})
	return out
}

// SortOutliers orders outliers for display: the maximum-price record
// first, the minimum-price record second when distinct, then the rest
// in their original relative order. Curators see the most extreme
// discrepancies before anything else.
func SortOutliers(records []model.PriceRecord) []model.PriceRecord {
	if len(records) <= 1 {
		return append([]model.PriceRecord(nil), records...)
	}

	maxIdx, minIdx := 0, 0
	for i, r := range records {
		if r.UnitPrice.GreaterThan(records[maxIdx].UnitPrice) {
			maxIdx = i
		}
		if r.UnitPrice.LessThan(records[minIdx].UnitPrice) {
			minIdx = i
		}
	}

	out := make([]model.PriceRecord, 0, len(records))
	out = append(out, records[maxIdx])
	if minIdx != maxIdx {
		out = append(out, records[minIdx])
	}
	for i, r := range records {
		if i != maxIdx && i != minIdx {
			out = append(out, r)
		}
	}
	return out
}
