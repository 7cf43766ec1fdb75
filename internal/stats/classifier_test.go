package stats

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pricemine/internal/model"
)

func recs(prices ...float64) []model.PriceRecord {
	out := make([]model.PriceRecord, len(prices))
	for i, p := range prices {
		out[i] = model.PriceRecord{
			SourceName: "src",
			UnitPrice:  decimal.NewFromFloat(p),
			Accepted:   true,
		}
	}
	return out
}

func prices(records []model.PriceRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.UnitPrice.String()
	}
	return out
}

func TestClassify_PartitionIsExactAndDisjoint(t *testing.T) {
	in := recs(28, 30, 32, 5, 100)
	res := Classify(in)

	require.Len(t, res.Valid, 3)
	require.Len(t, res.Outliers, 2)
	assert.Equal(t, len(in), len(res.Valid)+len(res.Outliers))

	// Every input record lands in exactly one subset.
	seen := map[string]int{}
	for _, r := range append(append([]model.PriceRecord{}, res.Valid...), res.Outliers...) {
		seen[r.UnitPrice.String()]++
	}
	for _, r := range in {
		assert.Equal(t, 1, seen[r.UnitPrice.String()], "price %s", r.UnitPrice)
	}
}

func TestClassify_BandMembership(t *testing.T) {
	res := Classify(recs(28, 30, 32, 5, 100))

	assert.Equal(t, "30", res.Median.String())
	assert.Equal(t, "22.5", res.Lower.String())
	assert.Equal(t, "37.5", res.Upper.String())

	for _, r := range res.Valid {
		assert.True(t, r.UnitPrice.GreaterThanOrEqual(res.Lower), "valid %s below band", r.UnitPrice)
		assert.True(t, r.UnitPrice.LessThanOrEqual(res.Upper), "valid %s above band", r.UnitPrice)
	}
	for _, r := range res.Outliers {
		outside := r.UnitPrice.LessThan(res.Lower) || r.UnitPrice.GreaterThan(res.Upper)
		assert.True(t, outside, "outlier %s inside band", r.UnitPrice)
	}
}

func TestClassify_BandBoundsAreInclusive(t *testing.T) {
	// median = 100, band = [75, 125]; both endpoints valid.
	res := Classify(recs(75, 100, 125))
	assert.Len(t, res.Valid, 3)
	assert.Empty(t, res.Outliers)
}

func TestClassify_EmptyInput(t *testing.T) {
	res := Classify(nil)
	assert.Empty(t, res.Valid)
	assert.Empty(t, res.Outliers)
	assert.True(t, res.Median.IsZero())
	assert.True(t, res.Lower.IsZero())
	assert.True(t, res.Upper.IsZero())
}

func TestMedian_EvenCount(t *testing.T) {
	m := Median(recs(10, 20, 30, 40))
	assert.Equal(t, "25", m.String())
}

func TestSortValid_AscendingStable(t *testing.T) {
	in := recs(32, 28, 30)
	in[0].SourceName = "first-32"

	// Duplicate price to check stability.
	dup := in[0]
	dup.SourceName = "second-32"
	in = append(in, dup)

	sorted := SortValid(in)
	assert.Equal(t, []string{"28", "30", "32", "32"}, prices(sorted))
	assert.Equal(t, "first-32", sorted[2].SourceName)
	assert.Equal(t, "second-32", sorted[3].SourceName)
}

func TestSortOutliers_MaxFirstThenMin(t *testing.T) {
	res := Classify(recs(28, 30, 32, 5, 100))
	ordered := SortOutliers(res.Outliers)

	require.Len(t, ordered, 2)
	assert.Equal(t, "100", ordered[0].UnitPrice.String())
	assert.Equal(t, "5", ordered[1].UnitPrice.String())
}

func TestSortOutliers_RemainderKeepsOriginalOrder(t *testing.T) {
	in := recs(50, 900, 2, 60, 70)
	ordered := SortOutliers(in)
	assert.Equal(t, []string{"900", "2", "50", "60", "70"}, prices(ordered))
}

func TestSortOutliers_SingleRecord(t *testing.T) {
	in := recs(42)
	ordered := SortOutliers(in)
	require.Len(t, ordered, 1)
	assert.Equal(t, "42", ordered[0].UnitPrice.String())
}

func TestMean(t *testing.T) {
	assert.Equal(t, "30", Mean(recs(28, 30, 32)).String())
	assert.True(t, Mean(nil).IsZero())
}
