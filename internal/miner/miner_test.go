package miner

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pricemine/internal/model"
	"github.com/sells-group/pricemine/pkg/pncp"
)

// fakeCatalog scripts item listings per org and award results per item
// number.
type fakeCatalog struct {
	items      map[string][]pncp.Item
	results    map[int][]pncp.ItemResult
	listErr    error
	resultErr  error
	resultHits []int
}

func (f *fakeCatalog) SearchEditais(context.Context, string, int) (*pncp.SearchPage, error) {
	return &pncp.SearchPage{}, nil
}

func (f *fakeCatalog) SearchAll(context.Context, string, int) (*pncp.SearchPage, error) {
	return &pncp.SearchPage{}, nil
}

func (f *fakeCatalog) ListItems(_ context.Context, org string, _ int, _ int) ([]pncp.Item, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.items[org], nil
}

func (f *fakeCatalog) ItemResults(_ context.Context, _ string, _, _, itemNumber int) ([]pncp.ItemResult, error) {
	f.resultHits = append(f.resultHits, itemNumber)
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	return f.results[itemNumber], nil
}

func (f *fakeCatalog) AuditURL(cnpj string, year, seq int) string {
	return "https://pncp.example/app/editais/" + cnpj
}

func dec(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func tender(org string) model.Tender {
	return model.Tender{
		OrgID:     org,
		OrgName:   "Prefeitura de Exemplo",
		Year:      2025,
		Sequence:  12,
		Published: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMine_KeywordFilterIsConjunctiveSubstring(t *testing.T) {
	fc := &fakeCatalog{items: map[string][]pncp.Item{
		"111": {
			{ItemNumber: 1, Description: "Monitor LED 24 polegadas Full HD", HomologatedUnit: dec(500)},
			{ItemNumber: 2, Description: "Monitor LED 27 polegadas", HomologatedUnit: dec(700)},
			{ItemNumber: 3, Description: "Suporte para monitor", HomologatedUnit: dec(50)},
		},
	}}
	m := New(fc, 1)

	records := m.Mine(context.Background(), tender("111"), "monitor 24")
	require.Len(t, records, 1)
	assert.Equal(t, "Monitor LED 24 polegadas Full HD", records[0].ItemDescription)
	assert.Equal(t, "500", records[0].UnitPrice.String())
}

func TestMine_DiacriticInsensitiveMatch(t *testing.T) {
	fc := &fakeCatalog{items: map[string][]pncp.Item{
		"111": {{ItemNumber: 1, Description: "MEMÓRIA RAM DDR4 8GB", HomologatedUnit: dec(120)}},
	}}
	m := New(fc, 1)

	records := m.Mine(context.Background(), tender("111"), "memoria ram")
	require.Len(t, records, 1)
}

func TestMine_InlineHomologatedShortCircuits(t *testing.T) {
	fc := &fakeCatalog{items: map[string][]pncp.Item{
		"111": {{ItemNumber: 1, Description: "cadeira", HomologatedUnit: dec(90), EstimatedValue: dec(200)}},
	}}
	m := New(fc, 1)

	records := m.Mine(context.Background(), tender("111"), "cadeira")
	require.Len(t, records, 1)
	assert.Equal(t, "90", records[0].UnitPrice.String())
	assert.Equal(t, model.BasisHomologated, records[0].Basis)
	// No results sub-resource call when the inline value resolves.
	assert.Empty(t, fc.resultHits)
}

func TestMine_ResultsSubResourceFallback(t *testing.T) {
	fc := &fakeCatalog{
		items: map[string][]pncp.Item{
			"111": {{ItemNumber: 4, Description: "cadeira"}},
		},
		results: map[int][]pncp.ItemResult{
			4: {{HomologatedUnit: dec(0)}, {HomologatedUnit: dec(150)}},
		},
	}
	m := New(fc, 1)

	records := m.Mine(context.Background(), tender("111"), "cadeira")
	require.Len(t, records, 1)
	assert.Equal(t, "150", records[0].UnitPrice.String())
	assert.Equal(t, model.BasisHomologated, records[0].Basis)
	assert.Equal(t, []int{4}, fc.resultHits)
}

func TestMine_SituationFallbackToUnitValue(t *testing.T) {
	fc := &fakeCatalog{items: map[string][]pncp.Item{
		"111": {{ItemNumber: 1, Description: "cadeira", Situation: "4", UnitValue: dec(80)}},
	}}
	m := New(fc, 1)

	records := m.Mine(context.Background(), tender("111"), "cadeira")
	require.Len(t, records, 1)
	assert.Equal(t, "80", records[0].UnitPrice.String())
	assert.Equal(t, model.BasisHomologated, records[0].Basis)
}

func TestMine_EstimatedValueIsLastResort(t *testing.T) {
	fc := &fakeCatalog{items: map[string][]pncp.Item{
		"111": {{ItemNumber: 1, Description: "cadeira", Situation: "1", EstimatedValue: dec(200)}},
	}}
	m := New(fc, 1)

	records := m.Mine(context.Background(), tender("111"), "cadeira")
	require.Len(t, records, 1)
	assert.Equal(t, "200", records[0].UnitPrice.String())
	assert.Equal(t, model.BasisEstimated, records[0].Basis)
}

func TestMine_UnresolvableItemIsDropped(t *testing.T) {
	fc := &fakeCatalog{items: map[string][]pncp.Item{
		"111": {{ItemNumber: 1, Description: "cadeira", Situation: "1", UnitValue: dec(80)}},
	}}
	m := New(fc, 1)

	// Situation "1" does not justify the unit-value fallback and there
	// is no estimated value, so the item yields nothing.
	records := m.Mine(context.Background(), tender("111"), "cadeira")
	assert.Empty(t, records)
}

func TestMine_StopWordOnlyQueryMatchesNothing(t *testing.T) {
	fc := &fakeCatalog{items: map[string][]pncp.Item{
		"111": {{ItemNumber: 1, Description: "Aquisição de papel", HomologatedUnit: dec(10)}},
	}}
	m := New(fc, 1)

	// A query with no significant terms selects nothing rather than
	// everything.
	records := m.Mine(context.Background(), tender("111"), "de para com")
	assert.Empty(t, records)
}

func TestMine_IncompleteTender(t *testing.T) {
	m := New(&fakeCatalog{}, 1)
	assert.Empty(t, m.Mine(context.Background(), model.Tender{OrgName: "x"}, "cadeira"))
}

func TestMine_ListFailureYieldsEmpty(t *testing.T) {
	fc := &fakeCatalog{listErr: eris.New("HTTP 500")}
	m := New(fc, 1)
	assert.Empty(t, m.Mine(context.Background(), tender("111"), "cadeira"))
}

func TestMine_RecordProvenance(t *testing.T) {
	fc := &fakeCatalog{items: map[string][]pncp.Item{
		"111": {{ItemNumber: 1, Description: "cadeira giratória", HomologatedUnit: dec(90), Quantity: dec(10)}},
	}}
	m := New(fc, 1)

	records := m.Mine(context.Background(), tender("111"), "cadeira")
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "PREFEITURA DE EXEMPLO", r.SourceName)
	assert.Equal(t, "https://pncp.example/app/editais/111", r.Origin)
	assert.Equal(t, model.KindCatalog, r.Kind)
	assert.True(t, r.Accepted)
	assert.Equal(t, "10", r.Quantity.String())
	assert.Equal(t, "2025-04-01", r.Date.Format("2006-01-02"))
}

func TestMineAll_CollectsAcrossTenders(t *testing.T) {
	fc := &fakeCatalog{items: map[string][]pncp.Item{
		"111": {{ItemNumber: 1, Description: "cadeira", HomologatedUnit: dec(90)}},
		"222": {{ItemNumber: 1, Description: "cadeira", HomologatedUnit: dec(110)}},
		"333": nil,
	}}
	m := New(fc, 1)

	var last int
	records := m.MineAll(context.Background(),
		[]model.Tender{tender("111"), tender("222"), tender("333")},
		"cadeira",
		func(done, total int) { last = done; assert.Equal(t, 3, total) },
	)
	assert.Len(t, records, 2)
	assert.Equal(t, 3, last)
}

func TestMineAll_NoTenders(t *testing.T) {
	m := New(&fakeCatalog{}, 4)
	assert.Nil(t, m.MineAll(context.Background(), nil, "cadeira", nil))
}
