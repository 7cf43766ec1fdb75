package cascade

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pricemine/pkg/pncp"
)

// fakeClient scripts search responses per (query, editalOnly, page).
type fakeClient struct {
	editais map[string][][]pncp.SearchItem // query -> pages
	all     map[string][][]pncp.SearchItem
	errOn   map[string]error // query -> error on every page
	calls   []string
}

func (f *fakeClient) page(m map[string][][]pncp.SearchItem, query string, page int) (*pncp.SearchPage, error) {
	if err := f.errOn[query]; err != nil {
		return nil, err
	}
	pages := m[query]
	if page > len(pages) {
		return &pncp.SearchPage{}, nil
	}
	return &pncp.SearchPage{Items: pages[page-1]}, nil
}

func (f *fakeClient) SearchEditais(_ context.Context, query string, page int) (*pncp.SearchPage, error) {
	f.calls = append(f.calls, "editais:"+query)
	return f.page(f.editais, query, page)
}

func (f *fakeClient) SearchAll(_ context.Context, query string, page int) (*pncp.SearchPage, error) {
	f.calls = append(f.calls, "all:"+query)
	return f.page(f.all, query, page)
}

func (f *fakeClient) ListItems(context.Context, string, int, int) ([]pncp.Item, error) {
	return nil, nil
}

func (f *fakeClient) ItemResults(context.Context, string, int, int, int) ([]pncp.ItemResult, error) {
	return nil, nil
}

func (f *fakeClient) AuditURL(cnpj string, year, seq int) string { return "test://audit" }

func item(cnpj string) pncp.SearchItem {
	return pncp.SearchItem{OrgCNPJ: cnpj, Year: 2025, Sequence: 7, PublishedPNCP: "2025-03-10T12:00:00"}
}

func TestSearch_ExactTierHit(t *testing.T) {
	fc := &fakeClient{editais: map[string][][]pncp.SearchItem{
		"papel sulfite a4": {{item("111")}},
	}}
	c := NewController(fc)

	tenders, tier := c.Search(context.Background(), `"papel sulfite a4"`, 3)
	assert.Equal(t, TierExact, tier)
	require.Len(t, tenders, 1)
	assert.Equal(t, "111", tenders[0].OrgID)
	assert.Equal(t, 2025, tenders[0].Year)
	assert.Equal(t, 7, tenders[0].Sequence)
	assert.Equal(t, "2025-03-10", tenders[0].Published.Format("2006-01-02"))
}

func TestSearch_FlexibleTierAfterExactMiss(t *testing.T) {
	fc := &fakeClient{editais: map[string][][]pncp.SearchItem{
		"papel sulfite impressora": {{item("222")}},
	}}
	c := NewController(fc)

	tenders, tier := c.Search(context.Background(), "papel sulfite para impressora", 3)
	assert.Equal(t, TierFlexible, tier)
	require.Len(t, tenders, 1)
	assert.Equal(t, "222", tenders[0].OrgID)
}

func TestSearch_FlexibleSkippedWhenQueryUnchanged(t *testing.T) {
	fc := &fakeClient{}
	c := NewController(fc)

	_, tier := c.Search(context.Background(), "monitor", 2)
	assert.Equal(t, TierFailed, tier)
	// One editais attempt (exact), one unrestricted (expanded); no
	// second editais attempt for an identical flexible query.
	assert.Equal(t, []string{"editais:monitor", "all:monitor"}, fc.calls)
}

func TestSearch_ExpandedTierHit(t *testing.T) {
	fc := &fakeClient{all: map[string][][]pncp.SearchItem{
		"monitor 24": {{item("333"), item("444")}},
	}}
	c := NewController(fc)

	tenders, tier := c.Search(context.Background(), "monitor 24", 3)
	assert.Equal(t, TierExpanded, tier)
	assert.Len(t, tenders, 2)
}

func TestSearch_AllTiersFail(t *testing.T) {
	c := NewController(&fakeClient{})
	tenders, tier := c.Search(context.Background(), "nada disso existe", 3)
	assert.Equal(t, TierFailed, tier)
	assert.Empty(t, tenders)
}

func TestSearch_TransportFaultEndsTierQuietly(t *testing.T) {
	fc := &fakeClient{
		errOn: map[string]error{"monitor 24": eris.New("connection refused")},
	}
	c := NewController(fc)

	// Faults end each tier without surfacing an error; the caller only
	// ever sees TierFailed with an empty set.
	tenders, tier := c.Search(context.Background(), "monitor 24", 3)
	assert.Equal(t, TierFailed, tier)
	assert.Empty(t, tenders)
	assert.Equal(t, []string{"editais:monitor 24", "all:monitor 24"}, fc.calls)
}

func TestSearch_PaginationStopsOnEmptyPage(t *testing.T) {
	fc := &fakeClient{editais: map[string][][]pncp.SearchItem{
		"cadeira": {{item("1")}, {item("2")}},
	}}
	c := NewController(fc)

	// Budget of 5 pages, but page 3 is empty: exactly 3 calls, 2 results.
	tenders, tier := c.Search(context.Background(), "cadeira", 5)
	assert.Equal(t, TierExact, tier)
	assert.Len(t, tenders, 2)
	assert.Len(t, fc.calls, 3)
}

func TestSearch_EmptyQuery(t *testing.T) {
	c := NewController(&fakeClient{})
	tenders, tier := c.Search(context.Background(), `""`, 3)
	assert.Equal(t, TierFailed, tier)
	assert.Empty(t, tenders)
}
