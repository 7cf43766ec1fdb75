package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pricemine/internal/ledger"
	"github.com/sells-group/pricemine/internal/model"
	"github.com/sells-group/pricemine/internal/project"
)

func newStatsServer(t *testing.T) (*server, string) {
	t.Helper()
	serveProject = filepath.Join(t.TempDir(), "project.json")

	l := ledger.New()
	item := model.DemandItem{ItemNumber: 1, Description: "cadeira"}
	_, err := l.GetOrCreate(item)
	require.NoError(t, err)
	hash := item.Hash()

	rec := func(price int64, basis model.PriceBasis) model.PriceRecord {
		return model.PriceRecord{
			Date:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			SourceName: "PREFEITURA X",
			UnitPrice:  decimal.NewFromInt(price),
			Kind:       model.KindCatalog,
			Basis:      basis,
			Accepted:   true,
		}
	}
	_, err = l.AppendCatalogRecords(hash, []model.PriceRecord{
		rec(10, model.BasisHomologated),
		rec(40, model.BasisEstimated),
	})
	require.NoError(t, err)

	return &server{ledger: l, pcfg: project.Config{IncludeEstimated: true}}, hash
}

func postStats(t *testing.T, s *server, hash, body string) int {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/items/{hash}/stats", s.handleStats)

	req := httptest.NewRequest(http.MethodPost, "/items/"+hash+"/stats", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var sum struct{ TotalCount int }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	return sum.TotalCount
}

func TestHandleStats_EstimatedOverride(t *testing.T) {
	s, hash := newStatsServer(t)

	// Omitted: the project setting (true) applies.
	assert.Equal(t, 2, postStats(t, s, hash, `{}`))

	// An explicit false overrides a true project setting.
	assert.Equal(t, 1, postStats(t, s, hash, `{"include_estimated": false}`))

	// An explicit true still works when the project says false.
	s.pcfg.IncludeEstimated = false
	assert.Equal(t, 2, postStats(t, s, hash, `{"include_estimated": true}`))
}
