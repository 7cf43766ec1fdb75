package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pricemine/internal/cascade"
	"github.com/sells-group/pricemine/internal/ledger"
	"github.com/sells-group/pricemine/internal/model"
	"github.com/sells-group/pricemine/internal/project"
)

var (
	serveProject string
	servePort    int
)

// server exposes the mining engine to the external form and report
// collaborators. It serializes all ledger access: the UI drives one
// active item at a time, but HTTP clients may overlap.
type server struct {
	mu     sync.Mutex
	ledger *ledger.Ledger
	pcfg   project.Config
	eng    *engine
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the mining engine over HTTP for UI collaborators",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		l, pcfg, err := loadProject(serveProject)
		if err != nil {
			return err
		}
		s := &server{ledger: l, pcfg: pcfg, eng: newEngine()}

		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PATCH"},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/items", s.handleListItems)
		r.Post("/items", s.handleAddItem)
		r.Post("/items/{hash}/quotes", s.handleAddQuote)
		r.Post("/items/{hash}/stats", s.handleStats)
		r.Patch("/items/{hash}/records", s.handleSetAccepted)
		r.Post("/search", s.handleSearch)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: r}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("project", serveProject))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// persist writes the ledger back to the project file. Callers hold s.mu.
func (s *server) persist() error {
	return saveProject(s.ledger, s.pcfg, serveProject)
}

func (s *server) handleListItems(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type itemView struct {
		Hash    string           `json:"hash"`
		Item    model.DemandItem `json:"item"`
		Catalog int              `json:"catalog_records"`
		Manual  int              `json:"manual_records"`
		Ready   bool             `json:"statistics_ready"`
	}
	var out []itemView
	for _, it := range s.ledger.Items() {
		e := s.ledger.Entry(it.Hash())
		out = append(out, itemView{
			Hash:    it.Hash(),
			Item:    it,
			Catalog: len(e.CatalogRecords),
			Manual:  len(e.ManualRecords),
			Ready:   e.StatisticsReady,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var item model.DemandItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode body"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ledger.GetOrCreate(item); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.persist(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"hash": item.Hash()})
}

func (s *server) handleAddQuote(w http.ResponseWriter, r *http.Request) {
	var rec model.PriceRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode body"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.AppendManualRecord(chi.URLParam(r, "hash"), rec); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.persist(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "appended"})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query    string `json:"query"`
		ItemHash string `json:"item_hash"`
		Pages    int    `json:"pages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode body"))
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, eris.New("query is required"))
		return
	}

	s.mu.Lock()
	hash, err := resolveItem(s.ledger, req.ItemHash)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	pages := req.Pages
	if pages <= 0 {
		pages = cfg.Search.PageBudget
	}

	// Mining runs outside the ledger lock; only the append takes it.
	tenders, tier := s.eng.Cascade.Search(r.Context(), req.Query, pages)
	var records []model.PriceRecord
	if tier != cascade.TierFailed {
		records = s.eng.Miner.MineAll(r.Context(), tenders, req.Query, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.ledger.AppendCatalogRecords(hash, records)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.ledger.RecordSearch(hash, req.Query, string(tier), added); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.persist(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tier":        string(tier),
		"tenders":     len(tenders),
		"new_records": added,
	})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LookbackMonths   *int  `json:"lookback_months"`
		IncludeEstimated *bool `json:"include_estimated"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode body"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lookback := s.pcfg.LookbackMonths
	if req.LookbackMonths != nil {
		lookback = *req.LookbackMonths
	}
	estimated := s.pcfg.IncludeEstimated
	if req.IncludeEstimated != nil {
		estimated = *req.IncludeEstimated
	}

	sum, err := s.ledger.ComputeStatistics(chi.URLParam(r, "hash"), ledger.StatisticsOptions{
		LookbackMonths:   lookback,
		IncludeEstimated: estimated,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if eris.Is(err, ledger.ErrAllDeselected) || eris.Is(err, ledger.ErrUnknownItem) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}
	if err := s.persist(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *server) handleSetAccepted(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind     model.RecordKind `json:"kind"`
		Index    int              `json:"index"`
		Accepted bool             `json:"accepted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode body"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.SetAccepted(chi.URLParam(r, "hash"), req.Kind, req.Index, req.Accepted); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.persist(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	s.mu.Lock()
	p := project.Build(s.ledger, s.pcfg)
	s.mu.Unlock()

	if format == "json" {
		writeJSON(w, http.StatusOK, p)
		return
	}

	// Workbook and archive encodings go through a temp file.
	tmp, err := os.CreateTemp("", "pricemine-export-*."+format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, eris.Wrap(err, "create temp file"))
		return
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath) //nolint:errcheck

	if err := project.Save(p, tmpPath); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=project."+format)
	http.ServeFile(w, r, filepath.Clean(tmpPath))
}

func (s *server) handleImport(w http.ResponseWriter, r *http.Request) {
	var p project.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode project"))
		return
	}

	// Restore into a staging ledger first; the live ledger is only
	// replaced when the whole import succeeds.
	l, err := p.Restore()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger = l
	s.pcfg = p.Config
	if err := s.persist(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"items": len(p.DemandItems)})
}

func init() {
	serveCmd.Flags().StringVar(&serveProject, "project", "project.json", "project file (json, xlsx, or zip)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
