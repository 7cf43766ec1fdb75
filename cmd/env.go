package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pricemine/internal/cascade"
	"github.com/sells-group/pricemine/internal/ledger"
	"github.com/sells-group/pricemine/internal/miner"
	"github.com/sells-group/pricemine/internal/project"
	"github.com/sells-group/pricemine/pkg/pncp"
)

// engine bundles the mining collaborators built from configuration.
type engine struct {
	Client  pncp.Client
	Cascade *cascade.Controller
	Miner   *miner.Miner
}

func newEngine() *engine {
	client := pncp.NewClient(
		pncp.WithSearchBaseURL(cfg.Catalog.SearchBaseURL),
		pncp.WithAPIBaseURL(cfg.Catalog.APIBaseURL),
		pncp.WithAppBaseURL(cfg.Catalog.AppBaseURL),
		pncp.WithUserAgent(cfg.Catalog.UserAgent),
		pncp.WithTimeouts(
			time.Duration(cfg.Catalog.ListTimeoutSecs)*time.Second,
			time.Duration(cfg.Catalog.ResultTimeoutSecs)*time.Second,
		),
		pncp.WithRateLimit(cfg.Catalog.RateLimitRPS, cfg.Catalog.RateLimitBurst),
	)
	return &engine{
		Client:  client,
		Cascade: cascade.NewController(client),
		Miner:   miner.New(client, cfg.Mining.Workers),
	}
}

// loadProject opens a project file into a ledger, or starts an empty
// one when the file does not exist yet.
func loadProject(path string) (*ledger.Ledger, project.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ledger.New(), project.Config{
			PageBudget:       cfg.Search.PageBudget,
			LookbackMonths:   cfg.Stats.LookbackMonths,
			IncludeEstimated: cfg.Stats.IncludeEstimated,
		}, nil
	}

	p, err := project.Load(path)
	if err != nil {
		return nil, project.Config{}, err
	}
	l, err := p.Restore()
	if err != nil {
		return nil, project.Config{}, err
	}
	return l, p.Config, nil
}

func saveProject(l *ledger.Ledger, pcfg project.Config, path string) error {
	return project.Save(project.Build(l, pcfg), path)
}

// resolveItem returns the ledger hash for an --item flag value. When
// the flag is empty and the ledger holds exactly one item, that item
// is used.
func resolveItem(l *ledger.Ledger, hash string) (string, error) {
	if hash != "" {
		if l.Entry(hash) == nil {
			return "", eris.Errorf("no demand item with hash %q in project", hash)
		}
		return hash, nil
	}
	items := l.Items()
	switch len(items) {
	case 0:
		return "", eris.New("project has no demand items; add one with `pricemine items add`")
	case 1:
		return items[0].Hash(), nil
	default:
		return "", eris.New("project has multiple demand items; pass --item <hash>")
	}
}
