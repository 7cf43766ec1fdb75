package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pricemine/internal/cascade"
)

var (
	searchProject string
	searchItem    string
	searchPages   int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Mine catalog prices for a demand item",
	Long:  "Runs the search cascade for the query, mines every candidate tender concurrently, and appends the resulting price records to the demand item's ledger entry.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		query := args[0]

		l, pcfg, err := loadProject(searchProject)
		if err != nil {
			return err
		}
		hash, err := resolveItem(l, searchItem)
		if err != nil {
			return err
		}

		pages := searchPages
		if pages <= 0 {
			pages = pcfg.PageBudget
		}
		if pages <= 0 {
			pages = cfg.Search.PageBudget
		}

		eng := newEngine()

		tenders, tier := eng.Cascade.Search(ctx, query, pages)
		if tier == cascade.TierFailed {
			if err := l.RecordSearch(hash, query, string(tier), 0); err != nil {
				return err
			}
			if err := saveProject(l, pcfg, searchProject); err != nil {
				return err
			}
			fmt.Println("no tenders found for this query")
			return nil
		}

		fmt.Printf("found %d tenders (tier %s), mining...\n", len(tenders), tier)

		records := eng.Miner.MineAll(ctx, tenders, query, func(done, total int) {
			fmt.Printf("\rmined %d/%d tenders", done, total)
		})
		fmt.Println()

		added, err := l.AppendCatalogRecords(hash, records)
		if err != nil {
			return err
		}
		if err := l.RecordSearch(hash, query, string(tier), added); err != nil {
			return err
		}

		pcfg.Query = query
		if err := saveProject(l, pcfg, searchProject); err != nil {
			return err
		}

		zap.L().Info("search complete",
			zap.String("query", query),
			zap.String("tier", string(tier)),
			zap.Int("tenders", len(tenders)),
			zap.Int("new_records", added),
		)

		if added == 0 {
			fmt.Println("no items matched the query in the candidate tenders")
			return nil
		}
		fmt.Printf("appended %d price records to item %s\n", added, hash)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchProject, "project", "project.json", "project file (json, xlsx, or zip)")
	searchCmd.Flags().StringVar(&searchItem, "item", "", "target demand item hash")
	searchCmd.Flags().IntVar(&searchPages, "pages", 0, "search page budget (default from project/config)")
	rootCmd.AddCommand(searchCmd)
}
