package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/pricemine/internal/ledger"
	"github.com/sells-group/pricemine/internal/model"
	"github.com/sells-group/pricemine/internal/money"
)

var (
	statsProject   string
	statsItem      string
	statsLookback  int
	statsEstimated bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Compute curated price statistics for a demand item",
	Long:  "Classifies the accepted union of catalog and manual records with the median-band rule and caches the resulting statistics in the project.",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, pcfg, err := loadProject(statsProject)
		if err != nil {
			return err
		}
		hash, err := resolveItem(l, statsItem)
		if err != nil {
			return err
		}

		lookback := statsLookback
		if lookback < 0 {
			lookback = pcfg.LookbackMonths
		}
		estimated := pcfg.IncludeEstimated
		if cmd.Flags().Changed("include-estimated") {
			estimated = statsEstimated
		}

		sum, err := l.ComputeStatistics(hash, ledger.StatisticsOptions{
			LookbackMonths:   lookback,
			IncludeEstimated: estimated,
		})
		if err != nil {
			if eris.Is(err, ledger.ErrAllDeselected) {
				return eris.New("all records are deselected or filtered out; accept at least one record before computing statistics")
			}
			return err
		}

		pcfg.LookbackMonths = lookback
		pcfg.IncludeEstimated = estimated
		if err := saveProject(l, pcfg, statsProject); err != nil {
			return err
		}

		fmt.Printf("Methodology:     %s\n", sum.Methodology)
		fmt.Printf("Sanitized mean:  %s\n", money.FormatBRL(sum.SanitizedMean))
		fmt.Printf("Median:          %s\n", money.FormatBRL(sum.Median))
		fmt.Printf("Band:            %s .. %s\n", money.FormatBRL(sum.Lower), money.FormatBRL(sum.Upper))
		fmt.Printf("Lowest valid:    %s\n", money.FormatBRL(sum.MinValid))
		fmt.Printf("Highest valid:   %s\n", money.FormatBRL(sum.MaxValid))
		fmt.Printf("Lowest found:    %s\n", money.FormatBRL(sum.MinFound))
		fmt.Printf("Highest found:   %s\n", money.FormatBRL(sum.MaxFound))
		fmt.Printf("Useful samples:  %d of %d selected\n\n", sum.SampleCount, sum.TotalCount)

		printRecords("Valid prices", sum.Valid)
		if len(sum.Outliers) > 0 {
			fmt.Println()
			printRecords("Discarded prices", sum.Outliers)
		}
		return nil
	},
}

func printRecords(title string, records []model.PriceRecord) {
	fmt.Printf("%s (%d)\n", title, len(records))
	for _, r := range records {
		fmt.Printf("  %s  %s  %-40.40s  %s\n",
			r.Date.Format("02/01/2006"),
			money.SortableKey(r.UnitPrice),
			r.SourceName,
			r.Origin,
		)
	}
}

func init() {
	statsCmd.Flags().StringVar(&statsProject, "project", "project.json", "project file (json, xlsx, or zip)")
	statsCmd.Flags().StringVar(&statsItem, "item", "", "target demand item hash")
	statsCmd.Flags().IntVar(&statsLookback, "lookback", -1, "recency window in whole months (0 disables)")
	statsCmd.Flags().BoolVar(&statsEstimated, "include-estimated", false, "admit estimated-basis catalog prices (overrides the project setting when set)")
	rootCmd.AddCommand(statsCmd)
}
