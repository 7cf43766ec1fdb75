package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sells-group/pricemine/internal/model"
)

var (
	quoteProject string
	quoteItem    string
	quoteSource  string
	quoteDesc    string
	quotePrice   string
	quoteQty     string
	quoteDate    string
	quoteStatus  string
	quoteOrigin  string
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Manage manually collected supplier quotations",
}

var quoteAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append a manual quotation to a demand item",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, pcfg, err := loadProject(quoteProject)
		if err != nil {
			return err
		}
		hash, err := resolveItem(l, quoteItem)
		if err != nil {
			return err
		}

		price, err := decimal.NewFromString(quotePrice)
		if err != nil {
			return eris.Wrap(err, "parse --price")
		}
		date := time.Now()
		if quoteDate != "" {
			if date, err = time.Parse("2006-01-02", quoteDate); err != nil {
				return eris.Wrap(err, "parse --date (want YYYY-MM-DD)")
			}
		}

		rec := model.PriceRecord{
			Date:            date,
			SourceName:      quoteSource,
			ItemDescription: quoteDesc,
			Quantity:        model.ParseQuantity(quoteQty),
			UnitPrice:       price,
			Origin:          quoteOrigin,
			Kind:            model.KindManual,
			Status:          model.ParseQuoteStatus(quoteStatus),
			Accepted:        true,
		}
		if err := l.AppendManualRecord(hash, rec); err != nil {
			return err
		}
		if err := saveProject(l, pcfg, quoteProject); err != nil {
			return err
		}
		fmt.Printf("quotation from %s appended to item %s\n", quoteSource, hash)
		return nil
	},
}

func init() {
	quoteCmd.PersistentFlags().StringVar(&quoteProject, "project", "project.json", "project file (json, xlsx, or zip)")

	quoteAddCmd.Flags().StringVar(&quoteItem, "item", "", "target demand item hash")
	quoteAddCmd.Flags().StringVar(&quoteSource, "source", "", "supplier or public entity name (required)")
	quoteAddCmd.Flags().StringVar(&quoteDesc, "description", "", "quoted item description")
	quoteAddCmd.Flags().StringVar(&quotePrice, "price", "", "unit price (required)")
	quoteAddCmd.Flags().StringVar(&quoteQty, "quantity", "1", "quoted quantity")
	quoteAddCmd.Flags().StringVar(&quoteDate, "date", "", "quotation date (YYYY-MM-DD, default today)")
	quoteAddCmd.Flags().StringVar(&quoteStatus, "status", string(model.StatusProposalReceived),
		"quotation status (proposal_received, public_source, awaiting_response, declined)")
	quoteAddCmd.Flags().StringVar(&quoteOrigin, "origin", "", "provenance URL or note")
	_ = quoteAddCmd.MarkFlagRequired("source")
	_ = quoteAddCmd.MarkFlagRequired("price")

	quoteCmd.AddCommand(quoteAddCmd)
	rootCmd.AddCommand(quoteCmd)
}
