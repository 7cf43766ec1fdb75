package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/pricemine/internal/model"
)

var (
	itemsProject string
	addLot       int
	addNumber    int
	addDesc      string
	addUnit      string
	addQuantity  string
	addUngrouped bool
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage the project's demand items",
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List demand items and their ledger hashes",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, _, err := loadProject(itemsProject)
		if err != nil {
			return err
		}
		items := l.Items()
		if len(items) == 0 {
			fmt.Println("project has no demand items")
			return nil
		}
		fmt.Printf("%-18s %-8s %-6s %s\n", "HASH", "LOT", "ITEM", "DESCRIPTION")
		for _, it := range items {
			e := l.Entry(it.Hash())
			fmt.Printf("%-18s %-8s %-6d %s (%d catalog, %d manual)\n",
				it.Hash(), it.LotLabel(), it.ItemNumber, it.Description,
				len(e.CatalogRecords), len(e.ManualRecords))
		}
		return nil
	},
}

var itemsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a demand item to the project",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, pcfg, err := loadProject(itemsProject)
		if err != nil {
			return err
		}

		item := model.DemandItem{
			ItemNumber:  addNumber,
			Description: addDesc,
			Unit:        addUnit,
			Quantity:    addQuantity,
		}
		if !addUngrouped {
			lot := addLot
			item.Lot = &lot
		}

		if _, err := l.GetOrCreate(item); err != nil {
			return err
		}
		if err := saveProject(l, pcfg, itemsProject); err != nil {
			return err
		}
		fmt.Printf("item %s added as %s\n", item.Description, item.Hash())
		return nil
	},
}

func init() {
	itemsCmd.PersistentFlags().StringVar(&itemsProject, "project", "project.json", "project file (json, xlsx, or zip)")

	itemsAddCmd.Flags().IntVar(&addLot, "lot", 1, "lot number")
	itemsAddCmd.Flags().BoolVar(&addUngrouped, "ungrouped", false, "item has no lot")
	itemsAddCmd.Flags().IntVar(&addNumber, "number", 0, "item number (required)")
	itemsAddCmd.Flags().StringVar(&addDesc, "description", "", "item description (required)")
	itemsAddCmd.Flags().StringVar(&addUnit, "unit", "", "unit of measure")
	itemsAddCmd.Flags().StringVar(&addQuantity, "quantity", "1", "demanded quantity")
	_ = itemsAddCmd.MarkFlagRequired("number")
	_ = itemsAddCmd.MarkFlagRequired("description")

	itemsCmd.AddCommand(itemsListCmd, itemsAddCmd)
	rootCmd.AddCommand(itemsCmd)
}
