package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/pricemine/internal/project"
)

var convertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Re-encode a project file between json, xlsx, and zip",
	Long:  "Loads a project in one encoding and writes it in another. The import path runs the full reconciliation, so the output always carries recomputed hashes and a re-derived statistics partition.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, out := args[0], args[1]

		p, err := project.Load(in)
		if err != nil {
			return err
		}
		l, err := p.Restore()
		if err != nil {
			return err
		}
		if err := project.Save(project.Build(l, p.Config), out); err != nil {
			return err
		}
		fmt.Printf("converted %s -> %s\n", in, out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
}
