package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bvester-assessment/internal/assessment"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect question catalogs",
}

// -- catalog show --

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the questions of the active catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := loadCatalog(cmd)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s v%s (%d questions)\n\n", catalog.Name, catalog.Version, catalog.Len())
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tID\tTYPE\tCATEGORY\tWEIGHT\tCONDITIONAL")
		for i, q := range catalog.Questions {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.1f\t%v\n", i, q.ID, q.Type, q.Category, q.Weight, len(q.Conditions) > 0)
		}
		return w.Flush()
	},
}

// -- catalog validate --

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <catalog.yaml>",
	Short: "Check a catalog file against the catalog schema and invariants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := assessment.LoadCatalog(args[0])
		if err != nil {
			var ce *assessment.CatalogError
			if errors.As(err, &ce) {
				for _, p := range ce.Problems {
					fmt.Fprintln(os.Stderr, "  -", p)
				}
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %s v%s, %d questions\n", catalog.Name, catalog.Version, catalog.Len())
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogShowCmd, catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}
