package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"bvester-assessment/internal/common/database"
	"bvester-assessment/internal/store/search"
)

var riskCountsCmd = &cobra.Command{
	Use:   "risk-counts",
	Short: "Count indexed assessments per risk level",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return eris.Wrap(err, "connect elasticsearch")
		}

		counts, err := search.NewIndexer(es.Client, cfg.Database.Elasticsearch.Index).RiskLevelCounts(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "risk counts")
		}

		levels := make([]string, 0, len(counts))
		for level := range counts {
			levels = append(levels, level)
		}
		sort.Strings(levels)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RISK LEVEL\tCOUNT")
		for _, level := range levels {
			fmt.Fprintf(w, "%s\t%d\n", level, counts[level])
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(riskCountsCmd)
}
