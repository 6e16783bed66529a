package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"bvester-assessment/pkg/registry"
)

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "List the BPMN service tasks the worker manager implements",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadRegistry(cmd)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TASK TYPE\tTIMEOUT\tRETRIES\tERROR CODES")
		for _, a := range reg.Activities {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", a.TaskType, a.Timeout, a.Retries, strings.Join(a.ErrorCodes, ","))
		}
		return w.Flush()
	},
}

func loadRegistry(cmd *cobra.Command) (*registry.ActivityRegistry, error) {
	path, _ := cmd.Flags().GetString("registry")
	if path == "" {
		reg, err := registry.Default()
		return reg, eris.Wrap(err, "load embedded registry")
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, eris.Wrapf(err, "load registry %s", path)
	}
	return reg, nil
}

func init() {
	activitiesCmd.Flags().String("registry", "", "activity registry JSON (defaults to the embedded registry)")
	rootCmd.AddCommand(activitiesCmd)
}
