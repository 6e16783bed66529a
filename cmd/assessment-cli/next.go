package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"bvester-assessment/internal/assessment"
	"bvester-assessment/internal/common/validation"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the next question to ask",
	Long:  "Applies the catalog's display conditions to the answers given so far and prints the next question after --index.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := loadCatalog(cmd)
		if err != nil {
			return err
		}

		index, _ := cmd.Flags().GetInt("index")
		if index < -1 || index >= catalog.Len() {
			return eris.Errorf("index %d out of range [-1, %d)", index, catalog.Len())
		}

		answers := assessment.Answers{}
		if path, _ := cmd.Flags().GetString("answers"); path != "" {
			doc, err := readInput(path)
			if err != nil {
				return err
			}
			if answers, err = decodeAnswers(validation.SchemaEvaluate, doc); err != nil {
				return err
			}
		}

		next := assessment.NewEngine().NextQuestion(catalog, index, answers)
		out := cmd.OutOrStdout()
		if next >= catalog.Len() {
			fmt.Fprintln(out, "complete")
			return nil
		}

		q := catalog.Questions[next]
		fmt.Fprintf(out, "%d\t%s\t%s\n", next, q.ID, q.Text)
		for _, opt := range q.Options {
			fmt.Fprintf(out, "\t- %s\n", opt.Text)
		}
		return nil
	},
}

func init() {
	nextCmd.Flags().Int("index", -1, "index of the question just answered")
	nextCmd.Flags().String("answers", "", "answers JSON file, - for stdin")
	rootCmd.AddCommand(nextCmd)
}
