package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"bvester-assessment/internal/assessment"
	"bvester-assessment/internal/common/validation"
	"bvester-assessment/internal/mcptools"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score an answer set",
	Long:  "Reads {\"answers\": {...}} from --answers (or stdin with -) and prints the full assessment result.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := loadCatalog(cmd)
		if err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("answers")
		doc, err := readInput(path)
		if err != nil {
			return err
		}

		answers, err := decodeAnswers(validation.SchemaEvaluate, doc)
		if err != nil {
			return err
		}

		result, err := assessment.NewEngine().Evaluate(catalog, answers)
		if err != nil {
			return eris.Wrap(err, "evaluate")
		}

		format, _ := cmd.Flags().GetString("format")
		return writeResult(cmd.OutOrStdout(), result, format)
	},
}

func init() {
	evaluateCmd.Flags().String("answers", "-", "answers JSON file, - for stdin")
	evaluateCmd.Flags().String("format", "text", "output format: text or json")
	rootCmd.AddCommand(evaluateCmd)
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return data, eris.Wrap(err, "read stdin")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return data, nil
}

// decodeAnswers validates doc against the named request schema and returns
// its answers object.
func decodeAnswers(schema string, doc []byte) (assessment.Answers, error) {
	res, err := validation.ValidateJSON(schema, doc)
	if err != nil {
		return nil, eris.Wrap(err, "validate input")
	}
	if !res.Valid {
		return nil, eris.Errorf("invalid input: %s", strings.Join(res.GetErrorMessages(), "; "))
	}

	var body struct {
		Answers assessment.Answers `json:"answers"`
	}
	if err := json.Unmarshal(doc, &body); err != nil {
		return nil, eris.Wrap(err, "decode answers")
	}
	if body.Answers == nil {
		body.Answers = assessment.Answers{}
	}
	return body.Answers, nil
}

func writeResult(w io.Writer, result *assessment.AssessmentResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(result), "encode result")
	case "text", "":
		_, err := fmt.Fprint(w, mcptools.RenderMarkdown(result))
		return err
	default:
		return eris.Errorf("unknown format %q", format)
	}
}
