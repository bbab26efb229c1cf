package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
)

var (
	parseText     bool
	parseShowSpec bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Show the record the field parser builds for a document",
	Long: `Extracts the document's text and prints the parsed record as JSON without
touching the ledger. With --text the file is read as already-extracted text.
With --show-spec the active field set is printed as YAML instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseText, "text", false, "treat the file as plain text")
	parseCmd.Flags().BoolVar(&parseShowSpec, "show-spec", false, "print the active field set as YAML")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	parser, err := buildParser()
	if err != nil {
		return err
	}
	if parseShowSpec {
		out, err := parser.YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("a file is required: %w", common.ErrInvalidInput)
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	text := string(content)
	if !parseText {
		res := buildExtractor().Extract(cmd.Context(), args[0], content)
		if res.Empty() {
			return common.NewAppError(common.CodeExtraction, args[0], common.ErrExtractionFailure)
		}
		logger.Debug("text extracted", "method", res.Method, "pages", res.Pages, "warnings", res.Warnings)
		text = res.Text
	}

	out, err := json.MarshalIndent(parser.Parse(text), "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
