package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-tracker/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the ledger to an XLSX workbook",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "invoices.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	parser, err := buildParser()
	if err != nil {
		return err
	}

	svc := export.NewService(buildStore(parser), parser.FieldNames(), logger)
	data, err := svc.ExportLedgerXLSX(cmd.Context())
	if err != nil {
		return err
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return err
	}
	cmd.Printf("wrote %s\n", exportOut)
	return nil
}
