package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/ingest"
)

var (
	ingestPrint         bool
	ingestSettle        time.Duration
	ingestIncludeHidden bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|dir>...",
	Short: "Record the given invoices once and exit",
	Long: `Runs each file, or every document under each directory, through the same
pipeline as watch. Printing is off and the settle delay is zero unless asked
for. Exits non-zero if any invoice could not be written to the ledger.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestPrint, "print", false, "print each document first")
	ingestCmd.Flags().DurationVar(&ingestSettle, "settle", 0, "delay before reading each document")
	ingestCmd.Flags().BoolVar(&ingestIncludeHidden, "include-hidden", false, "descend into hidden files and directories")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	parser, err := buildParser()
	if err != nil {
		return err
	}
	journal, closeJournal, err := openJournal(ctx)
	if err != nil {
		return err
	}
	defer closeJournal()

	ctrl := ingest.NewController(ingest.Config{
		DocumentExt: cfg.Watch.DocumentExt,
		SettleDelay: ingestSettle,
	}, buildExtractor(), parser, buildStore(parser), logger, controllerOptions(journal, ingestPrint)...)

	var outcomes []ingest.Outcome
	for _, arg := range args {
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := os.Stat(arg)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			// Ctrl-C stops the run, not the current document
			outcomes = append(outcomes, ctrl.Process(context.WithoutCancel(ctx), arg))
			continue
		}
		results, stats, err := ctrl.ProcessDirectory(ctx, arg, !ingestIncludeHidden)
		outcomes = append(outcomes, results...)
		logger.Info("directory processed", "dir", arg,
			"scanned", stats.Scanned, "matched", stats.Matched,
			"appended", stats.Appended, "skipped", stats.Skipped, "failed", stats.Failed)
		if err != nil {
			return err
		}
	}

	failed := writeOutcomes(cmd, outcomes)
	if failed > 0 {
		return fmt.Errorf("%d invoice(s) could not be recorded", failed)
	}
	return nil
}

func writeOutcomes(cmd *cobra.Command, outcomes []ingest.Outcome) (failed int) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tSTATE\tREASON\tKEY")
	for _, o := range outcomes {
		reason := o.Reason
		if reason == "" {
			reason = "-"
		}
		key := o.Key
		if key == "" {
			key = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.Path, o.State, reason, key)
		if o.State == constants.StateFailed {
			failed++
		}
	}
	_ = tw.Flush()
	return failed
}
