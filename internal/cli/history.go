package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/repository"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent ingestion attempts from the journal",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of attempts to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if cfg.Journal.Path == "" {
		return common.NewAppError(common.CodeConfig, "JOURNAL_PATH is not set", errors.New("no journal configured"))
	}
	ctx := cmd.Context()
	db, err := repository.Open(ctx, cfg.Journal.Path, logger)
	if err != nil {
		return err
	}
	defer repository.Close(db, logger)

	if err := repository.HealthCheck(ctx, db, 3*time.Second); err != nil {
		return fmt.Errorf("journal health: %w", err)
	}
	attempts, err := repository.NewAttemptRepository(db, logger).ListRecent(ctx, historyLimit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tREASON\tKEY\tMETHOD\tPATH")
	for _, a := range attempts {
		key := "-"
		if a.DedupKey != nil {
			key = *a.DedupKey
		}
		reason := a.Reason
		if reason == "" {
			reason = "-"
		}
		method := a.Method
		if method == "" {
			method = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.StartedAt.Local().Format(time.DateTime), a.Status, reason, key, method, a.SourcePath)
	}
	return tw.Flush()
}
