package cli

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-tracker/internal/ingest"
)

var (
	watchInitialScan bool
	watchNoPrint     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a folder and record every new invoice",
	Long: `Watches WATCH_DIR (or the given directory) for new documents and runs each
one through print, text extraction, field parsing and the ledger append, one at
a time. Ctrl-C stops taking new files and exits after the current one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitialScan, "initial-scan", false, "also process documents already in the folder")
	watchCmd.Flags().BoolVar(&watchNoPrint, "no-print", false, "skip the print step")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		cfg.Watch.Dir = args[0]
		if _, set := os.LookupEnv("LEDGER_PATH"); !set {
			cfg.Ledger.Path = filepath.Join(args[0], "db.json")
		}
	}
	if cmd.Flags().Changed("initial-scan") {
		cfg.Watch.InitialScan = watchInitialScan
	}
	if err := cfg.ValidateWatch(); err != nil {
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
		DocumentExt:    cfg.Watch.DocumentExt,
		SettleDelay:    cfg.Watch.SettleDelay,
		QueueSize:      cfg.Watch.QueueSize,
		ProcessTimeout: cfg.Watch.ProcessTimeout,
	}, buildExtractor(), parser, buildStore(parser), logger, controllerOptions(journal, !watchNoPrint)...)

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Dir:         cfg.Watch.Dir,
		Ext:         cfg.Watch.DocumentExt,
		InitialScan: cfg.Watch.InitialScan,
		QueueSize:   cfg.Watch.QueueSize,
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("invoice-tracker watching",
		"dir", cfg.Watch.Dir,
		"ledger", cfg.Ledger.Path,
		"fields", parser.FieldNames(),
		"settle_delay", cfg.Watch.SettleDelay,
		"printing", !watchNoPrint && cfg.Print.Command != "",
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(gctx, events)
	})
	g.Go(func() error {
		for err := range errs {
			logger.Warn("watcher reported an error", "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("invoice-tracker stopped")
	return nil
}
