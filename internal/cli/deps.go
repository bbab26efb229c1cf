package cli

import (
	"context"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/fields"
	"github.com/joseph-ayodele/invoice-tracker/internal/ingest"
	"github.com/joseph-ayodele/invoice-tracker/internal/ledger"
	"github.com/joseph-ayodele/invoice-tracker/internal/ocr"
	"github.com/joseph-ayodele/invoice-tracker/internal/repository"
)

// buildParser uses FIELD_SPEC_FILE when set and the named built-in set otherwise.
func buildParser() (*fields.Parser, error) {
	var (
		p   *fields.Parser
		err error
	)
	if cfg.Fields.SpecFile != "" {
		p, err = fields.LoadFile(cfg.Fields.SpecFile)
	} else {
		p, err = fields.Lookup(cfg.Fields.Set)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "build field parser", err)
	}
	logger.Debug("field parser ready", "fields", p.FieldNames(), "dedup_key", p.DedupKey())
	return p, nil
}

func buildExtractor() *ocr.Extractor {
	return ocr.NewExtractor(ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.Lang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
		Enhance:       cfg.OCR.Enhance,
	}, logger)
}

func buildStore(p *fields.Parser) *ledger.Store {
	return ledger.NewStore(cfg.Ledger.Path, p.DedupKey(), logger)
}

// openJournal opens the attempt journal when JOURNAL_PATH is set. The returned
// close func is always safe to call.
func openJournal(ctx context.Context) (repository.AttemptRepository, func(), error) {
	if cfg.Journal.Path == "" {
		return nil, func() {}, nil
	}
	db, err := repository.Open(ctx, cfg.Journal.Path, logger)
	if err != nil {
		return nil, func() {}, err
	}
	return repository.NewAttemptRepository(db, logger), func() { repository.Close(db, logger) }, nil
}

func controllerOptions(journal repository.AttemptRepository, printing bool) []ingest.Option {
	var opts []ingest.Option
	if journal != nil {
		opts = append(opts, ingest.WithJournal(journal))
	}
	if printing {
		opts = append(opts, ingest.WithPrinter(ingest.NewCommandPrinter(cfg.Print.Command, cfg.Print.Args, ocr.ExecRunner{Logger: logger})))
	}
	return opts
}
