package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/async"
	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/repository"
)

// Config controls how the controller treats incoming documents.
type Config struct {
	DocumentExt    string
	SettleDelay    time.Duration
	QueueSize      int
	ProcessTimeout time.Duration
}

// Controller drives one document at a time through
// Detected -> TextExtracted -> FieldsParsed -> DedupChecked -> Appended,
// ending in Skipped whenever a stage yields nothing usable and in Failed only
// when the ledger cannot be read or written.
type Controller struct {
	cfg       Config
	extractor TextExtractor
	parser    FieldParser
	store     LedgerStore
	printer   Printer
	journal   Journal
	logger    *slog.Logger

	sleep    func(ctx context.Context, d time.Duration) error
	readFile func(path string) ([]byte, error)
	newID    func() string
}

// Option configures a Controller.
type Option func(*Controller)

// WithPrinter enables the print side effect.
func WithPrinter(p Printer) Option {
	return func(c *Controller) {
		if cp, ok := p.(*CommandPrinter); ok && cp == nil {
			return
		}
		c.printer = p
	}
}

// WithJournal records every attempt in j.
func WithJournal(j Journal) Option {
	return func(c *Controller) {
		if j != nil {
			c.journal = j
		}
	}
}

// NewController wires the pipeline stages. A nil logger uses slog.Default().
func NewController(cfg Config, extractor TextExtractor, parser FieldParser, store LedgerStore, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DocumentExt == "" {
		cfg.DocumentExt = constants.DefaultDocumentExt
	}
	c := &Controller{
		cfg:       cfg,
		extractor: extractor,
		parser:    parser,
		store:     store,
		logger:    logger,
		sleep:     sleepContext,
		readFile:  os.ReadFile,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Accepts reports whether ev starts an ingestion attempt.
func (c *Controller) Accepts(ev Event) bool {
	return ev.Kind == EventCreated && Matches(ev.Path, c.cfg.DocumentExt)
}

// Handle processes ev if it is accepted and drops it otherwise.
func (c *Controller) Handle(ctx context.Context, ev Event) {
	if !c.Accepts(ev) {
		c.logger.Debug("event ignored", "path", ev.Path, "kind", ev.Kind)
		return
	}
	c.Process(ctx, ev.Path)
}

// Run consumes events through a single-consumer queue until ctx is done or
// events is closed. On cancellation it stops taking events and returns once
// the in-flight document has finished; on close it drains what is queued.
func (c *Controller) Run(ctx context.Context, events <-chan Event) error {
	q := async.NewQueue[Event](c.Handle, c.logger,
		async.WithQueueSize(c.cfg.QueueSize),
		async.WithProcessTimeout(c.cfg.ProcessTimeout))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("controller stopping", "pending", q.Len())
			return q.Shutdown(context.Background())
		case ev, ok := <-events:
			if !ok {
				c.logger.Info("event source closed, draining", "pending", q.Len())
				return q.Drain(context.Background())
			}
			if !c.Accepts(ev) {
				c.logger.Debug("event ignored", "path", ev.Path, "kind", ev.Kind)
				continue
			}
			if err := q.Enqueue(ctx, ev); err != nil {
				c.logger.Warn("event dropped", "path", ev.Path, "error", err)
			}
		}
	}
}

// Process runs one document through the pipeline and returns its terminal
// outcome. It never panics and always logs exactly one outcome line.
func (c *Controller) Process(ctx context.Context, path string) (out Outcome) {
	start := time.Now()
	id := c.newID()
	log := c.logger.With("attempt_id", id, "path", path)
	ctx = common.WithLogger(common.WithAttemptID(ctx, id), log)

	out = Outcome{AttemptID: id, Path: path, State: constants.StateDetected}
	log.Info("document detected")
	c.journalStart(ctx, log, id, path)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while processing document", "panic", r, "state", out.State)
			out = skip(out, constants.ReasonInternal, fmt.Errorf("panic: %v", r))
		}
		out.Duration = time.Since(start)
		c.report(log, out)
		c.journalFinish(ctx, log, out)
	}()

	if err := c.sleep(ctx, c.cfg.SettleDelay); err != nil {
		return interrupted(out, err)
	}

	if c.printer != nil {
		if err := c.printer.Print(ctx, path); err != nil {
			log.Warn("print failed", "code", common.CodeOf(err), "error", err)
		} else {
			out.Printed = true
		}
	}

	content, err := c.readFile(path)
	if err != nil {
		return skip(out, constants.ReasonUnreadable,
			common.NewAppError(common.CodeExtraction, "read document", fmt.Errorf("%w: %w", common.ErrExtractionFailure, err)))
	}

	res := c.extractor.Extract(ctx, path, content)
	out.Method = res.Method
	// a killed OCR run looks like an empty document
	if err := ctx.Err(); err != nil {
		return interrupted(out, err)
	}
	if res.Empty() {
		if len(res.Warnings) > 0 {
			log.Debug("extraction warnings", "warnings", res.Warnings)
		}
		return skip(out, constants.ReasonEmptyText,
			common.NewAppError(common.CodeExtraction, "document has no text", common.ErrExtractionFailure))
	}
	out.State = constants.StateTextExtracted
	log.Debug("text extracted", "method", res.Method, "pages", res.Pages, "bytes", len(res.Text), "sidecar", res.Sidecar)

	rec := c.parser.Parse(res.Text)
	out.Record = rec
	out.State = constants.StateFieldsParsed
	key, ok := rec.Value(c.parser.DedupKey())
	if !ok || key == "" {
		return skip(out, constants.ReasonMissingKey,
			common.NewAppError(common.CodeParse, c.parser.DedupKey()+" not found", common.ErrParseIncomplete))
	}
	out.Key = key

	if err := ctx.Err(); err != nil {
		return interrupted(out, err)
	}
	exists, err := c.store.Contains(ctx, key)
	if err != nil {
		if isContextErr(err) {
			return interrupted(out, err)
		}
		return fail(out, err)
	}
	out.State = constants.StateDedupChecked
	if exists {
		return skip(out, constants.ReasonDuplicate,
			common.NewAppError(common.CodeDuplicate, "invoice "+key+" already recorded", common.ErrDuplicateInvoice))
	}

	if err := ctx.Err(); err != nil {
		return interrupted(out, err)
	}
	if err := c.store.Append(ctx, rec); err != nil {
		switch {
		case isContextErr(err):
			return interrupted(out, err)
		case errors.Is(err, common.ErrDuplicateInvoice):
			return skip(out, constants.ReasonDuplicate, err)
		case errors.Is(err, common.ErrParseIncomplete):
			return skip(out, constants.ReasonMissingKey, err)
		default:
			return fail(out, err)
		}
	}
	out.State = constants.StateAppended
	return out
}

func skip(out Outcome, reason string, err error) Outcome {
	out.State = constants.StateSkipped
	out.Reason = reason
	out.Err = err
	return out
}

// interrupted ends an attempt whose context was cancelled or timed out.
// Nothing is written, and the store is not blamed.
func interrupted(out Outcome, err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return skip(out, constants.ReasonTimeout, err)
	}
	return skip(out, constants.ReasonCancelled, err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func fail(out Outcome, err error) Outcome {
	out.State = constants.StateFailed
	out.Reason = constants.ReasonPersistence
	out.Err = err
	return out
}

func (c *Controller) report(log *slog.Logger, out Outcome) {
	attrs := []any{
		"state", out.State,
		"method", out.Method,
		"printed", out.Printed,
		"duration_ms", out.Duration.Milliseconds(),
	}
	if out.Key != "" {
		attrs = append(attrs, "key", out.Key)
	}
	if out.Reason != "" {
		attrs = append(attrs, "reason", out.Reason)
	}
	if out.Err != nil {
		attrs = append(attrs, "code", common.CodeOf(out.Err), "error", out.Err)
	}

	switch {
	case out.State == constants.StateAppended:
		log.Info("invoice appended", attrs...)
	case out.State == constants.StateFailed:
		log.Error("invoice not recorded", attrs...)
	case out.Reason == constants.ReasonDuplicate:
		log.Info("invoice skipped", attrs...)
	default:
		log.Warn("invoice skipped", attrs...)
	}
}

func (c *Controller) journalStart(ctx context.Context, log *slog.Logger, id, path string) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Start(context.WithoutCancel(ctx), id, path); err != nil {
		log.Warn("journal start failed", "error", err)
	}
}

func (c *Controller) journalFinish(ctx context.Context, log *slog.Logger, out Outcome) {
	if c.journal == nil {
		return
	}
	var key *string
	if out.Key != "" {
		k := out.Key
		key = &k
	}
	err := c.journal.Finish(context.WithoutCancel(ctx), out.AttemptID, repository.AttemptOutcome{
		Status:   out.State,
		Reason:   out.Reason,
		DedupKey: key,
		Method:   out.Method,
	})
	if err != nil {
		log.Warn("journal finish failed", "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
