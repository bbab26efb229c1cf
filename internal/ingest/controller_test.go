package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
	"github.com/joseph-ayodele/invoice-tracker/internal/fields"
	"github.com/joseph-ayodele/invoice-tracker/internal/ledger"
	"github.com/joseph-ayodele/invoice-tracker/internal/ocr"
	"github.com/joseph-ayodele/invoice-tracker/internal/repository"
)

// trace records the order in which side effects happen.
type trace struct {
	mu    sync.Mutex
	steps []string
}

func (t *trace) add(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, s)
}

func (t *trace) get() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.steps...)
}

type stubExtractor struct {
	text   string
	byName map[string]string
	panic  bool
	trace  *trace

	mu    sync.Mutex
	calls int
}

func (s *stubExtractor) Extract(_ context.Context, path string, _ []byte) ocr.ExtractionResult {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.trace != nil {
		s.trace.add("extract")
	}
	if s.panic {
		panic("extractor blew up")
	}
	text := s.text
	if t, ok := s.byName[filepath.Base(path)]; ok {
		text = t
	}
	if text == "" {
		return ocr.ExtractionResult{Method: constants.MethodNone, Warnings: []string{"no text"}}
	}
	return ocr.ExtractionResult{Text: text, Pages: 1, Method: constants.MethodPDFText}
}

func (s *stubExtractor) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubPrinter struct {
	err   error
	trace *trace
	paths []string
}

func (p *stubPrinter) Print(_ context.Context, path string) error {
	p.paths = append(p.paths, path)
	if p.trace != nil {
		p.trace.add("print")
	}
	return p.err
}

type brokenStore struct {
	containsErr error
	appendErr   error
	appended    int
}

func (s *brokenStore) Contains(context.Context, string) (bool, error) { return false, s.containsErr }

func (s *brokenStore) Append(context.Context, *entity.Record) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended++
	return nil
}

type memJournal struct {
	mu       sync.Mutex
	started  map[string]string
	finished map[string]repository.AttemptOutcome
}

func newMemJournal() *memJournal {
	return &memJournal{started: map[string]string{}, finished: map[string]repository.AttemptOutcome{}}
}

func (j *memJournal) Start(_ context.Context, id, path string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.started[id] = path
	return nil
}

func (j *memJournal) Finish(_ context.Context, id string, out repository.AttemptOutcome) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finished[id] = out
	return nil
}

func standardParser(t *testing.T) *fields.Parser {
	t.Helper()
	p, err := fields.Standard().Build()
	require.NoError(t, err)
	return p
}

func writeDoc(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 stub"), 0o644))
	return path
}

func newTestController(t *testing.T, ext TextExtractor, store LedgerStore, opts ...Option) *Controller {
	t.Helper()
	c := NewController(Config{SettleDelay: time.Second}, ext, standardParser(t), store, nil, opts...)
	c.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return c
}

func TestProcess_AppendsThenSkipsDuplicate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	doc := writeDoc(t, dir, "inv.pdf")
	store := ledger.NewStore(filepath.Join(dir, "db.json"), fields.KeyInvoiceNumber, nil)
	c := newTestController(t, &stubExtractor{text: "Invoice Number\n12345"}, store)

	first := c.Process(ctx, doc)

	require.Equal(t, constants.StateAppended, first.State, "err: %v", first.Err)
	assert.Equal(t, "12345", first.Key)
	assert.NotEmpty(t, first.AttemptID)
	require.NotNil(t, first.Record)
	assert.Equal(t, []string{"invoice_number", "date_issued", "billed_to"}, first.Record.Keys())
	_, present := first.Record.Value("billed_to")
	assert.False(t, present)

	second := c.Process(ctx, doc)

	assert.Equal(t, constants.StateSkipped, second.State)
	assert.Equal(t, constants.ReasonDuplicate, second.Reason)
	assert.ErrorIs(t, second.Err, common.ErrDuplicateInvoice)
	assert.NotEqual(t, first.AttemptID, second.AttemptID)

	l, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())
}

func TestProcess_SkipsWithoutWriting(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		reason string
		target error
	}{
		{name: "no text", text: "", reason: constants.ReasonEmptyText, target: common.ErrExtractionFailure},
		{name: "no key", text: "Billed To\nsomebody", reason: constants.ReasonMissingKey, target: common.ErrParseIncomplete},
		{name: "short number", text: "Invoice Number 123", reason: constants.ReasonMissingKey, target: common.ErrParseIncomplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := ledger.NewStore(filepath.Join(dir, "db.json"), fields.KeyInvoiceNumber, nil)
			c := newTestController(t, &stubExtractor{text: tt.text}, store)

			out := c.Process(context.Background(), writeDoc(t, dir, "x.pdf"))

			assert.Equal(t, constants.StateSkipped, out.State)
			assert.Equal(t, tt.reason, out.Reason)
			assert.ErrorIs(t, out.Err, tt.target)
			assert.NoFileExists(t, store.Path())
		})
	}
}

func TestProcess_UnreadableDocument(t *testing.T) {
	ext := &stubExtractor{text: "Invoice Number 12345"}
	c := newTestController(t, ext, &brokenStore{})

	out := c.Process(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"))

	assert.Equal(t, constants.StateSkipped, out.State)
	assert.Equal(t, constants.ReasonUnreadable, out.Reason)
	assert.Equal(t, common.CodeExtraction, common.CodeOf(out.Err))
	assert.Zero(t, ext.Calls())
}

func TestProcess_PrintsFirstAndToleratesPrintFailure(t *testing.T) {
	tr := &trace{}
	dir := t.TempDir()
	doc := writeDoc(t, dir, "inv.pdf")
	printer := &stubPrinter{err: common.NewAppError(common.CodePrint, "no printer", common.ErrPrintFailure), trace: tr}
	store := &brokenStore{}
	c := newTestController(t, &stubExtractor{text: "Invoice No. 98765", trace: tr}, store, WithPrinter(printer))
	c.sleep = func(context.Context, time.Duration) error {
		tr.add("settle")
		return nil
	}

	out := c.Process(context.Background(), doc)

	assert.Equal(t, constants.StateAppended, out.State)
	assert.False(t, out.Printed)
	assert.Equal(t, []string{doc}, printer.paths)
	assert.Equal(t, []string{"settle", "print", "extract"}, tr.get())
	assert.Equal(t, 1, store.appended)
}

func TestProcess_PrintedFlag(t *testing.T) {
	dir := t.TempDir()
	c := newTestController(t, &stubExtractor{text: "Invoice No. 98765"}, &brokenStore{}, WithPrinter(&stubPrinter{}))

	out := c.Process(context.Background(), writeDoc(t, dir, "inv.pdf"))

	assert.True(t, out.Printed)
}

func TestWithPrinter_TypedNilDisablesPrinting(t *testing.T) {
	c := newTestController(t, &stubExtractor{}, &brokenStore{}, WithPrinter(NewCommandPrinter("", nil, nil)))

	assert.Nil(t, c.printer)
}

func TestProcess_PersistenceFailure(t *testing.T) {
	ioErr := common.NewAppError(common.CodePersistence, "read ledger", common.ErrPersistenceFailure)

	t.Run("contains", func(t *testing.T) {
		c := newTestController(t, &stubExtractor{text: "Invoice Number 12345"}, &brokenStore{containsErr: ioErr})

		out := c.Process(context.Background(), writeDoc(t, t.TempDir(), "a.pdf"))

		assert.Equal(t, constants.StateFailed, out.State)
		assert.Equal(t, constants.ReasonPersistence, out.Reason)
		assert.ErrorIs(t, out.Err, common.ErrPersistenceFailure)
	})

	t.Run("append", func(t *testing.T) {
		c := newTestController(t, &stubExtractor{text: "Invoice Number 12345"}, &brokenStore{appendErr: ioErr})

		out := c.Process(context.Background(), writeDoc(t, t.TempDir(), "a.pdf"))

		assert.Equal(t, constants.StateFailed, out.State)
		assert.Equal(t, common.CodePersistence, common.CodeOf(out.Err))
	})

	t.Run("corrupt ledger", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "db.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"invoices": {}}`), 0o644))
		store := ledger.NewStore(path, fields.KeyInvoiceNumber, nil)
		c := newTestController(t, &stubExtractor{text: "Invoice Number 12345"}, store)

		out := c.Process(context.Background(), writeDoc(t, dir, "a.pdf"))

		assert.Equal(t, constants.StateFailed, out.State)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, `{"invoices": {}}`, string(data))
	})

	t.Run("append race lost to duplicate", func(t *testing.T) {
		dup := &ledger.DuplicateError{Field: fields.KeyInvoiceNumber, Key: "12345"}
		c := newTestController(t, &stubExtractor{text: "Invoice Number 12345"}, &brokenStore{appendErr: dup})

		out := c.Process(context.Background(), writeDoc(t, t.TempDir(), "a.pdf"))

		assert.Equal(t, constants.StateSkipped, out.State)
		assert.Equal(t, constants.ReasonDuplicate, out.Reason)
	})
}

func TestProcess_PanicDegradesToSkipped(t *testing.T) {
	j := newMemJournal()
	c := newTestController(t, &stubExtractor{panic: true}, &brokenStore{}, WithJournal(j))

	var out Outcome
	require.NotPanics(t, func() {
		out = c.Process(context.Background(), writeDoc(t, t.TempDir(), "a.pdf"))
	})

	assert.Equal(t, constants.StateSkipped, out.State)
	assert.Equal(t, constants.ReasonInternal, out.Reason)
	assert.Equal(t, constants.StateSkipped, j.finished[out.AttemptID].Status)
}

func TestProcess_CancelledDuringSettle(t *testing.T) {
	ext := &stubExtractor{text: "Invoice Number 12345"}
	c := NewController(Config{SettleDelay: time.Hour}, ext, standardParser(t), &brokenStore{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := c.Process(ctx, writeDoc(t, t.TempDir(), "a.pdf"))

	assert.Equal(t, constants.StateSkipped, out.State)
	assert.Equal(t, constants.ReasonCancelled, out.Reason)
	assert.Zero(t, ext.Calls())
}

// stallingExtractor waits out the attempt's context, then returns text anyway.
type stallingExtractor struct{ text string }

func (s stallingExtractor) Extract(ctx context.Context, _ string, _ []byte) ocr.ExtractionResult {
	<-ctx.Done()
	return ocr.ExtractionResult{Text: s.text, Pages: 1, Method: constants.MethodPDFOCR}
}

func TestProcess_DeadlineDuringExtractionIsNotAFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")
	store := ledger.NewStore(path, fields.KeyInvoiceNumber, nil)
	c := newTestController(t, stallingExtractor{text: "Invoice Number\n12345"}, store)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := c.Process(ctx, writeDoc(t, dir, "a.pdf"))

	assert.Equal(t, constants.StateSkipped, out.State)
	assert.Equal(t, constants.ReasonTimeout, out.Reason)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.NoFileExists(t, path)
}

func TestProcess_StoreContextErrorsAreInterruptions(t *testing.T) {
	cancelled := common.NewAppError(common.CodePersistence, "lock ledger",
		fmt.Errorf("%w: %w", common.ErrPersistenceFailure, context.Canceled))
	timedOut := common.NewAppError(common.CodePersistence, "lock ledger",
		fmt.Errorf("%w: %w", common.ErrPersistenceFailure, context.DeadlineExceeded))

	tests := []struct {
		name   string
		store  *brokenStore
		reason string
	}{
		{"contains cancelled", &brokenStore{containsErr: cancelled}, constants.ReasonCancelled},
		{"append cancelled", &brokenStore{appendErr: cancelled}, constants.ReasonCancelled},
		{"append timed out", &brokenStore{appendErr: timedOut}, constants.ReasonTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t, &stubExtractor{text: "Invoice Number 12345"}, tt.store)

			out := c.Process(context.Background(), writeDoc(t, t.TempDir(), "a.pdf"))

			assert.Equal(t, constants.StateSkipped, out.State)
			assert.Equal(t, tt.reason, out.Reason)
			assert.Zero(t, tt.store.appended)
		})
	}
}

func TestProcess_Journal(t *testing.T) {
	j := newMemJournal()
	c := newTestController(t, &stubExtractor{text: "Invoice Number 12345"}, &brokenStore{}, WithJournal(j))
	c.newID = func() string { return "attempt-1" }
	doc := writeDoc(t, t.TempDir(), "a.pdf")

	c.Process(context.Background(), doc)

	assert.Equal(t, doc, j.started["attempt-1"])
	fin := j.finished["attempt-1"]
	assert.Equal(t, constants.StateAppended, fin.Status)
	require.NotNil(t, fin.DedupKey)
	assert.Equal(t, "12345", *fin.DedupKey)
	assert.Equal(t, constants.MethodPDFText, fin.Method)
}

func TestNewController_Defaults(t *testing.T) {
	c := NewController(Config{}, &stubExtractor{}, standardParser(t), &brokenStore{}, nil)

	assert.Same(t, slog.Default(), c.logger)
	assert.Equal(t, constants.DefaultDocumentExt, c.cfg.DocumentExt)
	assert.Nil(t, c.printer)
	assert.Nil(t, c.journal)
}

func TestController_Accepts(t *testing.T) {
	c := newTestController(t, &stubExtractor{}, &brokenStore{})

	assert.True(t, c.Accepts(Event{Path: "/in/a.pdf", Kind: EventCreated}))
	assert.True(t, c.Accepts(Event{Path: "/in/A.PDF", Kind: EventCreated}))
	assert.False(t, c.Accepts(Event{Path: "/in/a.pdf", Kind: EventWritten}))
	assert.False(t, c.Accepts(Event{Path: "/in/a.pdf", Kind: EventRemoved}))
	assert.False(t, c.Accepts(Event{Path: "/in/a_ocr.txt", Kind: EventCreated}))
	assert.False(t, c.Accepts(Event{Path: "/in/db.json", Kind: EventCreated}))
	assert.False(t, c.Accepts(Event{Path: "/in/.a.pdf", Kind: EventCreated}))
}

func TestRun_ProcessesAcceptedEventsInOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.pdf")
	b := writeDoc(t, dir, "b.pdf")
	ext := &stubExtractor{byName: map[string]string{"a.pdf": "Invoice Number 1001", "b.pdf": "Invoice Number 1002"}}
	store := ledger.NewStore(filepath.Join(dir, "db.json"), fields.KeyInvoiceNumber, nil)
	c := newTestController(t, ext, store)

	events := make(chan Event, 8)
	events <- Event{Path: a, Kind: EventCreated}
	events <- Event{Path: a, Kind: EventWritten}
	events <- Event{Path: filepath.Join(dir, "notes.txt"), Kind: EventCreated}
	events <- Event{Path: b, Kind: EventCreated}
	close(events)

	require.NoError(t, c.Run(context.Background(), events))

	assert.Equal(t, 2, ext.Calls())
	l, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, l.Len())
	first, _ := l.Records()[0].Value(fields.KeyInvoiceNumber)
	second, _ := l.Records()[1].Value(fields.KeyInvoiceNumber)
	assert.Equal(t, []string{"1001", "1002"}, []string{first, second})
}

// blockingExtractor holds the in-flight document until released.
type blockingExtractor struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingExtractor) Extract(context.Context, string, []byte) ocr.ExtractionResult {
	close(b.started)
	<-b.release
	return ocr.ExtractionResult{Text: "Invoice Number 4242", Method: constants.MethodPDFText}
}

func TestRun_CancelFinishesInFlightWork(t *testing.T) {
	dir := t.TempDir()
	doc := writeDoc(t, dir, "a.pdf")
	ext := &blockingExtractor{started: make(chan struct{}), release: make(chan struct{})}
	store := ledger.NewStore(filepath.Join(dir, "db.json"), fields.KeyInvoiceNumber, nil)
	c := newTestController(t, ext, store)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 1)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, events) }()

	events <- Event{Path: doc, Kind: EventCreated}
	<-ext.started
	cancel()

	select {
	case <-done:
		t.Fatal("run returned while a document was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(ext.release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after in-flight work finished")
	}

	ok, err := store.Contains(context.Background(), "4242")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(sleepContext(ctx, time.Hour), context.Canceled))
}
