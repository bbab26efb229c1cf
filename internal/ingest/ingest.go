package ingest

import (
	"context"
	"time"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
	"github.com/joseph-ayodele/invoice-tracker/internal/ocr"
	"github.com/joseph-ayodele/invoice-tracker/internal/repository"
)

// EventKind is the filesystem change that produced an Event.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventWritten EventKind = "written"
	EventRemoved EventKind = "removed"
	EventRenamed EventKind = "renamed"
	EventChmod   EventKind = "chmod"
)

// Event is one (path, kind) notification on the controller's queue.
type Event struct {
	Path string
	Kind EventKind
}

// Outcome is the terminal result of processing one document.
type Outcome struct {
	AttemptID string
	Path      string
	State     constants.IngestState
	Reason    string
	Key       string
	Method    string
	Record    *entity.Record
	Printed   bool
	Duration  time.Duration
	Err       error
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned  uint32
	Matched  uint32
	Appended uint32
	Skipped  uint32
	Failed   uint32
}

// TextExtractor turns document bytes into text. Implementations never fail;
// they return empty text instead.
type TextExtractor interface {
	Extract(ctx context.Context, path string, content []byte) ocr.ExtractionResult
}

// FieldParser turns text into a record with one entry per configured field.
type FieldParser interface {
	Parse(text string) *entity.Record
	DedupKey() string
}

// LedgerStore is the persisted, deduplicated record store.
type LedgerStore interface {
	Contains(ctx context.Context, key string) (bool, error)
	Append(ctx context.Context, rec *entity.Record) error
}

// Printer sends a document to a printer.
type Printer interface {
	Print(ctx context.Context, path string) error
}

// Journal records each attempt and its terminal state.
type Journal interface {
	Start(ctx context.Context, id, sourcePath string) error
	Finish(ctx context.Context, id string, out repository.AttemptOutcome) error
}
