package ledger

import (
	"fmt"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
)

// ValidationError is returned by Append when the dedup key is absent or empty.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record has no value for dedup key %q", e.Field)
}

// Is matches common.ErrParseIncomplete.
func (e *ValidationError) Is(target error) bool { return target == common.ErrParseIncomplete }

// DuplicateError is returned by Append when the key is already recorded.
type DuplicateError struct {
	Field string
	Key   string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q already in ledger", e.Field, e.Key)
}

// Is matches common.ErrDuplicateInvoice.
func (e *DuplicateError) Is(target error) bool { return target == common.ErrDuplicateInvoice }

// Ledger is the ordered sequence of accepted records plus an index on the
// dedup key. It is not safe for concurrent use; Store serializes access.
type Ledger struct {
	key     string
	records []*entity.Record
	index   map[string]int
	extra   map[string][]byte
}

// New returns an empty ledger keyed on the named field.
func New(key string) *Ledger {
	return &Ledger{key: key, index: map[string]int{}}
}

// Key returns the dedup key field name.
func (l *Ledger) Key() string { return l.key }

// Len returns the number of records.
func (l *Ledger) Len() int { return len(l.records) }

// Records returns the records in insertion order. The slice is a copy; the
// records are shared.
func (l *Ledger) Records() []*entity.Record {
	out := make([]*entity.Record, len(l.records))
	copy(out, l.records)
	return out
}

// Contains reports whether a record with exactly this key exists.
func (l *Ledger) Contains(key string) bool {
	_, ok := l.index[key]
	return ok
}

// Append adds rec if its key is present and new.
func (l *Ledger) Append(rec *entity.Record) error {
	key, ok := rec.Value(l.key)
	if !ok || key == "" {
		return &ValidationError{Field: l.key}
	}
	if l.Contains(key) {
		return &DuplicateError{Field: l.key, Key: key}
	}
	l.index[key] = len(l.records)
	l.records = append(l.records, rec)
	return nil
}

// adopt appends a record read from disk without rejecting it. It reports
// whether the record was indexed; unkeyed and repeated records are kept but
// only the first occurrence of a key is indexed.
func (l *Ledger) adopt(rec *entity.Record) (indexed bool) {
	l.records = append(l.records, rec)
	key, ok := rec.Value(l.key)
	if !ok || key == "" || l.Contains(key) {
		return false
	}
	l.index[key] = len(l.records) - 1
	return true
}
