package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
)

const (
	documentKey    = "invoices"
	lockRetryDelay = 50 * time.Millisecond
)

// Store persists a Ledger as a single JSON document of the form
// {"invoices": [ {...}, ... ]}. Every save rewrites the whole document
// atomically. Append serializes load-check-save under an in-process mutex
// and an advisory lock file so that concurrent writers cannot lose records.
type Store struct {
	path   string
	key    string
	logger *slog.Logger

	mu   sync.Mutex
	lock *flock.Flock
}

// NewStore returns a store for the document at path keyed on field key.
func NewStore(path, key string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		key:    key,
		logger: logger,
		lock:   flock.New(path + ".lock"),
	}
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Key returns the dedup key field name.
func (s *Store) Key() string { return s.key }

func persistenceError(msg string, err error) error {
	return common.NewAppError(common.CodePersistence, msg, fmt.Errorf("%w: %w", common.ErrPersistenceFailure, err))
}

// Load reads and validates the document. A missing document is an empty ledger.
func (s *Store) Load(ctx context.Context) (*Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("ledger not found, starting empty", "path", s.path)
		return New(s.key), nil
	}
	if err != nil {
		return nil, persistenceError("read ledger", err)
	}
	if err := validateDocument(data); err != nil {
		return nil, persistenceError("invalid ledger document "+s.path, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, persistenceError("decode ledger", err)
	}
	var recs []*entity.Record
	if err := json.Unmarshal(doc[documentKey], &recs); err != nil {
		return nil, persistenceError("decode ledger records", err)
	}

	l := New(s.key)
	for i, rec := range recs {
		if rec == nil {
			rec = entity.NewRecord()
		}
		if !l.adopt(rec) {
			k, _ := rec.Value(s.key)
			s.logger.Warn("ledger record kept without index",
				"path", s.path, "position", i, "key_field", s.key, "key", k)
		}
	}
	for k, v := range doc {
		if k == documentKey {
			continue
		}
		if l.extra == nil {
			l.extra = map[string][]byte{}
		}
		l.extra[k] = v
	}
	return l, nil
}

// Save atomically replaces the document with l's content.
func (s *Store) Save(ctx context.Context, l *Ledger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(l)
	if err != nil {
		return persistenceError("encode ledger", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return persistenceError("write ledger", err)
	}
	return nil
}

// Contains loads the ledger and checks for key.
func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	l, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	return l.Contains(key), nil
}

// Append adds rec and persists the ledger. It returns *ValidationError when
// the key is missing, *DuplicateError when the key exists, or a persistence
// error when the document cannot be read or written. Nothing is written
// unless the append succeeds.
func (s *Store) Append(ctx context.Context, rec *entity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return persistenceError("create ledger directory", err)
	}
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return persistenceError("lock ledger", err)
	}
	if !locked {
		return persistenceError("lock ledger", errors.New("lock not acquired"))
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Error("failed to release ledger lock", "path", s.lock.Path(), "error", err)
		}
	}()

	l, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := l.Append(rec); err != nil {
		return err
	}
	if err := s.Save(ctx, l); err != nil {
		return err
	}

	k, _ := rec.Value(s.key)
	s.logger.Debug("ledger.append.ok", "path", s.path, "key", k, "records", l.Len())
	return nil
}

// encode writes the document with four-space indentation and without HTML
// escaping, so vendor names like "Smith & Co" stay readable.
func encode(l *Ledger) ([]byte, error) {
	recs := l.records
	if recs == nil {
		recs = []*entity.Record{}
	}
	doc := make(map[string]any, len(l.extra)+1)
	for k, v := range l.extra {
		doc[k] = json.RawMessage(v)
	}
	doc[documentKey] = recs

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
