package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
)

// AttemptOutcome is the terminal state written by Finish.
type AttemptOutcome struct {
	Status   constants.IngestState
	Reason   string
	DedupKey *string
	Method   string
}

type AttemptRepository interface {
	Start(ctx context.Context, id, sourcePath string) error
	Finish(ctx context.Context, id string, out AttemptOutcome) error
	ListRecent(ctx context.Context, limit int) ([]entity.Attempt, error)
}

type attemptRepo struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

func NewAttemptRepository(db *sql.DB, log *slog.Logger) AttemptRepository {
	if log == nil {
		log = slog.Default()
	}
	return &attemptRepo{db: db, log: log, now: time.Now}
}

func (r *attemptRepo) Start(ctx context.Context, id, sourcePath string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ingest_attempt (id, source_path, status, started_at) VALUES (?, ?, ?, ?)`,
		id, sourcePath, string(constants.StateDetected), r.now().UnixMilli())
	if err != nil {
		r.log.Error("ingest_attempt start failed", "attempt_id", id, "path", sourcePath, "err", err)
		return err
	}
	r.log.Debug("ingest_attempt started", "attempt_id", id, "path", sourcePath)
	return nil
}

func (r *attemptRepo) Finish(ctx context.Context, id string, out AttemptOutcome) error {
	var key sql.NullString
	if out.DedupKey != nil {
		key = sql.NullString{String: *out.DedupKey, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE ingest_attempt SET status = ?, reason = ?, dedup_key = ?, method = ?, finished_at = ? WHERE id = ?`,
		string(out.Status), out.Reason, key, out.Method, r.now().UnixMilli(), id)
	if err != nil {
		r.log.Error("ingest_attempt finish failed", "attempt_id", id, "err", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ingest_attempt %s: not started", id)
	}
	r.log.Debug("ingest_attempt finished", "attempt_id", id, "status", out.Status)
	return nil
}

func (r *attemptRepo) ListRecent(ctx context.Context, limit int) ([]entity.Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source_path, status, reason, dedup_key, method, started_at, finished_at
		 FROM ingest_attempt ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []entity.Attempt
	for rows.Next() {
		var (
			a        entity.Attempt
			status   string
			key      sql.NullString
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.SourcePath, &status, &a.Reason, &key, &a.Method, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Status = constants.IngestState(status)
		if key.Valid {
			k := key.String
			a.DedupKey = &k
		}
		a.StartedAt = time.UnixMilli(started).UTC()
		if finished.Valid {
			t := time.UnixMilli(finished.Int64).UTC()
			a.FinishedAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
