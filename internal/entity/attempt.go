package entity

import (
	"time"

	"github.com/joseph-ayodele/invoice-tracker/constants"
)

// Attempt is one ingestion attempt as recorded in the journal.
type Attempt struct {
	ID         string                `json:"id"`
	SourcePath string                `json:"source_path"`
	Status     constants.IngestState `json:"status"`
	Reason     string                `json:"reason,omitempty"`
	DedupKey   *string               `json:"dedup_key,omitempty"`
	Method     string                `json:"method,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
}
