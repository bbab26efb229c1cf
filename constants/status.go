package constants

// IngestState is the lifecycle state of a single ingestion attempt.
type IngestState string

// Stable values (stored verbatim in the attempt journal).
const (
	StateDetected      IngestState = "DETECTED"
	StateTextExtracted IngestState = "TEXT_EXTRACTED"
	StateFieldsParsed  IngestState = "FIELDS_PARSED"
	StateDedupChecked  IngestState = "DEDUP_CHECKED"
	StateAppended      IngestState = "APPENDED" // terminal success
	StateSkipped       IngestState = "SKIPPED"  // terminal, nothing written
	StateFailed        IngestState = "FAILED"   // terminal, persistence failure
)

// Terminal reports whether no further transition is possible from s.
func (s IngestState) Terminal() bool {
	switch s {
	case StateAppended, StateSkipped, StateFailed:
		return true
	}
	return false
}

// Skip reasons recorded alongside StateSkipped.
const (
	ReasonEmptyText   = "empty_text"
	ReasonMissingKey  = "missing_key"
	ReasonDuplicate   = "duplicate"
	ReasonUnreadable  = "unreadable"
	ReasonInternal    = "internal_error"
	ReasonPersistence = "persistence_failure"
	ReasonCancelled   = "cancelled"
	ReasonTimeout     = "timeout"
)
