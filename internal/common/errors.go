package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	CodeConfig      = "CONFIG_ERROR"
	CodeExtraction  = "EXTRACTION_FAILURE"
	CodeParse       = "PARSE_INCOMPLETE"
	CodeDuplicate   = "DUPLICATE_INVOICE"
	CodePersistence = "PERSISTENCE_FAILURE"
	CodePrint       = "PRINT_FAILURE"
)

// Ingestion error taxonomy. Only ErrPersistenceFailure is fatal to an attempt;
// ErrPrintFailure is advisory and the rest end in a skip.
var (
	ErrExtractionFailure  = errors.New("no text could be extracted")
	ErrParseIncomplete    = errors.New("dedup key field absent")
	ErrDuplicateInvoice   = errors.New("dedup key already present in ledger")
	ErrPersistenceFailure = errors.New("ledger could not be read or written")
	ErrPrintFailure       = errors.New("print command failed")
)

// Common application errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNotFound      = errors.New("resource not found")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf returns the code of the outermost AppError in err's chain, or "".
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
