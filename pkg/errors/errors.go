package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrEmptyFile          = errors.New("file has no data rows")
	ErrInvalidFileFormat  = errors.New("invalid file format")
	ErrUnsupportedFile    = errors.New("unsupported file type")
	ErrSchemaMismatch     = errors.New("header does not match import schema")
	ErrUnknownKind        = errors.New("unknown import kind")
	ErrInvalidSeason      = errors.New("invalid period")
	ErrSessionNotFound    = errors.New("import session not found")
	ErrNotExecutable      = errors.New("import is not executable")
	ErrBackendServer      = errors.New("backend server error")
	ErrBackendBadRequest  = errors.New("backend rejected the request")
	ErrBackendFailure     = errors.New("backend import failed")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrInterrupted        = errors.New("import interrupted")
	ErrStagedFileMissing  = errors.New("staged upload is missing")
)

// Is and As let callers match errors without importing the standard package alongside this one.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }

type SchemaError struct {
	Missing []string
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e SchemaError) Unwrap() error {
	return ErrSchemaMismatch
}

// BackendError carries a non-2xx response from the backend import endpoint.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

func (e BackendError) Unwrap() error {
	switch {
	case e.StatusCode >= http.StatusInternalServerError:
		return ErrBackendServer
	case e.StatusCode == http.StatusBadRequest:
		return ErrBackendBadRequest
	default:
		return ErrBackendFailure
	}
}

func NewBackendError(statusCode int, message string) error {
	return BackendError{
		StatusCode: statusCode,
		Message:    message,
	}
}
