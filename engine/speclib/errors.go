package speclib

import (
	"errors"
	"fmt"
)

// Kind tags an error with the category hosts branch on.
type Kind string

const (
	KindModelUnavailable  Kind = "model_unavailable"
	KindDimensionMismatch Kind = "dimension_mismatch"
	KindMalformedDocument Kind = "malformed_document"
	KindInvalidInput      Kind = "invalid_input"
	KindLibraryLocked     Kind = "library_locked"
	KindInternal          Kind = "internal"
)

var (
	// ErrModelUnavailable means the embedding model could not produce vectors.
	ErrModelUnavailable = errors.New("embedding model unavailable")
	// ErrDimensionMismatch means a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrMalformedDocument means no usable text could be extracted from a document.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrInvalidInput means the caller supplied an unusable request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLibraryLocked means another process holds the library data directory.
	ErrLibraryLocked = errors.New("library locked by another process")
)

var kindSentinels = map[Kind]error{
	KindModelUnavailable:  ErrModelUnavailable,
	KindDimensionMismatch: ErrDimensionMismatch,
	KindMalformedDocument: ErrMalformedDocument,
	KindInvalidInput:      ErrInvalidInput,
	KindLibraryLocked:     ErrLibraryLocked,
}

// Error carries the kind, the failing operation and its subject.
type Error struct {
	Kind    Kind
	Op      string
	Subject string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		msg = sentinel.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Subject != "" {
		msg += fmt.Sprintf(" (%s)", e.Subject)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the sentinel for the error kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a typed error. Err may be nil.
func NewError(kind Kind, op, subject string, err error) *Error {
	return &Error{Kind: kind, Op: op, Subject: subject, Err: err}
}

// ModelUnavailable wraps a provider failure.
func ModelUnavailable(op string, err error) error {
	return NewError(KindModelUnavailable, op, "", err)
}

// DimensionMismatch reports a vector length that disagrees with the index.
func DimensionMismatch(op string, got, want int) error {
	return NewError(KindDimensionMismatch, op, fmt.Sprintf("got %d want %d", got, want), nil)
}

// MalformedDocument reports a document that produced no usable text.
func MalformedDocument(filename, reason string) error {
	return NewError(KindMalformedDocument, "ingest", filename, errors.New(reason))
}

// InvalidInput reports a rejected request.
func InvalidInput(op, reason string) error {
	return NewError(KindInvalidInput, op, "", errors.New(reason))
}

// KindOf extracts the kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}

// IsFatal reports whether err must abort a whole library load.
func IsFatal(err error) bool {
	return errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrDimensionMismatch)
}
