package entity

import "errors"

// Domain errors
var (
	// Pipeline stage failures
	ErrHistoryUnavailable    = errors.New("history unavailable")
	ErrRetrievalUnavailable  = errors.New("retrieval unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// Index errors
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptySnapshot     = errors.New("index snapshot is empty")

	// Validation errors
	ErrInvalidRequest    = errors.New("invalid request")
	ErrEmptyQuestion     = errors.New("question is empty")
	ErrQuestionTooLong   = errors.New("question is too long")
	ErrInvalidSessionID  = errors.New("invalid session id")
	ErrUnsupportedFormat = errors.New("unsupported transcript format")
)
