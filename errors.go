package pdfquiz

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a generation is already in flight for the session.
	ErrBusy = errors.New("another operation is already in progress")
	// ErrStaleGeneration is returned when a result arrives for a document the user has abandoned.
	ErrStaleGeneration = errors.New("result belongs to an abandoned document")
	// ErrInvalidTransition is returned when an operation is not allowed in the current phase.
	ErrInvalidTransition = errors.New("operation not allowed in current phase")
	// ErrEmptySummary is returned when advancing to the summary phase without sections.
	ErrEmptySummary = errors.New("summary has no sections")
	// ErrNoQuestions is returned when advancing to the quiz phase without questions.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrInvalidOption indicates a selected option outside the question's options.
	ErrInvalidOption = errors.New("option out of range")
	// ErrSessionNotFound is returned by session stores for unknown ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAttemptNotFound is returned by the archive for unknown attempt ids.
	ErrAttemptNotFound = errors.New("attempt not found")
)

// ExtractionError reports that an uploaded document could not be read as a PDF.
// It is the only failure surfaced to the user.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	if e.Cause == nil {
		return "failed to extract text from PDF"
	}
	return fmt.Sprintf("failed to extract text from PDF: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
