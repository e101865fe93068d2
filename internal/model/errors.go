package model

import "errors"

var (
	// ErrURLRequired is returned when no terminal URL was given.
	ErrURLRequired = errors.New("terminal url is required")

	// ErrJournalRequired is returned when a command needs the journal and
	// none was configured.
	ErrJournalRequired = errors.New("journal path is required")

	// ErrAttemptNotFound is returned when a journal entry does not exist.
	ErrAttemptNotFound = errors.New("attempt not found")
)
