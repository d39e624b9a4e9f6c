package domain

import "errors"

var (
	// ErrNotFound covers both a missing assessment and one owned by a
	// different user; callers must not be able to distinguish the two.
	ErrNotFound = errors.New("assessment not found")

	ErrInvalidScore     = errors.New("score must be between 1 and 10")
	ErrMissingResponse  = errors.New("response text is required")
	ErrUnknownQuestion  = errors.New("unknown question id")
	ErrTerminalStatus   = errors.New("assessment is in a terminal status")
	ErrDocumentNotFound = errors.New("document not found")
)
