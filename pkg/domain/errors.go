package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned when creating a session whose ID is already taken.
	ErrSessionExists = errors.New("session already exists")

	// ErrEmptySessionID is returned by stores when called without a session ID.
	ErrEmptySessionID = errors.New("session id cannot be empty")

	// ErrAlreadyClassified is returned when a commit tries to change an existing classification.
	ErrAlreadyClassified = errors.New("session already classified")

	// ErrInvalidDomain is returned when a classification value is not financial or legal.
	ErrInvalidDomain = errors.New("invalid domain")

	// ErrMemoryReleased is returned when working memory is used after the turn released it.
	ErrMemoryReleased = errors.New("working memory already released")
)
