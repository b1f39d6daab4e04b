package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// CSV / mapping
	ErrParse             = errors.New("csv parse error")
	ErrMappingIncomplete = errors.New("column mapping incomplete")

	// External services
	ErrUpload  = errors.New("asset upload failed")
	ErrService = errors.New("video processing service error")
	ErrTimeout = errors.New("video processing timed out")

	// Orchestration
	ErrBatchNotFound = errors.New("batch not found")
	ErrAborted       = errors.New("batch aborted")
	ErrJobTerminal   = errors.New("job already in terminal state")

	// Storage
	ErrInvalidExecContext = errors.New("invalid database execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
