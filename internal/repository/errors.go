package repository

import "errors"

// Common repository errors
var (
	// ErrCardNotFound is returned when a card does not exist or is soft-deleted
	ErrCardNotFound = errors.New("card not found")

	// ErrBoardNotFound is returned when a board is not found
	ErrBoardNotFound = errors.New("board not found")

	// ErrColumnNotFound is returned when a column is not found
	ErrColumnNotFound = errors.New("column not found")
)
