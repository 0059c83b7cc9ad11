package service

import "errors"

var (
	// ErrWorkerAlreadyAssigned is returned when every member in an add set
	// is already assigned to the card
	ErrWorkerAlreadyAssigned = errors.New("worker already assigned")

	// ErrWorkerNotAssigned is returned when a remove set references a
	// member that is not assigned to the card
	ErrWorkerNotAssigned = errors.New("worker not assigned")

	// ErrMoveLocked is returned when the movement guard cannot be acquired
	// within the wait budget
	ErrMoveLocked = errors.New("card movement is locked by another request")
)
