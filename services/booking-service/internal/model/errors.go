package model

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSlotBusy          = errors.New("slot is being booked, try again")
	// ErrProcedureMissing means the database does not define the RPC and the
	// caller should take the table fallback.
	ErrProcedureMissing = errors.New("database procedure missing")
)
