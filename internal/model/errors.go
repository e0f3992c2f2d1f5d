package model

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceNotFound    = errors.New("rfid reader not found")
	ErrInvalidTransition = errors.New("ticket is not open")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrInvalidWeight     = errors.New("invalid weight reading")
	ErrDuplicateCard     = errors.New("rfid card already assigned")
)

// PrintFailure wraps an error returned while handing a job to the spooler.
type PrintFailure struct {
	JobID string
	Kind  DocumentKind
	Queue string
	Err   error
}

func (f *PrintFailure) Error() string {
	return fmt.Sprintf("print %s job %s on %q failed: %v", f.Kind, f.JobID, f.Queue, f.Err)
}

func (f *PrintFailure) Unwrap() error { return f.Err }
