package lifecycle

import "errors"

// Guard errors returned by CanTransition and the transition functions.
var (
	ErrForbidden           = errors.New("actor may not act on this ticket")
	ErrNoSectorAccess      = errors.New("actor has no access to the ticket sector")
	ErrInvalidTransition   = errors.New("action not allowed in current status")
	ErrAlreadyAssigned     = errors.New("ticket already assigned")
	ErrNotAssigned         = errors.New("ticket has no technician")
	ErrInvalidAssignee     = errors.New("assignee cannot take tickets in this sector")
	ErrAlreadyCheckedIn    = errors.New("ticket already checked in")
	ErrNotCheckedIn        = errors.New("check-in required before finalization")
	ErrMissingObservations = errors.New("technical report observations required")
	ErrReportAttached      = errors.New("technical report already attached")
)
