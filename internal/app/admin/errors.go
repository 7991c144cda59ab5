package admin

import (
	"errors"

	"stockade/internal/jail"
)

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrFacilityNotFound   = errors.New("facility_not_found")
	ErrPrisonerNotFound   = errors.New("prisoner_not_found")
	ErrJournalUnavailable = errors.New("journal_unavailable")
)

// ErrorCode maps a service or registry error to the code reported to API
// clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, jail.ErrInvalidName):
		return "invalid_request"
	case errors.Is(err, ErrFacilityNotFound):
		return "facility_not_found"
	case errors.Is(err, ErrPrisonerNotFound), errors.Is(err, jail.ErrNotPrisoner):
		return "prisoner_not_found"
	case errors.Is(err, ErrJournalUnavailable):
		return "journal_unavailable"
	case errors.Is(err, jail.ErrFacilityExists):
		return "facility_exists"
	case errors.Is(err, jail.ErrPointExists):
		return "point_exists"
	case errors.Is(err, jail.ErrPointNotFound):
		return "point_not_found"
	case errors.Is(err, jail.ErrNoPlacement):
		return "no_placement"
	case errors.Is(err, jail.ErrRootFacility):
		return "root_facility"
	case errors.Is(err, jail.ErrInvalidState):
		return "invalid_state"
	default:
		return "internal_error"
	}
}
