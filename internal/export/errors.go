package export

// errors.go defines the user-visible failure modes of an export and maps
// them to friendly messages with short support codes.
//
// Error codes:
//
//	FLT001  - no search filters supplied
//	SRCH001 - zero companies matched
//	SRCH002 - advanced search unsupported by the registry
//	CFG001  - registry credential not configured
//	GEN001  - unexpected internal failure

import (
	"errors"

	"github.com/dgrantham/chexport/internal/registry"
)

var (
	// ErrNoFilters is returned when the filter set is completely empty.
	ErrNoFilters = errors.New("no search filters supplied")

	// ErrNoCompanies is returned when the search matched nothing.
	ErrNoCompanies = errors.New("no companies matched the search criteria")
)

// UserMessage is a user-friendly rendering of an error, with a short code
// users can quote to support staff.
type UserMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// MapError converts an export error into a UserMessage.
func MapError(err error) UserMessage {
	switch {
	case errors.Is(err, ErrNoFilters):
		return UserMessage{
			Code:    "FLT001",
			Message: "Please provide at least one search filter",
			Action:  "Fill in at least one search field and try again",
		}
	case errors.Is(err, ErrNoCompanies):
		return UserMessage{
			Code:    "SRCH001",
			Message: "No companies found matching your criteria",
			Action:  "Broaden the filters or check the spelling of the company name",
		}
	case errors.Is(err, registry.ErrAdvancedUnsupported):
		return UserMessage{
			Code:    "SRCH002",
			Message: "The registry does not support advanced search",
			Action:  "Search by company name only, or enable name-search fallback",
		}
	case errors.Is(err, registry.ErrNoAPIKey):
		return UserMessage{
			Code:    "CFG001",
			Message: "The registry API key is not configured",
			Action:  "Set REGISTRY_API_KEY and restart the service",
		}
	default:
		return UserMessage{
			Code:    "GEN001",
			Message: "An unexpected error occurred",
			Action:  "Try again; quote the error code to support if it persists",
		}
	}
}
