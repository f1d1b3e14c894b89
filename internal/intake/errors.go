package intake

import (
	"errors"
	"fmt"
)

// Sentinel strings are sent to HTTP clients verbatim; keep their wording and
// capitalization.

// Client-caused failures. Their messages are safe to show to the caller.
var (
	ErrEnrollmentRequired = errors.New("Enrollment number required")
	ErrInvalidEnrollment  = errors.New("Invalid enrollment (allowed: letters, digits, underscore, hyphen)")
	ErrUnsupportedType    = errors.New("Only PNG/JPG/JPEG allowed")
	ErrFileTooLarge       = errors.New("File too large (max 5MB)")
	ErrLimitReached       = errors.New("Maximum 10 images per student")
)

// Server-side failures. The wrapped cause is for logs only.
var (
	ErrReadFailure    = errors.New("Failed to read uploaded file")
	ErrSaveFailure    = errors.New("Failed to save file")
	ErrStorageFailure = errors.New("Database error")
)

var (
	clientErrors = []error{ErrEnrollmentRequired, ErrInvalidEnrollment, ErrUnsupportedType, ErrFileTooLarge, ErrLimitReached}
	serverErrors = []error{ErrReadFailure, ErrSaveFailure, ErrStorageFailure}
)

var outcomes = map[error]string{
	ErrEnrollmentRequired: "enrollment_required",
	ErrInvalidEnrollment:  "invalid_enrollment",
	ErrUnsupportedType:    "unsupported_type",
	ErrFileTooLarge:       "file_too_large",
	ErrLimitReached:       "limit_reached",
	ErrReadFailure:        "read_failure",
	ErrSaveFailure:        "save_failure",
	ErrStorageFailure:     "storage_failure",
}

func fail(kind, cause error) error {
	return fmt.Errorf("%w: %w", kind, cause)
}

// Classify returns the sentinel describing err and whether the caller caused it.
// Unknown errors classify as ErrStorageFailure on the server side.
func Classify(err error) (public error, client bool) {
	for _, e := range clientErrors {
		if errors.Is(err, e) {
			return e, true
		}
	}
	for _, e := range serverErrors {
		if errors.Is(err, e) {
			return e, false
		}
	}
	return ErrStorageFailure, false
}

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	_, client := Classify(err)
	return client
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	public, _ := Classify(err)
	return outcomes[public]
}
