package domain

import "errors"

// Failure kinds of the generation pipeline. Concrete errors wrap one of these
// so callers can branch with errors.Is.
var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrUpstreamRejected      = errors.New("upstream rejected request")
	ErrCredentialsExhausted  = errors.New("all credentials exhausted")
	ErrJobCreationIncomplete = errors.New("job creation incomplete")
	ErrPollingFailed         = errors.New("polling failed")
	ErrGenerationFailed      = errors.New("generation failed")
	ErrGenerationTimedOut    = errors.New("generation timed out")
)
