package imagegen

import "strings"

type keyFailure int

const (
	// keyFailureFatal ends the failover loop.
	keyFailureFatal keyFailure = iota
	keyFailureExhausted
	keyFailureInvalid
)

func (k keyFailure) String() string {
	switch k {
	case keyFailureExhausted:
		return "exhausted"
	case keyFailureInvalid:
		return "invalid"
	default:
		return "fatal"
	}
}

// Substrings of upstream error messages that mean "try the next key". The
// upstream offers no structured code, so matching is on the lower-cased text.
var (
	exhaustedKeyPatterns = []string{"balance", "insufficient"}
	invalidKeyPatterns   = []string{"unauthorized", "invalid"}
)

func classifyKeyFailure(message string) keyFailure {
	lower := strings.ToLower(message)
	for _, pattern := range exhaustedKeyPatterns {
		if strings.Contains(lower, pattern) {
			return keyFailureExhausted
		}
	}
	for _, pattern := range invalidKeyPatterns {
		if strings.Contains(lower, pattern) {
			return keyFailureInvalid
		}
	}
	return keyFailureFatal
}

func (k keyFailure) advance() bool {
	return k == keyFailureExhausted || k == keyFailureInvalid
}

var (
	successStatuses = map[string]struct{}{"completed": {}, "succeeded": {}, "done": {}, "success": {}}
	failureStatuses = map[string]struct{}{"failed": {}, "error": {}, "cancelled": {}}
)

func isSuccessStatus(status string) bool {
	_, ok := successStatuses[status]
	return ok
}

func isFailureStatus(status string) bool {
	_, ok := failureStatuses[status]
	return ok
}
