package scans

import "errors"

// Error taxonomy. Handlers map these to HTTP status codes; everything else
// is a 500.
var (
	// ErrInvalidInput covers malformed URLs and emails. Recoverable, 4xx.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotAuthorized is returned when any of the three permission flags
	// is missing, or the target is off-limits (blocked TLD, private IP).
	// No scan is performed and no history entry is written.
	ErrNotAuthorized = errors.New("scan not authorized")

	// ErrTargetUnreachable marks the whole-scan fatal case: the target
	// cannot be resolved or connected at all.
	ErrTargetUnreachable = errors.New("target unreachable")

	// ErrModelUnavailable means the classifier artifact could not be
	// loaded. Cold-start condition, not retried per request.
	ErrModelUnavailable = errors.New("phishing model unavailable")

	// ErrNotFound signals an unknown scan id. For progress queries this is
	// a valid absent result for the caller, not a server fault.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited is returned when a client exceeds the scan rate limit.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrAnalystDisabled is returned when AI analysis is requested but no
	// analyst backend is configured.
	ErrAnalystDisabled = errors.New("analyst disabled")
)
