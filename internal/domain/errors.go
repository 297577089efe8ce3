package domain

import "errors"

var (
	// ErrNoLocation means no usable coordinate or location code exists.
	ErrNoLocation = errors.New("no location")
	// ErrTransport covers connection failures, timeouts and non-2xx replies.
	ErrTransport = errors.New("transport error")
	// ErrTooLarge means the declared body exceeds the caller's cap.
	ErrTooLarge = errors.New("response too large")
	// ErrEmpty means the request succeeded but captured zero bytes.
	ErrEmpty = errors.New("empty response")
	// ErrParse means the body was malformed or exhausted the token budget.
	ErrParse = errors.New("parse error")
)

// Outcome labels used for metrics and logs.
const (
	OutcomeSuccess    = "success"
	OutcomeNoLocation = "no_location"
	OutcomeTransport  = "transport"
	OutcomeTooLarge   = "too_large"
	OutcomeEmpty      = "empty"
	OutcomeParse      = "parse_error"
	OutcomeSkipped    = "skipped"
)

// Classify maps an error from any stage of a cycle to an outcome label.
func Classify(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNoLocation):
		return OutcomeNoLocation
	case errors.Is(err, ErrTooLarge):
		return OutcomeTooLarge
	case errors.Is(err, ErrEmpty):
		return OutcomeEmpty
	case errors.Is(err, ErrParse):
		return OutcomeParse
	default:
		return OutcomeTransport
	}
}
