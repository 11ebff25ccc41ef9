package classifier

import "errors"

// Sentinel errors for a single classification attempt. They are logged and
// counted but never returned from Classify.
var (
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrClassifierTimeout     = errors.New("classifier request timeout")
	ErrUnexpectedStatus      = errors.New("classifier returned unexpected status")
	ErrMalformedResponse     = errors.New("classifier returned malformed response")
)
