package crtp

import "errors"

// CRTP errors
var (
	// ErrMalformedFrame indicates a frame too short or a payload of the wrong size
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnknownPort indicates a header whose port nibble matches no known port
	ErrUnknownPort = errors.New("unknown port")

	// ErrInvalidField indicates a header or payload field outside its bit width
	ErrInvalidField = errors.New("field out of range")

	// ErrNoAcknowledgement indicates the peer did not answer a sent packet
	ErrNoAcknowledgement = errors.New("no acknowledgement")
)
