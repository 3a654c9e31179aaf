package wire

import "errors"

// Sentinel errors returned by the codec. Callers match them with errors.Is;
// every failure is local to one datagram and must never take the process down.
var (
	// ErrTruncatedMessage indicates the buffer ended before a field was complete.
	ErrTruncatedMessage = errors.New("truncated message")

	// ErrMalformedName indicates an illegal label length byte, an
	// out-of-bounds or non-backward compression pointer, a pointer chain
	// exceeding the hop budget, or a decoded name over 255 octets.
	ErrMalformedName = errors.New("malformed name")

	// ErrNameTooLong indicates an encode-time name whose labels or total
	// wire form exceed the RFC 1035 limits.
	ErrNameTooLong = errors.New("name too long")

	// ErrMalformedMessage wraps the first sub-component failure while
	// decoding a full message.
	ErrMalformedMessage = errors.New("malformed message")
)
