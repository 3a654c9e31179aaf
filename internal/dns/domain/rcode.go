package domain

import "fmt"

// RCode represents a DNS response code indicating the result of a query.
type RCode uint8

// Response codes used by this server. Only NOERROR and NOTIMP are ever
// produced locally; the rest pass through from upstream responses.
const (
	RCodeNoError        RCode = 0 // NOERROR - query completed successfully
	RCodeFormatError    RCode = 1 // FORMERR - query could not be interpreted
	RCodeServerFailure  RCode = 2 // SERVFAIL - server-side processing failed
	RCodeNameError      RCode = 3 // NXDOMAIN - name does not exist
	RCodeNotImplemented RCode = 4 // NOTIMP - opcode not supported
	RCodeRefused        RCode = 5 // REFUSED - policy refusal
)

// IsValid returns true if the RCode is within the RFC 1035 response code range.
func (r RCode) IsValid() bool {
	return r <= 10
}

// String returns the textual representation of the RCode.
func (r RCode) String() string {
	switch r {
	case RCodeNoError:
		return "NOERROR"
	case RCodeFormatError:
		return "FORMERR"
	case RCodeServerFailure:
		return "SERVFAIL"
	case RCodeNameError:
		return "NXDOMAIN"
	case RCodeNotImplemented:
		return "NOTIMP"
	case RCodeRefused:
		return "REFUSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(r))
	}
}
