package domain

import "fmt"

// HeaderSize is the fixed size of a DNS message header in bytes.
const HeaderSize = 12

// Header represents the fixed 12-byte DNS message header.
// The four count fields declare how many entries each section carries;
// at encode time they must equal the actual section lengths.
type Header struct {
	ID      uint16
	Flags   Flags
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// Validate checks the header against the sections of the message it belongs to.
// It is used by callers that want the count invariant confirmed before encoding.
func (h Header) Validate(questions, answers int) error {
	if int(h.QDCount) != questions {
		return fmt.Errorf("QDCount %d does not match %d questions", h.QDCount, questions)
	}
	if int(h.ANCount) != answers {
		return fmt.Errorf("ANCount %d does not match %d answers", h.ANCount, answers)
	}
	if h.Flags.Z != 0 {
		return fmt.Errorf("reserved Z bits must be zero, got %d", h.Flags.Z)
	}
	return nil
}
