package domain

import "fmt"

// Message represents a complete DNS message: one header, an ordered
// question section, and an ordered answer section. Authority and additional
// sections exist only through the header counts; this server never carries
// their records between decode and encode.
//
// A Message is a fresh value tree per request: built once from raw bytes or
// from application state, encoded once, then discarded.
type Message struct {
	Header    Header
	Questions []Question
	Answers   []ResourceRecord
}

// NewQuery constructs a single-question query message for an upstream
// exchange: QDCount=1, all other counts zero, and RD as the only set flag.
func NewQuery(id uint16, q Question) Message {
	return Message{
		Header: Header{
			ID:      id,
			Flags:   Flags{RD: true},
			QDCount: 1,
		},
		Questions: []Question{q},
	}
}

// NewResponse constructs a response message for the given request: the
// request's ID, OPCODE, and RD are preserved, QR is set, and the request's
// questions are echoed in their original order. RCode is NOTIMP for any
// nonzero opcode, NOERROR otherwise; answers are appended by the caller
// followed by SyncCounts.
func NewResponse(req Message) Message {
	rcode := RCodeNoError
	if req.Header.Flags.Opcode != 0 {
		rcode = RCodeNotImplemented
	}
	resp := Message{
		Header: Header{
			ID: req.Header.ID,
			Flags: Flags{
				QR:     true,
				Opcode: req.Header.Flags.Opcode,
				RD:     req.Header.Flags.RD,
				RCode:  rcode,
			},
		},
		Questions: req.Questions,
	}
	resp.SyncCounts()
	return resp
}

// SyncCounts sets the header count fields from the actual section lengths,
// establishing the invariant EncodeMessage relies on. Authority and
// additional counts are always zero because those sections are never
// materialized.
func (m *Message) SyncCounts() {
	m.Header.QDCount = uint16(len(m.Questions))
	m.Header.ANCount = uint16(len(m.Answers))
	m.Header.NSCount = 0
	m.Header.ARCount = 0
}

// Validate checks the count invariant and every section entry.
func (m Message) Validate() error {
	if err := m.Header.Validate(len(m.Questions), len(m.Answers)); err != nil {
		return err
	}
	for i, q := range m.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("invalid question at index %d: %w", i, err)
		}
	}
	for i, rr := range m.Answers {
		if err := rr.Validate(); err != nil {
			return fmt.Errorf("invalid answer record at index %d: %w", i, err)
		}
	}
	return nil
}
