// Package wire implements the RFC 1035 wire format for DNS messages:
// the 12-byte header, question and resource record sections, and domain
// names with compression pointer decoding.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/haukened/fw-dns/internal/dns/common/log"
	"github.com/haukened/fw-dns/internal/dns/domain"
)

// MessageCodec converts between raw datagrams and domain messages.
type MessageCodec interface {
	// DecodeMessage parses a full DNS message. Authority and additional
	// records are walked to keep the cursor honest but not materialized.
	DecodeMessage(data []byte) (domain.Message, error)

	// EncodeMessage serializes a full DNS message. Header counts matching
	// the section lengths is a caller precondition (see Message.SyncCounts),
	// not a runtime check.
	EncodeMessage(msg domain.Message) ([]byte, error)
}

// udpCodec implements MessageCodec for standard DNS over UDP messages.
type udpCodec struct {
	logger log.Logger
}

// NewUDPCodec creates a codec that logs through the provided logger.
func NewUDPCodec(logger log.Logger) *udpCodec {
	return &udpCodec{logger: logger}
}

// decodeHeader reads the fixed 12-byte header: ID, FLAGS, and the four
// section counts, each big-endian.
func decodeHeader(c *cursor) (domain.Header, error) {
	if err := c.need(domain.HeaderSize); err != nil {
		return domain.Header{}, err
	}
	id, _ := c.uint16()
	flags, _ := c.uint16()
	qd, _ := c.uint16()
	an, _ := c.uint16()
	ns, _ := c.uint16()
	ar, _ := c.uint16()
	return domain.Header{
		ID:      id,
		Flags:   domain.FlagsFromUint16(flags),
		QDCount: qd,
		ANCount: an,
		NSCount: ns,
		ARCount: ar,
	}, nil
}

func encodeHeader(buf *bytes.Buffer, h domain.Header) {
	_ = binary.Write(buf, binary.BigEndian, h.ID)
	_ = binary.Write(buf, binary.BigEndian, h.Flags.Uint16())
	_ = binary.Write(buf, binary.BigEndian, h.QDCount)
	_ = binary.Write(buf, binary.BigEndian, h.ANCount)
	_ = binary.Write(buf, binary.BigEndian, h.NSCount)
	_ = binary.Write(buf, binary.BigEndian, h.ARCount)
}

func decodeQuestion(c *cursor) (domain.Question, error) {
	name, err := decodeName(c)
	if err != nil {
		return domain.Question{}, err
	}
	qtype, err := c.uint16()
	if err != nil {
		return domain.Question{}, err
	}
	qclass, err := c.uint16()
	if err != nil {
		return domain.Question{}, err
	}
	return domain.Question{
		Name:  name,
		Type:  domain.RRType(qtype),
		Class: domain.RRClass(qclass),
	}, nil
}

func encodeQuestion(buf *bytes.Buffer, q domain.Question) error {
	if err := encodeName(buf, q.Name); err != nil {
		return err
	}
	_ = binary.Write(buf, binary.BigEndian, uint16(q.Type))
	_ = binary.Write(buf, binary.BigEndian, uint16(q.Class))
	return nil
}

func decodeRecord(c *cursor) (domain.ResourceRecord, error) {
	name, err := decodeName(c)
	if err != nil {
		return domain.ResourceRecord{}, err
	}
	rrtype, err := c.uint16()
	if err != nil {
		return domain.ResourceRecord{}, err
	}
	rrclass, err := c.uint16()
	if err != nil {
		return domain.ResourceRecord{}, err
	}
	ttl, err := c.uint32()
	if err != nil {
		return domain.ResourceRecord{}, err
	}
	rdLen, err := c.uint16()
	if err != nil {
		return domain.ResourceRecord{}, err
	}
	rdata, err := c.bytes(int(rdLen))
	if err != nil {
		return domain.ResourceRecord{}, err
	}
	return domain.ResourceRecord{
		Name:  name,
		Type:  domain.RRType(rrtype),
		Class: domain.RRClass(rrclass),
		TTL:   ttl,
		Data:  rdata,
	}, nil
}

func encodeRecord(buf *bytes.Buffer, rr domain.ResourceRecord) error {
	if err := encodeName(buf, rr.Name); err != nil {
		return err
	}
	dataLen := len(rr.Data)
	if dataLen > 0xFFFF {
		return fmt.Errorf("resource record data too large: %d bytes (max 65535)", dataLen)
	}
	_ = binary.Write(buf, binary.BigEndian, uint16(rr.Type))
	_ = binary.Write(buf, binary.BigEndian, uint16(rr.Class))
	_ = binary.Write(buf, binary.BigEndian, rr.TTL)
	_ = binary.Write(buf, binary.BigEndian, uint16(dataLen))
	buf.Write(rr.Data)
	return nil
}

// DecodeMessage parses a DNS message: header, QDCount questions, ANCount
// answers. Authority and additional sections declared by NSCount/ARCount
// are parsed and dropped so the cursor stays correct for any trailing data.
func (c *udpCodec) DecodeMessage(data []byte) (domain.Message, error) {
	cur := newCursor(data)

	header, err := decodeHeader(cur)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: header: %w", ErrMalformedMessage, err)
	}

	questions := make([]domain.Question, 0, header.QDCount)
	for i := 0; i < int(header.QDCount); i++ {
		q, err := decodeQuestion(cur)
		if err != nil {
			return domain.Message{}, fmt.Errorf("%w: question %d: %w", ErrMalformedMessage, i, err)
		}
		questions = append(questions, q)
	}

	answers := make([]domain.ResourceRecord, 0, header.ANCount)
	for i := 0; i < int(header.ANCount); i++ {
		rr, err := decodeRecord(cur)
		if err != nil {
			return domain.Message{}, fmt.Errorf("%w: answer %d: %w", ErrMalformedMessage, i, err)
		}
		answers = append(answers, rr)
	}

	// authority and additional records are structurally present but never
	// carried by this server
	skipped := int(header.NSCount) + int(header.ARCount)
	for i := 0; i < skipped; i++ {
		if _, err := decodeRecord(cur); err != nil {
			return domain.Message{}, fmt.Errorf("%w: trailing record %d: %w", ErrMalformedMessage, i, err)
		}
	}
	if skipped > 0 {
		c.logger.Debug(map[string]any{
			"id":      header.ID,
			"dropped": skipped,
		}, "Dropped authority/additional records")
	}

	return domain.Message{
		Header:    header,
		Questions: questions,
		Answers:   answers,
	}, nil
}

// EncodeMessage serializes a DNS message: header, then questions, then
// answers, each in list order.
func (c *udpCodec) EncodeMessage(msg domain.Message) ([]byte, error) {
	var buf bytes.Buffer

	encodeHeader(&buf, msg.Header)
	for i, q := range msg.Questions {
		if err := encodeQuestion(&buf, q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}
	for i, rr := range msg.Answers {
		if err := encodeRecord(&buf, rr); err != nil {
			return nil, fmt.Errorf("answer %d: %w", i, err)
		}
	}

	c.logger.Debug(map[string]any{
		"id":   msg.Header.ID,
		"qd":   msg.Header.QDCount,
		"an":   msg.Header.ANCount,
		"size": buf.Len(),
	}, "Encoded DNS message")

	return buf.Bytes(), nil
}

var _ MessageCodec = &udpCodec{}
