package wire

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/haukened/fw-dns/internal/dns/common/utils"
)

const (
	// maxNameOctets is the RFC 1035 limit on the wire form of a name.
	maxNameOctets = 255

	// maxLabelOctets is the RFC 1035 limit on a single label.
	maxLabelOctets = 63

	// maxPointerHops bounds compression pointer chains. Pointers must point
	// strictly backward, so a chain longer than this is hostile input, not
	// a legitimate name.
	maxPointerHops = 16
)

// decodeName reads a domain name from the cursor, following RFC 1035
// compression pointers. The cursor advances past the name's in-place bytes
// only: once the first pointer is taken, later jumps do not move it.
//
// Pointers must reference an offset strictly below their own position.
// Combined with the hop cap this makes pointer traversal terminate on any
// input, including cyclic or forward-referencing chains.
func decodeName(c *cursor) (string, error) {
	var labels []string
	pos := c.pos
	next := -1 // cursor position to restore; set when the first pointer is taken
	hops := 0
	octets := 0 // running wire-form length of the decoded name

	for {
		if pos >= len(c.data) {
			return "", fmt.Errorf("%w: name runs past end of buffer at offset %d", ErrTruncatedMessage, pos)
		}
		b := int(c.data[pos])
		switch {
		case b == 0:
			// end of name
			pos++
			if next == -1 {
				next = pos
			}
			c.pos = next
			return strings.Join(labels, "."), nil

		case b&0xC0 == 0xC0:
			// compression pointer: 14-bit absolute offset
			if pos+1 >= len(c.data) {
				return "", fmt.Errorf("%w: compression pointer cut off at offset %d", ErrTruncatedMessage, pos)
			}
			target := (b&0x3F)<<8 | int(c.data[pos+1])
			if target >= pos {
				return "", fmt.Errorf("%w: pointer at offset %d references non-prior offset %d", ErrMalformedName, pos, target)
			}
			hops++
			if hops > maxPointerHops {
				return "", fmt.Errorf("%w: pointer chain exceeds %d hops", ErrMalformedName, maxPointerHops)
			}
			if next == -1 {
				next = pos + 2
			}
			pos = target

		case b&0xC0 != 0:
			// 0x40 and 0x80 prefixes are reserved, never valid lengths
			return "", fmt.Errorf("%w: reserved label length %#02x at offset %d", ErrMalformedName, b, pos)

		default:
			// literal label of b bytes
			if pos+1+b > len(c.data) {
				return "", fmt.Errorf("%w: label of %d bytes at offset %d runs past end of buffer", ErrTruncatedMessage, b, pos)
			}
			octets += b + 1
			if octets > maxNameOctets {
				return "", fmt.Errorf("%w: name exceeds %d octets", ErrMalformedName, maxNameOctets)
			}
			labels = append(labels, string(c.data[pos+1:pos+1+b]))
			pos += 1 + b
		}
	}
}

// encodeName appends the wire form of name to buf: length-prefixed labels
// terminated by a zero byte. Names are always written fully expanded;
// compression is never applied on encode.
func encodeName(buf *bytes.Buffer, name string) error {
	name = utils.CanonicalDNSName(name)
	if name == "" {
		// root name is a lone terminator
		buf.WriteByte(0)
		return nil
	}
	if len(name)+2 > maxNameOctets {
		return fmt.Errorf("%w: %q encodes to more than %d octets", ErrNameTooLong, name, maxNameOctets)
	}
	for _, label := range strings.Split(name, ".") {
		if len(label) == 0 {
			return fmt.Errorf("%w: empty label in %q", ErrMalformedName, name)
		}
		if len(label) > maxLabelOctets {
			return fmt.Errorf("%w: label %q exceeds %d octets", ErrNameTooLong, label, maxLabelOctets)
		}
		buf.WriteByte(byte(len(label)))
		buf.WriteString(label)
	}
	buf.WriteByte(0)
	return nil
}
