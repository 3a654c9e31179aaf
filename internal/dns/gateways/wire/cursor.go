package wire

import (
	"encoding/binary"
	"fmt"
)

// cursor owns a message buffer and the current decode position, replacing
// the pattern of threading a bare offset through successive parse calls.
// All reads advance the position; none of them ever read past the end.
type cursor struct {
	data []byte
	pos  int
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

// need fails with ErrTruncatedMessage unless n bytes remain at the cursor.
func (c *cursor) need(n int) error {
	if c.pos+n > len(c.data) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrTruncatedMessage, n, c.pos, len(c.data)-c.pos)
	}
	return nil
}

func (c *cursor) uint16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) uint32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

// bytes returns a copy of the next n bytes, so decoded messages do not
// alias the receive buffer.
func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, c.data[c.pos:c.pos+n])
	c.pos += n
	return out, nil
}
