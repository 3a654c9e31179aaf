package domain

// Flags holds the unpacked contents of the 16-bit DNS header flags field.
// Each field maps to a fixed bit range defined in RFC 1035 §4.1.1:
// QR=bit 15, OPCODE=bits 14-11, AA=bit 10, TC=bit 9, RD=bit 8, RA=bit 7,
// Z=bits 6-4 (reserved, must be zero), RCODE=bits 3-0.
type Flags struct {
	QR     bool  // Query/Response: false for query, true for response
	Opcode uint8 // Operation code: 0 for a standard query
	AA     bool  // Authoritative Answer
	TC     bool  // Truncation
	RD     bool  // Recursion Desired
	RA     bool  // Recursion Available
	Z      uint8 // Reserved, must be zero
	RCode  RCode // Response code
}

// FlagsFromUint16 unpacks a wire-format flags word into a Flags value.
func FlagsFromUint16(v uint16) Flags {
	return Flags{
		QR:     v&0x8000 != 0,
		Opcode: uint8(v >> 11 & 0x0F),
		AA:     v&0x0400 != 0,
		TC:     v&0x0200 != 0,
		RD:     v&0x0100 != 0,
		RA:     v&0x0080 != 0,
		Z:      uint8(v >> 4 & 0x07),
		RCode:  RCode(v & 0x0F),
	}
}

// Uint16 packs the Flags value back into its wire-format word.
// Only the low 4 bits of Opcode, 3 bits of Z, and 4 bits of RCode
// participate, so oversized values cannot bleed into adjacent fields.
func (f Flags) Uint16() uint16 {
	var v uint16
	if f.QR {
		v |= 0x8000
	}
	v |= uint16(f.Opcode&0x0F) << 11
	if f.AA {
		v |= 0x0400
	}
	if f.TC {
		v |= 0x0200
	}
	if f.RD {
		v |= 0x0100
	}
	if f.RA {
		v |= 0x0080
	}
	v |= uint16(f.Z&0x07) << 4
	v |= uint16(f.RCode) & 0x0F
	return v
}
