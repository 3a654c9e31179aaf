package domain

import "testing"

func TestFlagsBitPositions(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		want  uint16
	}{
		{
			name:  "all clear",
			flags: Flags{},
			want:  0x0000,
		},
		{
			name:  "QR occupies bit 15",
			flags: Flags{QR: true},
			want:  0x8000,
		},
		{
			name:  "opcode occupies bits 14-11",
			flags: Flags{Opcode: 0x0F},
			want:  0x7800,
		},
		{
			name:  "AA occupies bit 10",
			flags: Flags{AA: true},
			want:  0x0400,
		},
		{
			name:  "TC occupies bit 9",
			flags: Flags{TC: true},
			want:  0x0200,
		},
		{
			name:  "RD occupies bit 8",
			flags: Flags{RD: true},
			want:  0x0100,
		},
		{
			name:  "RA occupies bit 7",
			flags: Flags{RA: true},
			want:  0x0080,
		},
		{
			name:  "Z occupies bits 6-4",
			flags: Flags{Z: 0x07},
			want:  0x0070,
		},
		{
			name:  "rcode occupies bits 3-0",
			flags: Flags{RCode: 0x0F},
			want:  0x000F,
		},
		{
			name:  "standard query with recursion",
			flags: Flags{RD: true},
			want:  0x0100,
		},
		{
			name:  "standard response",
			flags: Flags{QR: true, RD: true, RA: true},
			want:  0x8180,
		},
		{
			name:  "not implemented response",
			flags: Flags{QR: true, Opcode: 5, RD: true, RCode: RCodeNotImplemented},
			want:  0xA904,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.flags.Uint16(); got != tt.want {
				t.Errorf("Uint16() = %#04x, want %#04x", got, tt.want)
			}
			if got := FlagsFromUint16(tt.want); got != tt.flags {
				t.Errorf("FlagsFromUint16(%#04x) = %+v, want %+v", tt.want, got, tt.flags)
			}
		})
	}
}

func TestFlagsUint16MasksOversizedFields(t *testing.T) {
	f := Flags{Opcode: 0xFF, Z: 0xFF, RCode: 0xFF}
	got := f.Uint16()
	want := uint16(0x7800 | 0x0070 | 0x000F)
	if got != want {
		t.Errorf("Uint16() = %#04x, want %#04x (oversized fields must not bleed into neighbors)", got, want)
	}
}

func TestFlagsRoundTrip(t *testing.T) {
	// every value of the flags word must survive unpack/pack unchanged
	for v := 0; v <= 0xFFFF; v++ {
		w := uint16(v)
		if got := FlagsFromUint16(w).Uint16(); got != w {
			t.Fatalf("round-trip of %#04x yielded %#04x", w, got)
		}
	}
}
