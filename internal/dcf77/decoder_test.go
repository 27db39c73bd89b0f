package dcf77

import (
	"errors"
	"testing"
)

func TestBCDRoundTrip(t *testing.T) {
	for hi := uint8(0); hi <= 9; hi++ {
		for lo := uint8(0); lo <= 9; lo++ {
			v := hi<<4 | lo
			if got := DecToBCD(BCDToDec(v)); got != v {
				t.Errorf("DecToBCD(BCDToDec(%#02x)) = %#02x", v, got)
			}
		}
	}
}

func TestBCDToDec(t *testing.T) {
	tests := []struct {
		bcd  uint8
		want uint8
	}{
		{0x00, 0},
		{0x09, 9},
		{0x10, 10},
		{0x37, 37},
		{0x59, 59},
		{0x99, 99},
	}
	for _, tt := range tests {
		if got := BCDToDec(tt.bcd); got != tt.want {
			t.Errorf("BCDToDec(%#02x) = %d, want %d", tt.bcd, got, tt.want)
		}
		if got := DecToBCD(tt.want); got != tt.bcd {
			t.Errorf("DecToBCD(%d) = %#02x, want %#02x", tt.want, got, tt.bcd)
		}
	}
}

func TestFrameBufferBounds(t *testing.T) {
	var b FrameBuffer
	if err := b.SetBit(FrameCapacity, 1); !errors.Is(err, ErrBitIndex) {
		t.Errorf("SetBit(%d): got %v, want ErrBitIndex", FrameCapacity, err)
	}
	if err := b.SetBit(-1, 1); !errors.Is(err, ErrBitIndex) {
		t.Errorf("SetBit(-1): got %v, want ErrBitIndex", err)
	}
	if err := b.SetBit(63, 1); err != nil {
		t.Fatalf("SetBit(63): %v", err)
	}
	if b.Bit(63) != 1 {
		t.Error("bit 63 should be set")
	}
	if b.Bit(64) != 0 || b.Bit(-5) != 0 {
		t.Error("out of range bits should read as 0")
	}
	b.SetBit(63, 0)
	if b.Bit(63) != 0 {
		t.Error("bit 63 should be cleared")
	}
}

func TestFrameBufferField(t *testing.T) {
	var b FrameBuffer
	// 0x37 LSB-first at offset 21
	b.SetBit(21, 1)
	b.SetBit(22, 1)
	b.SetBit(23, 1)
	b.SetBit(25, 1)
	b.SetBit(26, 1)
	if got := b.Field(21, 7); got != 0x37 {
		t.Errorf("Field(21, 7) = %#x, want 0x37", got)
	}
	if got := b.Ones(21, 7); got != 5 {
		t.Errorf("Ones(21, 7) = %d, want 5", got)
	}
	b.Clear()
	if got := b.Field(0, 16); got != 0 {
		t.Errorf("after Clear, Field(0, 16) = %#x", got)
	}
}

func TestFrameBufferFormat(t *testing.T) {
	var b FrameBuffer
	b.SetBit(0, 1)
	b.SetBit(20, 1)
	got := b.Format(22)
	want := "1 00000000000000 00000 1 0"
	if got != want {
		t.Errorf("Format(22) = %q, want %q", got, want)
	}
}

func TestDecodeReproducesFields(t *testing.T) {
	flags := Flags{R: true, A1: false, Z1: true, Z2: false, A2: true}
	b := Encode(testFields, flags, 0x2A5B)

	f := Decode(b)

	if f.ParityErrors != 0 {
		t.Fatalf("ParityErrors = %d, want 0", f.ParityErrors)
	}
	if f.Minute != 0x37 || f.Hour != 0x14 || f.Day != 0x18 || f.Weekday != 0x07 || f.Month != 0x10 || f.Year != 0x26 {
		t.Errorf("BCD fields: got %+v", f)
	}
	if f.Flags != flags {
		t.Errorf("Flags: got %+v, want %+v", f.Flags, flags)
	}
	if f.CivilWarning != 0x2A5B {
		t.Errorf("CivilWarning: got %#x, want 0x2a5b", f.CivilWarning)
	}
	if got := f.Fields(); got != testFields {
		t.Errorf("Fields: got %+v, want %+v", got, testFields)
	}
}

func TestDecodeSingleParityFlip(t *testing.T) {
	tests := []struct {
		name string
		bit  int
		want ParityMask
	}{
		{"minute", minuteParity, ParityMinute},
		{"hour", hourParity, ParityHour},
		{"date", dateParity, ParityDate},
		{"minute data", minuteOffset + 2, ParityMinute},
		{"year data", yearOffset + 7, ParityDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := flipBit(Encode(testFields, Flags{Z1: true}, 0), tt.bit)
			if got := Decode(b).ParityErrors; got != tt.want {
				t.Errorf("ParityErrors = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecodeParityMasksCombine(t *testing.T) {
	b := Encode(testFields, Flags{}, 0)
	b = flipBit(b, minuteParity)
	b = flipBit(b, dateParity)
	if got := CheckParity(b); got != ParityMinute|ParityDate {
		t.Errorf("CheckParity = %d, want %d", got, ParityMinute|ParityDate)
	}
}

func TestDecodeKeepsFieldsOnParityError(t *testing.T) {
	b := flipBit(Encode(testFields, Flags{}, 0), hourParity)
	f := Decode(b)
	if f.ParityErrors != ParityHour {
		t.Fatalf("ParityErrors = %d, want %d", f.ParityErrors, ParityHour)
	}
	if f.Hour != 0x14 || f.Minute != 0x37 {
		t.Errorf("fields should survive a parity error, got %+v", f)
	}
}

func TestEncodeMatchesHandBuiltFrame(t *testing.T) {
	flags := Flags{R: true, Z2: true}

	// Sunday 2026-10-18 14:37; parity bits worked out by hand.
	var want FrameBuffer
	setField(t, &want, civilWarningOffset, civilWarningWidth, 0xaa)
	setField(t, &want, civilWarningOffset+8, 2, 0x2)
	setField(t, &want, bitR, 1, 1)
	setField(t, &want, bitZ2, 1, 1)
	setField(t, &want, SyncBit, 1, 1)
	setField(t, &want, minuteOffset, minuteWidth, 0x37)
	setField(t, &want, minuteParity, 1, 1)
	setField(t, &want, hourOffset, hourWidth, 0x14)
	setField(t, &want, hourParity, 1, 0)
	setField(t, &want, dayOffset, dayWidth, 0x18)
	setField(t, &want, weekdayOffset, weekdayWidth, 0x7)
	setField(t, &want, monthOffset, monthWidth, 0x10)
	setField(t, &want, yearOffset, yearWidth, 0x26)
	setField(t, &want, dateParity, 1, 1)

	got := Encode(testFields, flags, 0x2aa)
	if got != want {
		t.Errorf("Encode:\ngot  %s\nwant %s", got.Format(FrameSeconds), want.Format(FrameSeconds))
	}
	if CheckParity(got) != 0 {
		t.Errorf("encoded frame fails parity: %d", CheckParity(got))
	}
	if Decode(got).Fields() != testFields {
		t.Errorf("round trip: got %+v", Decode(got).Fields())
	}
}
