package dcf77

import (
	"errors"
	"strings"
)

// FrameCapacity is the number of addressable bits in a FrameBuffer.
// Slots above 58 are only ever touched by the overrun guard.
const FrameCapacity = 64

// ErrBitIndex is returned when a bit index lies outside the buffer.
var ErrBitIndex = errors.New("dcf77: bit index out of range")

// FrameBuffer is a fixed-capacity bit array indexed by second-of-minute.
// The zero value is an empty buffer.
type FrameBuffer struct {
	word uint64
}

// Bit returns the bit at index i as 0 or 1. Indexes outside the buffer read as 0.
func (b FrameBuffer) Bit(i int) uint8 {
	if i < 0 || i >= FrameCapacity {
		return 0
	}
	return uint8(b.word>>uint(i)) & 1
}

// SetBit writes v (0 or non-zero) at index i.
func (b *FrameBuffer) SetBit(i int, v uint8) error {
	if i < 0 || i >= FrameCapacity {
		return ErrBitIndex
	}
	if v != 0 {
		b.word |= 1 << uint(i)
	} else {
		b.word &^= 1 << uint(i)
	}
	return nil
}

// Field reads width bits starting at offset, least significant bit first.
// Width is capped at 16.
func (b FrameBuffer) Field(offset, width int) uint16 {
	if width > 16 {
		width = 16
	}
	var v uint16
	for x := 0; x < width; x++ {
		v |= uint16(b.Bit(offset+x)) << uint(x)
	}
	return v
}

// setField writes the low width bits of v at offset, least significant bit
// first. Bits outside the buffer are ignored.
func (b *FrameBuffer) setField(offset, width int, v uint16) {
	for x := 0; x < width; x++ {
		i := offset + x
		if i < 0 || i >= FrameCapacity {
			continue
		}
		if v>>uint(x)&1 != 0 {
			b.word |= 1 << uint(i)
		} else {
			b.word &^= 1 << uint(i)
		}
	}
}

// Ones counts the set bits in [offset, offset+width).
func (b FrameBuffer) Ones(offset, width int) int {
	n := 0
	for x := 0; x < width; x++ {
		n += int(b.Bit(offset + x))
	}
	return n
}

// Clear zeroes every bit.
func (b *FrameBuffer) Clear() {
	b.word = 0
}

// groupStarts are the indexes preceded by a space in Format output:
// civil warning, flags, sync, minute, parity, hour, parity, day, weekday,
// month, year, parity.
var groupStarts = map[int]bool{
	1: true, 15: true, 20: true, 21: true, 28: true, 29: true, 35: true,
	36: true, 42: true, 45: true, 50: true, 58: true,
}

// Format renders the first n bits as digits grouped by field.
func (b FrameBuffer) Format(n int) string {
	if n > FrameCapacity {
		n = FrameCapacity
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if groupStarts[i] {
			sb.WriteByte(' ')
		}
		sb.WriteByte('0' + b.Bit(i))
	}
	return sb.String()
}
