package dcf77

// BCDToDec converts a two-digit BCD byte to decimal.
func BCDToDec(v uint8) uint8 {
	return (v/16)*10 + v%16
}

// DecToBCD converts a decimal value in 0..99 to BCD.
func DecToBCD(v uint8) uint8 {
	return (v/10)*16 + v%10
}

// parityGroup describes one EVEN-parity guarded run of bits.
type parityGroup struct {
	offset int
	width  int
	parity int
	mask   ParityMask
}

var parityGroups = []parityGroup{
	{offset: minuteOffset, width: minuteWidth, parity: minuteParity, mask: ParityMinute},
	{offset: hourOffset, width: hourWidth, parity: hourParity, mask: ParityHour},
	{offset: dayOffset, width: dateParity - dayOffset, parity: dateParity, mask: ParityDate},
}

// CheckParity returns the mask of parity groups whose stored parity bit
// does not match the even parity of the guarded bits.
func CheckParity(b FrameBuffer) ParityMask {
	var mask ParityMask
	for _, g := range parityGroups {
		if uint8(b.Ones(g.offset, g.width)&1) != b.Bit(g.parity) {
			mask |= g.mask
		}
	}
	return mask
}

// Decode extracts the calendar fields, flags, civil warning bits and the
// parity mask from a complete frame. It never fails: a frame with parity
// errors is still fully decoded.
func Decode(b FrameBuffer) DecodedFrame {
	return DecodedFrame{
		Minute:  uint8(b.Field(minuteOffset, minuteWidth)),
		Hour:    uint8(b.Field(hourOffset, hourWidth)),
		Day:     uint8(b.Field(dayOffset, dayWidth)),
		Weekday: uint8(b.Field(weekdayOffset, weekdayWidth)),
		Month:   uint8(b.Field(monthOffset, monthWidth)),
		Year:    uint8(b.Field(yearOffset, yearWidth)),
		Flags: Flags{
			R:  b.Bit(bitR) == 1,
			A1: b.Bit(bitA1) == 1,
			Z1: b.Bit(bitZ1) == 1,
			Z2: b.Bit(bitZ2) == 1,
			A2: b.Bit(bitA2) == 1,
		},
		CivilWarning: b.Field(civilWarningOffset, civilWarningWidth),
		ParityErrors: CheckParity(b),
	}
}
