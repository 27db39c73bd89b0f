package dcf77

// Encode builds a complete frame with correct parity for f. Values outside
// their BCD field width are truncated. It is the inverse of Decode and is
// used to synthesize receiver signals.
func Encode(f Fields, flags Flags, civilWarning uint16) FrameBuffer {
	var b FrameBuffer
	b.setField(civilWarningOffset, civilWarningWidth, civilWarning)
	for bit, on := range map[int]bool{bitR: flags.R, bitA1: flags.A1, bitZ1: flags.Z1, bitZ2: flags.Z2, bitA2: flags.A2} {
		if on {
			b.setField(bit, 1, 1)
		}
	}
	b.setField(SyncBit, 1, 1)

	b.setField(minuteOffset, minuteWidth, uint16(DecToBCD(uint8(f.Minute))))
	b.setField(hourOffset, hourWidth, uint16(DecToBCD(uint8(f.Hour))))
	b.setField(dayOffset, dayWidth, uint16(DecToBCD(uint8(f.Day))))
	b.setField(weekdayOffset, weekdayWidth, uint16(DecToBCD(uint8(f.Weekday))))
	b.setField(monthOffset, monthWidth, uint16(DecToBCD(uint8(f.Month))))
	b.setField(yearOffset, yearWidth, uint16(DecToBCD(uint8(f.Year%100))))

	for _, g := range parityGroups {
		b.setField(g.parity, 1, uint16(b.Ones(g.offset, g.width)&1))
	}
	return b
}
