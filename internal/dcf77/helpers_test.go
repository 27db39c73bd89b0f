package dcf77

import "testing"

// testFields is the minute used by most tests: Sunday 2026-10-18 14:37 CEST.
var testFields = Fields{Year: 2026, Month: 10, Day: 18, Weekday: 7, Hour: 14, Minute: 37}

func setField(t *testing.T, b *FrameBuffer, offset, width int, v uint8) {
	t.Helper()
	for x := 0; x < width; x++ {
		if err := b.SetBit(offset+x, (v>>uint(x))&1); err != nil {
			t.Fatalf("set bit %d: %v", offset+x, err)
		}
	}
}

func flipBit(b FrameBuffer, i int) FrameBuffer {
	b.SetBit(i, b.Bit(i)^1)
	return b
}

// pulseWidth returns the raw carrier-off time that measures as 100ms or 200ms.
func pulseWidth(bit uint8) Millis {
	if bit == 1 {
		return 200 - ExtendPadding
	}
	return 100 - ExtendPadding
}

// feedMinute drives one minute of edges for seconds 0..58 starting at start,
// polling after every edge. It returns any minutes Poll reported.
func feedMinute(s *Sampler, a *Assembler, b FrameBuffer, start Millis) []Minute {
	var got []Minute
	poll := func() {
		if m, ok := a.Poll(); ok {
			got = append(got, m)
		}
	}
	for i := 0; i < FrameSeconds; i++ {
		t := start + Millis(i)*1000
		s.OnEdge(High, t)
		poll()
		s.OnEdge(Low, t+pulseWidth(b.Bit(i)))
		poll()
	}
	return got
}

func newPipeline() (*Sampler, *Assembler) {
	s := NewSampler(High, 0)
	return s, NewAssembler(s, nil)
}
