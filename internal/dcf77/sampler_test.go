package dcf77

import "testing"

func recv(t *testing.T, s *Sampler) PulseMeasurement {
	t.Helper()
	select {
	case m := <-s.pulses:
		return m
	default:
		t.Fatal("expected a queued measurement")
		return PulseMeasurement{}
	}
}

func TestSamplerPulseStart(t *testing.T) {
	s := NewSampler(High, 4)
	s.OnEdge(High, 12000)

	m := recv(t, s)
	if m.Ended {
		t.Error("pulse start should not be Ended")
	}
	if m.Start != 12000 {
		t.Errorf("Start: got %d, want 12000", m.Start)
	}
}

func TestSamplerDuration(t *testing.T) {
	s := NewSampler(High, 4)
	s.OnEdge(High, 5000)
	if !s.Indicator() {
		t.Error("indicator should be on during a pulse")
	}
	s.OnEdge(Low, 5095)
	if s.Indicator() {
		t.Error("indicator should be off after a pulse")
	}

	recv(t, s)
	m := recv(t, s)
	if !m.Ended {
		t.Fatal("expected pulse end")
	}
	if m.Start != 5000 || m.End != 5095 {
		t.Errorf("Start/End: got %d/%d, want 5000/5095", m.Start, m.End)
	}
	if m.Duration != 100 {
		t.Errorf("Duration: got %d, want 100 (95 + padding)", m.Duration)
	}
}

func TestSamplerCarrierOffLow(t *testing.T) {
	s := NewSampler(Low, 4)
	s.OnEdge(Low, 3000)
	s.OnEdge(High, 3195)

	if m := recv(t, s); m.Ended {
		t.Error("Low should start a pulse when carrier-off is Low")
	}
	if m := recv(t, s); m.Duration != 200 {
		t.Errorf("Duration: got %d, want 200", m.Duration)
	}
}

func TestSamplerDropsWhenFull(t *testing.T) {
	s := NewSampler(High, 1)
	s.OnEdge(High, 1000)
	s.OnEdge(Low, 1100)
	s.OnEdge(High, 2000)

	if got := s.Dropped(); got != 2 {
		t.Errorf("Dropped: got %d, want 2", got)
	}
	if m := recv(t, s); m.Start != 1000 || m.Ended {
		t.Errorf("first measurement should survive, got %+v", m)
	}
}
