package dcf77

import (
	"testing"
	"time"
)

func TestBuildTime(t *testing.T) {
	local := time.Date(2026, 10, 18, 14, 37, 0, 0, time.UTC).Unix()

	tests := []struct {
		name    string
		z1      bool
		wantUTC int64
	}{
		{"CEST", true, local - 7200},
		{"CET", false, local - 3600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildTime(testFields, tt.z1)
			if got.Local != local {
				t.Errorf("Local: got %d, want %d", got.Local, local)
			}
			if got.Regional != local-3600 {
				t.Errorf("Regional: got %d, want %d", got.Regional, local-3600)
			}
			if got.UTC != tt.wantUTC {
				t.Errorf("UTC: got %d, want %d", got.UTC, tt.wantUTC)
			}
		})
	}
}

func TestBuildTimeYearBase(t *testing.T) {
	got := BuildTime(Fields{Year: 2000, Month: 1, Day: 1}, false)
	want := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	if got.Local != want {
		t.Errorf("Local: got %d, want %d", got.Local, want)
	}
	if !got.Time().Equal(time.Date(1999, 12, 31, 23, 0, 0, 0, time.UTC)) {
		t.Errorf("Time(): got %v", got.Time())
	}
}

func TestTimeReferenceIsZero(t *testing.T) {
	if !(TimeReference{}).IsZero() {
		t.Error("zero value should report IsZero")
	}
	if (TimeReference{UTC: 1}).IsZero() {
		t.Error("non-zero value should not report IsZero")
	}
}

func TestFlagsZone(t *testing.T) {
	if got := (Flags{Z1: true}).Zone(); got != "CEST" {
		t.Errorf("Z1: got %s, want CEST", got)
	}
	if got := (Flags{Z2: true}).Zone(); got != "CET" {
		t.Errorf("Z2: got %s, want CET", got)
	}
}
