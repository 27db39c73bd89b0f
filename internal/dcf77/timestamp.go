package dcf77

import "time"

const (
	cetOffset  = 3600 // CET is UTC+1
	cestOffset = 7200 // CEST is UTC+2
)

// BuildTime derives the local, regional and UTC timestamps for a decoded
// minute. z1 is the CEST flag. Seconds are always zero.
//
// Regional time is one hour behind the broadcast regardless of DST, so it
// tracks a UTC+0/UTC+1 zone that changes on the same dates as CET/CEST.
func BuildTime(f Fields, z1 bool) TimeReference {
	local := time.Date(f.Year, time.Month(f.Month), f.Day, f.Hour, f.Minute, 0, 0, time.UTC).Unix()
	utc := local - cetOffset
	if z1 {
		utc = local - cestOffset
	}
	return TimeReference{
		Local:    local,
		Regional: local - cetOffset,
		UTC:      utc,
	}
}
