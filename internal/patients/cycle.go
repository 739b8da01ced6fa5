package patients

import "time"

// nextPeriodDate projects the next expected period date from the last one.
// A zero lastPeriod yields a zero time; cycle lengths outside a plausible
// range fall back to the 28-day default.
func nextPeriodDate(lastPeriod time.Time, cycleLength int) time.Time {
	if lastPeriod.IsZero() {
		return time.Time{}
	}
	if cycleLength < 15 || cycleLength > 60 {
		cycleLength = 28
	}
	return lastPeriod.AddDate(0, 0, cycleLength)
}

// gestationWeeks derives completed gestation weeks from the last ANC visit.
// Returns 0 when lastANC is zero or in the future.
func gestationWeeks(lastANC, now time.Time) int {
	if lastANC.IsZero() || now.Before(lastANC) {
		return 0
	}
	days := int(now.Sub(lastANC).Hours() / 24)
	return days / 7
}
