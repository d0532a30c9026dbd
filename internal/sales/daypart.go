package sales

import "time"

// Daypart buckets a sale time for downstream reporting. Not load-bearing
// for correctness.
func Daypart(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 11:
		return "morning"
	case h >= 11 && h < 14:
		return "midday"
	case h >= 14 && h < 17:
		return "afternoon"
	default:
		return "evening"
	}
}

// DayType tags a sale as weekday or weekend.
func DayType(t time.Time) string {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return "weekend"
	default:
		return "weekday"
	}
}
