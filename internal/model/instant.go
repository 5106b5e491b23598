package model

// Epoch-second bounds of a Java Instant. Stored TTLs use these as reserved
// markers and they are part of the wire protocol, so they must never change.
const (
	// InstantSecondMax marks a value that never expires
	InstantSecondMax int64 = 31556889864403199
	// InstantSecondMin marks a value that is unset
	InstantSecondMin int64 = -31557014167219200
)

// ClampInstant bounds seconds into [InstantSecondMin, InstantSecondMax].
func ClampInstant(seconds int64) int64 {
	return min(max(seconds, InstantSecondMin), InstantSecondMax)
}

// Durations used by the activity counters, in milliseconds
const (
	MinuteMillis int64 = 60 * 1000
	DayMillis          = MinuteMillis * 60 * 24
	WeekMillis         = DayMillis * 7
	MonthMillis        = DayMillis * 30
)
