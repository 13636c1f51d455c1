package presence

import (
	"time"
)

// expectedPromptCount returns how many prompt slots a session should have
// planned after the elapsed wall-clock time: slot 0 at session start and one
// more per full cadence elapsed. The count only ever grows.
func expectedPromptCount(sessionStart, now time.Time, cadence time.Duration) int {
	elapsed := now.Sub(sessionStart)
	if elapsed < 0 {
		return 1
	}
	return int(elapsed/cadence) + 1
}

// slotTime returns when slot k is scheduled: sessionStart + k*cadence.
func slotTime(sessionStart time.Time, k int, cadence time.Duration) time.Time {
	return sessionStart.Add(time.Duration(k) * cadence)
}
