package flatten

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ComputeUptime returns the seconds elapsed between the startup timestamp
// (unix millis, as text) and now. It returns nil when the timestamp is
// missing, not a number, or later than now.
func ComputeUptime(startupMillis *string, now time.Time) *float64 {
	if startupMillis == nil {
		return nil
	}

	startup, err := strconv.ParseFloat(strings.TrimSpace(*startupMillis), 64)
	if err != nil || math.IsNaN(startup) || math.IsInf(startup, 0) {
		return nil
	}

	diff := float64(now.UnixMilli()) - startup
	if diff < 0 {
		return nil
	}

	seconds := diff / 1000
	return &seconds
}

func UptimeHours(seconds *float64) *float64 {
	if seconds == nil {
		return nil
	}
	hours := *seconds / 3600
	return &hours
}
