// Package display renders project totals for people and for scripts.
package display

import "fmt"

// FormatDuration renders seconds the way reports show them: seconds alone
// below a minute, then minutes, then hours and minutes. Seconds are dropped
// once minutes are shown.
func FormatDuration(seconds uint64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	switch {
	case hours == 0 && minutes == 0:
		switch secs {
		case 0:
			return "None"
		case 1:
			return "1 second"
		default:
			return fmt.Sprintf("%d seconds", secs)
		}
	case hours == 0:
		return plural(minutes, "minute")
	default:
		return plural(hours, "hour") + " " + plural(minutes, "minute")
	}
}

func plural(n uint64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
