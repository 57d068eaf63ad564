package normalize

import (
	"fmt"
	"time"
)

// FormatDuration renders d with its two most significant units, e.g. "3d 4h",
// "4h 12m", "12m". Anything under a minute is "<1m".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}

	days := int(d / (24 * time.Hour))
	hours := int(d%(24*time.Hour)) / int(time.Hour)
	minutes := int(d%time.Hour) / int(time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
