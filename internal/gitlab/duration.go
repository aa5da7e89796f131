package gitlab

import (
	"fmt"
	"regexp"
	"strconv"
)

// FormatDuration formats whole seconds as a human-readable string like
// "1h 30m" or "45m". Sub-minute remainders are dropped, so 45 seconds
// renders as "0m". The stored value is never rounded; this is display only.
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatHours formats whole seconds as decimal hours with one digit,
// e.g. 5400 -> "1.5h".
func FormatHours(seconds int64) string {
	return strconv.FormatFloat(float64(seconds)/3600, 'f', 1, 64) + "h"
}

// durationRe matches the compact hour/minute form the remote service
// accepts for "add time": "1h30m", "2h", "45m".
var durationRe = regexp.MustCompile(`^(\d+h)?(\d+m)?$`)

// ValidateDuration checks that s is a compact duration like "1h30m".
// The accepted string is sent to the service verbatim and never
// reinterpreted client-side.
func ValidateDuration(s string) error {
	if s == "" || !durationRe.MatchString(s) {
		return fmt.Errorf("invalid duration %q: use a compact form like 1h30m, 2h or 45m", s)
	}
	return nil
}
