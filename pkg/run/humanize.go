package run

import (
	"fmt"
	"strings"
	"time"
)

// humanizeDuration renders an elapsed duration for the completion
// message: sub-second as milliseconds, sub-minute as seconds with one
// decimal, longer runs as minutes and seconds.
func humanizeDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		s := fmt.Sprintf("%.1fs", d.Seconds())
		return strings.Replace(s, ".0s", "s", 1)
	default:
		m := int(d.Minutes())
		s := int(d.Seconds()) - m*60
		return fmt.Sprintf("%dm %ds", m, s)
	}
}
