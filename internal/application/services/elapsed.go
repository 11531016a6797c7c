package services

import (
	"fmt"
	"time"
)

// ComputeElapsed renders how long ago createdAt was, relative to now.
// A createdAt in the future is treated as just now.
func ComputeElapsed(createdAt, now time.Time) string {
	d := now.Sub(createdAt)

	switch {
	case d < time.Minute:
		return "Just now"
	case d < 2*time.Minute:
		return "1 minute ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d/time.Minute))
	case d < 2*time.Hour:
		return "1 hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d/time.Hour))
	default:
		return "More than a day ago"
	}
}
