package model

import "time"

// Stats counts what the service did since it started.
type Stats struct {
	EmailsProcessed   int
	NotificationsSent int
	Errors            int
	StartedAt         time.Time
}

// Uptime returns the time elapsed since StartedAt, truncated to minutes.
func (s Stats) Uptime(now time.Time) time.Duration {
	return now.Sub(s.StartedAt).Truncate(time.Minute)
}
