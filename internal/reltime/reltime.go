// Package reltime renders timestamps as short "N units ago" phrases for chat replies.
package reltime

import (
	"fmt"
	"time"
)

const (
	day   = 24 * time.Hour
	month = 30 * day
	year  = 365 * day
)

// Since describes how long before now t happened. Each bucket is inclusive
// at its upper edge, so exactly 60 seconds is still "60 seconds ago".
// Timestamps after now are treated as zero elapsed time.
func Since(t, now time.Time) string {
	elapsed := now.Sub(t)
	if elapsed < 0 {
		elapsed = 0
	}

	days := int(elapsed / day)
	switch {
	case elapsed <= time.Minute:
		return fmt.Sprintf("%d seconds ago", int(elapsed/time.Second))
	case elapsed <= time.Hour:
		if n := int(elapsed / time.Minute); n > 1 {
			return fmt.Sprintf("about %d minutes ago", n)
		}
		return "about a minute ago"
	case elapsed <= day:
		if n := int(elapsed / time.Hour); n > 1 {
			return fmt.Sprintf("about %d hours ago", n)
		}
		return "about an hour ago"
	case elapsed <= month:
		if days > 1 {
			return fmt.Sprintf("about %d days ago", days)
		}
		return "yesterday"
	case elapsed <= year:
		if days > 30 {
			return fmt.Sprintf("about %d months ago", days/30)
		}
		return "about a month ago"
	default:
		if days > 365 {
			return fmt.Sprintf("about %d years ago", days/365)
		}
		return "about a year ago"
	}
}
