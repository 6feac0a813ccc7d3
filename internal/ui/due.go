package ui

import "time"

// FormatDue formats an epoch-millisecond due date in local time.
func FormatDue(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
