package chat

import (
	"strconv"

	"github.com/smartcareconnect/smartcare-api/models"
)

// Viewer identifies who is looking at the unread indicator. Either field may
// be empty.
type Viewer struct {
	ID    string
	Email string
}

// CountUnread groups the viewer's unread messages by appointment id.
// Appointments with nothing unread are absent.
func CountUnread(msgs []models.Message, v Viewer) map[string]int {
	counts := map[string]int{}
	for _, m := range msgs {
		if m.IsUnreadFor(v.ID, v.Email) {
			counts[m.AppointmentID]++
		}
	}
	return counts
}

// TotalUnread sums a CountUnread result
func TotalUnread(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// BadgeText renders a count for a badge: nothing for zero, "99+" past 99
func BadgeText(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 99:
		return "99+"
	default:
		return strconv.Itoa(n)
	}
}
