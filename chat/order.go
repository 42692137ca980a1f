package chat

import (
	"sort"

	"github.com/smartcareconnect/smartcare-api/models"
)

// Order returns msgs sorted by ascending timestamp. Messages the store has not
// stamped yet keep their relative order and go last. msgs is not modified.
func Order(msgs []models.Message) []models.Message {
	stamped := make([]models.Message, 0, len(msgs))
	var pending []models.Message
	for _, m := range msgs {
		if m.Pending() {
			pending = append(pending, m)
			continue
		}
		stamped = append(stamped, m)
	}
	sort.SliceStable(stamped, func(i, j int) bool {
		return *stamped[i].Timestamp < *stamped[j].Timestamp
	})
	return append(stamped, pending...)
}
