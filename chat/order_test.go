package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/smartcareconnect/smartcare-api/models"
)

func texts(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func TestOrder(t *testing.T) {
	msgs := []models.Message{
		message("a1", "third", stamp(3*time.Second)),
		message("a1", "pending-1", nil),
		message("a1", "first", stamp(1*time.Second)),
		message("a1", "pending-2", nil),
		message("a1", "second", stamp(2*time.Second)),
	}

	got := Order(msgs)

	assert.Equal(t, []string{"first", "second", "third", "pending-1", "pending-2"}, texts(got))
	assert.Equal(t, "third", msgs[0].Text, "input must not be reordered")
}

func TestOrderEqualTimestampsKeepArrival(t *testing.T) {
	msgs := []models.Message{
		message("a1", "b", stamp(5*time.Second)),
		message("a1", "a", stamp(5*time.Second)),
		message("a1", "c", stamp(4*time.Second)),
	}
	assert.Equal(t, []string{"c", "b", "a"}, texts(Order(msgs)))
}

func TestOrderEmpty(t *testing.T) {
	assert.Empty(t, Order(nil))
}
