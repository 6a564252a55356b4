package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeadline(t *testing.T) {
	booked := time.Date(2025, 4, 12, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, booked.Add(2*time.Hour), Deadline(booked, 2*time.Hour))
}

func TestRemaining(t *testing.T) {
	deadline := time.Date(2025, 4, 12, 11, 0, 0, 0, time.UTC)

	assert.Equal(t, 30*time.Minute, Remaining(deadline, deadline.Add(-30*time.Minute)))
	assert.LessOrEqual(t, Remaining(deadline, deadline.Add(time.Minute)), time.Duration(0))
}

func TestExpired(t *testing.T) {
	deadline := time.Date(2025, 4, 12, 11, 0, 0, 0, time.UTC)

	assert.False(t, Expired(&deadline, deadline.Add(-time.Second)))
	// The deadline instant itself already counts as expired.
	assert.True(t, Expired(&deadline, deadline))
	assert.True(t, Expired(&deadline, deadline.Add(time.Second)))
	// Tickets without a deadline (confirmed, cancelled) never expire.
	assert.False(t, Expired(nil, deadline.Add(time.Hour)))
}
