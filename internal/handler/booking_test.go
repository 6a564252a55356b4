package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andikarp/bus-ticketing/internal/model"
)

func TestDedupeSeats(t *testing.T) {
	got := dedupeSeats([]string{" a2", "A1", "a1", "", "A3 ", "A2"})
	assert.Equal(t, []string{"A1", "A2", "A3"}, got)

	assert.Empty(t, dedupeSeats(nil))
	assert.Empty(t, dedupeSeats([]string{"", "  "}))
}

func TestAvailableSeats(t *testing.T) {
	layout := []string{"A1", "A2", "A3", "B1"}
	taken := map[string]struct{}{"A2": {}, "B1": {}}
	assert.Equal(t, []string{"A1", "A3"}, availableSeats(layout, taken))
}

func TestGroupTicketsPreservesOrder(t *testing.T) {
	g1, g2 := "group-1", "group-2"
	tickets := []model.Ticket{
		{ID: 10, OrderGroupID: &g2, SeatLabel: "C1"},
		{ID: 7, OrderGroupID: &g1, SeatLabel: "A1", IsMasterTicket: true},
		{ID: 11, OrderGroupID: &g2, SeatLabel: "C2", IsMasterTicket: true},
		{ID: 8, OrderGroupID: &g1, SeatLabel: "A2"},
		{ID: 3, SeatLabel: "B5"}, // legacy ungrouped row
	}

	groups := groupTickets(tickets)
	assert.Len(t, groups, 3)
	// First appearance wins: group-2 first, then group-1, then the legacy
	// singleton.
	assert.Len(t, groups[0], 2)
	assert.Equal(t, "C1", groups[0][0].SeatLabel)
	assert.Len(t, groups[1], 2)
	assert.Equal(t, "A1", groups[1][0].SeatLabel)
	assert.Len(t, groups[2], 1)
	assert.Equal(t, "B5", groups[2][0].SeatLabel)
}
