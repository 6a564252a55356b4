package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andikarp/bus-ticketing/internal/model"
)

func groupOfThree() []model.Ticket {
	groupID := "a3a9e5a0-02fb-4c59-9a7e-2f6f6f1a9001"
	booked := time.Date(2025, 4, 12, 9, 0, 0, 0, time.UTC)
	deadline := booked.Add(2 * time.Hour)
	total := int64(450000)
	return []model.Ticket{
		{
			ID: 101, UserID: 7, RouteID: 3, SeatLabel: "A1",
			Amount: 150000, Status: model.StatusPending,
			BookedAt: booked, BatasPembayaran: &deadline,
			OrderGroupID: &groupID, IsMasterTicket: true,
			OrderTotalAmount: &total,
		},
		{
			ID: 102, UserID: 7, RouteID: 3, SeatLabel: "A3",
			Amount: 150000, Status: model.StatusPending,
			BookedAt: booked, BatasPembayaran: &deadline,
			OrderGroupID: &groupID,
		},
		{
			ID: 103, UserID: 7, RouteID: 3, SeatLabel: "A2",
			Amount: 150000, Status: model.StatusPending,
			BookedAt: booked, BatasPembayaran: &deadline,
			OrderGroupID: &groupID,
		},
	}
}

func TestAggregateThreeSeatOrder(t *testing.T) {
	ord, err := Aggregate(groupOfThree())
	require.NoError(t, err)

	assert.Equal(t, "ORD-101", ord.OrderRef)
	assert.Equal(t, uint64(101), ord.MasterTicketID)
	assert.Equal(t, 3, ord.TotalTickets)
	assert.Equal(t, []string{"A1", "A2", "A3"}, ord.Seats)
	assert.Equal(t, int64(450000), ord.TotalBayar)
	assert.Equal(t, model.StatusPending, ord.StatusTiket)
	require.NotNil(t, ord.BatasPembayaran)
}

func TestAggregateMasterStatusWins(t *testing.T) {
	group := groupOfThree()
	group[0].Status = model.StatusConfirmed
	ref := "pay-abc"
	group[0].PaymentRef = &ref

	ord, err := Aggregate(group)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, ord.StatusTiket)
	require.NotNil(t, ord.PaymentRef)
	assert.Equal(t, "pay-abc", *ord.PaymentRef)
}

func TestAggregateTotalFallsBackToSum(t *testing.T) {
	group := groupOfThree()
	group[0].OrderTotalAmount = nil

	ord, err := Aggregate(group)
	require.NoError(t, err)
	assert.Equal(t, int64(450000), ord.TotalBayar)
}

func TestAggregateNoMasterFallsBackToLowestID(t *testing.T) {
	group := groupOfThree()
	group[0].IsMasterTicket = false

	ord, err := Aggregate(group)
	require.NoError(t, err)
	assert.Equal(t, "ORD-101", ord.OrderRef)
	assert.Equal(t, uint64(101), ord.MasterTicketID)
}

func TestAggregateLegacySingleton(t *testing.T) {
	booked := time.Date(2025, 4, 12, 9, 0, 0, 0, time.UTC)
	ord, err := Aggregate([]model.Ticket{{
		ID: 55, UserID: 9, RouteID: 1, SeatLabel: "B4",
		Amount: 120000, Status: model.StatusConfirmed, BookedAt: booked,
	}})
	require.NoError(t, err)

	assert.Equal(t, "ORD-55", ord.OrderRef)
	assert.Nil(t, ord.OrderGroupID)
	assert.Equal(t, 1, ord.TotalTickets)
	assert.Equal(t, []string{"B4"}, ord.Seats)
	assert.Equal(t, int64(120000), ord.TotalBayar)
}

func TestAggregateEmptyGroup(t *testing.T) {
	_, err := Aggregate(nil)
	assert.ErrorIs(t, err, ErrEmptyGroup)
}

func TestParseOrderRef(t *testing.T) {
	id, err := ParseOrderRef("ORD-101")
	require.NoError(t, err)
	assert.Equal(t, uint64(101), id)

	for _, bad := range []string{"", "101", "ORD-", "ORD-0", "ORD-abc", "ord-101"} {
		_, err := ParseOrderRef(bad)
		assert.ErrorIs(t, err, ErrBadOrderRef, "ref %q", bad)
	}
}

func TestFormatOrderRefRoundTrip(t *testing.T) {
	id, err := ParseOrderRef(FormatOrderRef(9001))
	require.NoError(t, err)
	assert.Equal(t, uint64(9001), id)
}
