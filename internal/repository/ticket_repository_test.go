package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andikarp/bus-ticketing/internal/database"
	"github.com/andikarp/bus-ticketing/internal/model"
	"github.com/andikarp/bus-ticketing/internal/order"
)

// seedRoute inserts a test route and returns its id.
func seedRoute(t *testing.T, routes *RouteRepo, labels []string) uint64 {
	t.Helper()
	id, err := routes.Create(context.Background(), &model.Route{
		Origin:      "Jakarta",
		Destination: "Bandung",
		DepartsAt:   time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second),
		Fare:        150000,
		SeatLabels:  labels,
	})
	require.NoError(t, err)
	return id
}

// pendingGroup builds the rows of one checkout: shared group id and
// deadline, first seat flagged master with the order total.
func pendingGroup(userID, routeID uint64, seats []string, deadline time.Time) []model.Ticket {
	groupID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Second)
	total := int64(150000) * int64(len(seats))
	group := make([]model.Ticket, 0, len(seats))
	for i, s := range seats {
		tk := model.Ticket{
			UserID: userID, RouteID: routeID, SeatLabel: s, Amount: 150000,
			Status: model.StatusPending, BookedAt: now,
			BatasPembayaran: &deadline, OrderGroupID: &groupID,
		}
		if i == 0 {
			tk.IsMasterTicket = true
			tk.OrderTotalAmount = &total
		}
		group = append(group, tk)
	}
	return group
}

func TestBookAndReconcileGroup(t *testing.T) {
	// Integration test - requires a MySQL instance with the schema loaded.
	t.Skip("Integration test - requires database")

	db, err := database.Open("app", "secret", "localhost", "3306", "bus_ticketing_test")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	repo := NewTicketRepo(db)
	routeID := seedRoute(t, NewRouteRepo(db), []string{"A1", "A2", "A3", "A4"})

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	deadline := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)
	group := pendingGroup(1, routeID, []string{"A1", "A2", "A3"}, deadline)
	require.NoError(t, repo.CreateGroupTx(ctx, tx, group))
	for _, tk := range group {
		assert.NotZero(t, tk.ID)
	}

	taken, err := repo.TakenSeatLabelsTx(ctx, tx, routeID, false)
	require.NoError(t, err)
	assert.Contains(t, taken, "A1")
	assert.Contains(t, taken, "A2")
	assert.Contains(t, taken, "A3")
	require.NoError(t, tx.Commit())

	// Settle the whole group at once.
	tx, err = db.BeginTx(ctx, nil)
	require.NoError(t, err)
	loaded, err := repo.GetGroupForUpdateTx(ctx, tx, group[0].ID)
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	ref := "pay-" + *loaded[0].OrderGroupID
	require.NoError(t, repo.UpdateGroupStatusTx(ctx, tx, loaded, model.StatusConfirmed, &ref))
	require.NoError(t, tx.Commit())

	// A second settlement attempt fails the status guard.
	tx, err = db.BeginTx(ctx, nil)
	require.NoError(t, err)
	loaded[0].Status = model.StatusPending // stale snapshot
	err = repo.UpdateGroupStatusTx(ctx, tx, loaded, model.StatusConfirmed, &ref)
	assert.ErrorIs(t, err, ErrConflict)
	_ = tx.Rollback()
}

func TestOverlappingBookingsConflict(t *testing.T) {
	// Two checkouts race for overlapping seats: exactly one succeeds and
	// the other fails the whole batch with ErrSeatConflict.
	t.Skip("Integration test - requires database")

	db, err := database.Open("app", "secret", "localhost", "3306", "bus_ticketing_test")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	repo := NewTicketRepo(db)
	routeID := seedRoute(t, NewRouteRepo(db), []string{"A1", "A2", "A3", "A4"})
	deadline := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)

	// First booking takes A1+A2 and commits.
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = repo.ExpireOverdueByRouteTx(ctx, tx, routeID)
	require.NoError(t, err)
	taken, err := repo.TakenSeatLabelsTx(ctx, tx, routeID, true)
	require.NoError(t, err)
	require.Empty(t, order.Conflicts([]string{"A1", "A2"}, taken))
	require.NoError(t, repo.CreateGroupTx(ctx, tx,
		pendingGroup(1, routeID, []string{"A1", "A2"}, deadline)))
	require.NoError(t, tx.Commit())

	// Second booking wants A2+A3; the locked availability re-check finds
	// A2 held, so nothing is inserted.
	tx, err = db.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = repo.ExpireOverdueByRouteTx(ctx, tx, routeID)
	require.NoError(t, err)
	taken, err = repo.TakenSeatLabelsTx(ctx, tx, routeID, true)
	require.NoError(t, err)

	var bookErr error
	conflicts := order.Conflicts([]string{"A2", "A3"}, taken)
	if len(conflicts) > 0 {
		bookErr = ErrSeatConflict
	} else {
		bookErr = repo.CreateGroupTx(ctx, tx,
			pendingGroup(2, routeID, []string{"A2", "A3"}, deadline))
	}
	_ = tx.Rollback()

	assert.ErrorIs(t, bookErr, ErrSeatConflict)
	assert.Equal(t, []string{"A2"}, conflicts)

	// A2 still belongs to the first booking only.
	tx, err = db.BeginTx(ctx, nil)
	require.NoError(t, err)
	taken, err = repo.TakenSeatLabelsTx(ctx, tx, routeID, false)
	require.NoError(t, err)
	assert.Contains(t, taken, "A1")
	assert.Contains(t, taken, "A2")
	assert.NotContains(t, taken, "A3")
	_ = tx.Rollback()
}

func TestExpireOverdue(t *testing.T) {
	t.Skip("Integration test - requires database")

	db, err := database.Open("app", "secret", "localhost", "3306", "bus_ticketing_test")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	repo := NewTicketRepo(db)
	routeID := seedRoute(t, NewRouteRepo(db), []string{"B1", "B2"})

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	deadline := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, repo.CreateGroupTx(ctx, tx,
		pendingGroup(1, routeID, []string{"B1"}, deadline)))

	n, err := repo.ExpireOverdueByRouteTx(ctx, tx, routeID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	// The freed seat no longer counts as taken.
	taken, err := repo.TakenSeatLabelsTx(ctx, tx, routeID, false)
	require.NoError(t, err)
	assert.NotContains(t, taken, "B1")

	// A second sweep finds nothing left to expire for this group.
	n, err = repo.ExpireOverdueByRouteTx(ctx, tx, routeID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	require.NoError(t, tx.Commit())
}
