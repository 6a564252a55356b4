package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andikarp/bus-ticketing/internal/database"
	"github.com/andikarp/bus-ticketing/internal/gateway"
	"github.com/andikarp/bus-ticketing/internal/model"
	"github.com/andikarp/bus-ticketing/internal/order"
	"github.com/andikarp/bus-ticketing/internal/repository"
)

func TestPollStatusRejectsForeignOrder(t *testing.T) {
	// Integration test - requires a MySQL instance with the schema loaded.
	t.Skip("Integration test - requires database")

	db, err := database.Open("app", "secret", "localhost", "3306", "bus_ticketing_test")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	tickets := repository.NewTicketRepo(db)

	// One pending single-ticket order owned by user 1.
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	groupID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Second)
	deadline := now.Add(2 * time.Hour)
	total := int64(150000)
	group := []model.Ticket{
		{UserID: 1, RouteID: 1, SeatLabel: "A1", Amount: 150000, Status: model.StatusPending,
			BookedAt: now, BatasPembayaran: &deadline, OrderGroupID: &groupID,
			IsMasterTicket: true, OrderTotalAmount: &total},
	}
	require.NoError(t, tickets.CreateGroupTx(ctx, tx, group))
	require.NoError(t, tx.Commit())
	ref := order.FormatOrderRef(group[0].ID)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transaction_status":"settlement"}`))
	}))
	defer srv.Close()
	h := NewPaymentHandler(tickets, gateway.New(srv.URL, "sk-test"))

	// User 2 polls user 1's order: forbidden, and the order is untouched.
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("ref")
	c.SetParamValues(ref)
	c.Set("user_id", uint64(2))

	require.NoError(t, h.PollStatus(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	tx, err = db.BeginTx(ctx, nil)
	require.NoError(t, err)
	loaded, err := tickets.GetGroupForUpdateTx(ctx, tx, group[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, loaded[0].Status)
	_ = tx.Rollback()

	// The owner polling the same reference settles it.
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("ref")
	c.SetParamValues(ref)
	c.Set("user_id", uint64(1))

	require.NoError(t, h.PollStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
