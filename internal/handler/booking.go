package handler

import (
	"context"
	"database/sql"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/andikarp/bus-ticketing/internal/config"
	"github.com/andikarp/bus-ticketing/internal/gateway"
	"github.com/andikarp/bus-ticketing/internal/metrics"
	"github.com/andikarp/bus-ticketing/internal/model"
	"github.com/andikarp/bus-ticketing/internal/order"
	"github.com/andikarp/bus-ticketing/internal/repository"
)

// BookingHandler creates orders from seat selections and serves the
// aggregated order views.  Every mutation runs inside one transaction so
// a seat can never be sold to two concurrent bookings, and every path
// that may observe an overdue pending ticket expires it first.
type BookingHandler struct {
	Cfg     config.Config
	Routes  *repository.RouteRepo
	Tickets *repository.TicketRepo
	Gateway *gateway.Client
}

func NewBookingHandler(cfg config.Config, routes *repository.RouteRepo, tickets *repository.TicketRepo, gw *gateway.Client) *BookingHandler {
	if routes == nil || tickets == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{Cfg: cfg, Routes: routes, Tickets: tickets, Gateway: gw}
}

// BookSeats handles POST /v1/routes/:id/book.  The request body carries a
// "seats" array of seat labels.  Availability is re-checked inside the
// transaction; if any requested seat was taken in the meantime, the whole
// batch fails with 409 and the response carries both the conflicting
// labels and the fresh availability so the client can retry correctly.
func (h *BookingHandler) BookSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	routeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || routeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route id"})
	}

	var body struct {
		Seats []string `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	seats := dedupeSeats(body.Seats)
	if len(seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats is required"})
	}

	ctx := c.Request().Context()
	tx, err := h.Tickets.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rt, err := h.Routes.GetByIDTx(ctx, tx, routeID)
	if err != nil {
		if err == repository.ErrRouteNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	// Reject labels that do not exist on this bus before touching tickets.
	layout := make(map[string]struct{}, len(rt.SeatLabels))
	for _, l := range rt.SeatLabels {
		layout[l] = struct{}{}
	}
	for _, s := range seats {
		if _, ok := layout[s]; !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown seat label", "seat": s})
		}
	}

	// Lazy expiry before checking availability: overdue holds are
	// cancelled rather than counted as taken.
	expired, err := h.Tickets.ExpireOverdueByRouteTx(ctx, tx, routeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release expired holds"})
	}
	if expired > 0 {
		metrics.TicketsExpiredTotal.Add(float64(expired))
	}

	taken, err := h.Tickets.TakenSeatLabelsTx(ctx, tx, routeID, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check availability"})
	}
	if conflicts := order.Conflicts(seats, taken); len(conflicts) > 0 {
		metrics.SeatConflictsTotal.Inc()
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       repository.ErrSeatConflict.Error(),
			"unavailable": conflicts,
			"available":   availableSeats(rt.SeatLabels, taken),
		})
	}

	// Build the group: shared id, shared booked_at, one master carrying
	// the order total, deadline attached before the rows are visible.
	now := time.Now().UTC().Truncate(time.Second)
	deadline := order.Deadline(now, h.Cfg.PaymentHold)
	groupID := uuid.NewString()
	total := rt.Fare * int64(len(seats))

	tickets := make([]model.Ticket, 0, len(seats))
	for i, s := range seats {
		t := model.Ticket{
			UserID:          userID,
			RouteID:         routeID,
			SeatLabel:       s,
			Amount:          rt.Fare,
			Status:          model.StatusPending,
			BookedAt:        now,
			BatasPembayaran: &deadline,
			OrderGroupID:    &groupID,
		}
		if i == 0 {
			t.IsMasterTicket = true
			t.OrderTotalAmount = &total
		}
		tickets = append(tickets, t)
	}
	if err := h.Tickets.CreateGroupTx(ctx, tx, tickets); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create tickets"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	metrics.OrdersCreatedTotal.Inc()

	ord, err := order.Aggregate(tickets)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to aggregate order"})
	}

	// Register the order with the gateway after commit.  If this call
	// fails the hold still stands with its deadline; the order stays
	// pending with payment null until it is paid or the hold lapses.
	var payment *gateway.Transaction
	if h.Gateway != nil {
		payment, err = h.Gateway.CreateTransaction(ctx, ord.OrderRef, ord.TotalBayar)
		if err != nil {
			zap.L().Warn("gateway transaction create failed",
				zap.String("order_ref", ord.OrderRef), zap.Error(err))
			payment = nil
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"order":             ord,
		"payment":           payment,
		"remaining_seconds": int(order.Remaining(deadline, time.Now().UTC()) / time.Second),
	})
}

// GetOrder handles GET /v1/orders/:ref.  It returns the aggregated order
// for its owner, expiring it first when the payment deadline has passed.
func (h *BookingHandler) GetOrder(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	masterID, err := order.ParseOrderRef(c.Param("ref"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}

	ctx := c.Request().Context()
	tx, err := h.Tickets.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	group, err := h.Tickets.GetGroupForUpdateTx(ctx, tx, masterID)
	if err != nil {
		if err == repository.ErrOrderNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load order"})
	}
	if group[0].UserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	group, expired, err := expireGroupIfOverdue(ctx, tx, h.Tickets, group)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to expire order"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	if expired {
		metrics.TicketsExpiredTotal.Add(float64(len(group)))
	}

	ord, err := order.Aggregate(group)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to aggregate order"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"order":             ord,
		"remaining_seconds": remainingSeconds(ord),
	})
}

// ListMyOrders handles GET /v1/my-orders: all of the caller's tickets
// folded into order views, newest first.  A single sweep statement
// settles any overdue holds before the rows are read.
func (h *BookingHandler) ListMyOrders(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	if expired, err := h.Tickets.ExpireOverdueAll(ctx); err != nil {
		// Listing still works; the stale rows just keep their pending look
		// until the next sweep succeeds.
		zap.L().Warn("expiry sweep failed", zap.Error(err))
	} else if expired > 0 {
		metrics.TicketsExpiredTotal.Add(float64(expired))
	}

	tickets, err := h.Tickets.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load tickets"})
	}

	orders := make([]model.Order, 0)
	for _, group := range groupTickets(tickets) {
		ord, aggErr := order.Aggregate(group)
		if aggErr != nil {
			continue
		}
		orders = append(orders, ord)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": orders})
}

// expireGroupIfOverdue cancels the group when it is pending past its
// deadline, returning the updated rows.  The group rows are already
// locked by the caller's transaction, so the guarded update cannot race.
func expireGroupIfOverdue(ctx context.Context, tx *sql.Tx, repo *repository.TicketRepo, group []model.Ticket) ([]model.Ticket, bool, error) {
	master := group[0]
	for _, t := range group {
		if t.IsMasterTicket {
			master = t
		}
	}
	if master.Status != model.StatusPending || !order.Expired(master.BatasPembayaran, time.Now().UTC()) {
		return group, false, nil
	}
	if err := repo.UpdateGroupStatusTx(ctx, tx, group, model.StatusCancelled, nil); err != nil {
		return nil, false, err
	}
	for i := range group {
		group[i].Status = model.StatusCancelled
		group[i].BatasPembayaran = nil
	}
	return group, true, nil
}

// groupTickets folds a ticket list into per-order slices, preserving the
// list's order of first appearance.  Ungrouped legacy rows each form a
// singleton order.
func groupTickets(tickets []model.Ticket) [][]model.Ticket {
	var groups [][]model.Ticket
	index := make(map[string]int)
	for _, t := range tickets {
		key := "t:" + strconv.FormatUint(t.ID, 10)
		if t.OrderGroupID != nil {
			key = "g:" + *t.OrderGroupID
		}
		if i, ok := index[key]; ok {
			groups[i] = append(groups[i], t)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, []model.Ticket{t})
	}
	return groups
}

// dedupeSeats trims, de-duplicates and sorts the requested labels.  The
// sorted order makes the master choice (first seat) deterministic.
func dedupeSeats(seats []string) []string {
	seen := make(map[string]struct{}, len(seats))
	out := make([]string, 0, len(seats))
	for _, s := range seats {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func availableSeats(layout []string, taken map[string]struct{}) []string {
	free := make([]string, 0, len(layout))
	for _, l := range layout {
		if _, held := taken[l]; !held {
			free = append(free, l)
		}
	}
	return free
}

func remainingSeconds(ord model.Order) int {
	if ord.StatusTiket != model.StatusPending || ord.BatasPembayaran == nil {
		return 0
	}
	rem := order.Remaining(*ord.BatasPembayaran, time.Now().UTC())
	if rem < 0 {
		return 0
	}
	return int(rem / time.Second)
}
