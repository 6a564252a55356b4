package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/andikarp/bus-ticketing/internal/metrics"
	"github.com/andikarp/bus-ticketing/internal/model"
	"github.com/andikarp/bus-ticketing/internal/repository"
)

// BrowseHandler serves the public catalogue: route listings and per-route
// seat availability.  No authentication is required here.
type BrowseHandler struct {
	Routes  *repository.RouteRepo
	Tickets *repository.TicketRepo
}

func NewBrowseHandler(routes *repository.RouteRepo, tickets *repository.TicketRepo) *BrowseHandler {
	if routes == nil || tickets == nil {
		panic("nil repository passed to NewBrowseHandler")
	}
	return &BrowseHandler{Routes: routes, Tickets: tickets}
}

// routeView is the public shape of a route.
type routeView struct {
	ID          uint64    `json:"id"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartsAt   time.Time `json:"departs_at"`
	Fare        int64     `json:"fare"`
	TotalSeats  int       `json:"total_seats"`
}

func toRouteView(rt *model.Route) routeView {
	return routeView{
		ID:          rt.ID,
		Origin:      rt.Origin,
		Destination: rt.Destination,
		DepartsAt:   rt.DepartsAt,
		Fare:        rt.Fare,
		TotalSeats:  len(rt.SeatLabels),
	}
}

// ListRoutes handles GET /v1/routes.
func (h *BrowseHandler) ListRoutes(c echo.Context) error {
	routes, err := h.Routes.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load routes"})
	}
	items := make([]routeView, 0, len(routes))
	for i := range routes {
		items = append(items, toRouteView(&routes[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetRoute handles GET /v1/routes/:id.
func (h *BrowseHandler) GetRoute(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route id"})
	}
	rt, err := h.Routes.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrRouteNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, toRouteView(rt))
}

type seatView struct {
	Label     string `json:"label"`
	Available bool   `json:"available"`
}

// GetRouteSeats handles GET /v1/routes/:id/seats.  Overdue holds on the
// route are released before availability is computed, so a seat whose
// payment deadline just lapsed is shown free immediately.
func (h *BrowseHandler) GetRouteSeats(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route id"})
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

	rt, err := h.Routes.GetByIDTx(ctx, tx, id)
	if err != nil {
		if err == repository.ErrRouteNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	expired, err := h.Tickets.ExpireOverdueByRouteTx(ctx, tx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release expired holds"})
	}

	// Read-only availability: no row locks, this is a display endpoint
	// and the booking path re-checks under lock anyway.
	taken, err := h.Tickets.TakenSeatLabelsTx(ctx, tx, id, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check availability"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	if expired > 0 {
		metrics.TicketsExpiredTotal.Add(float64(expired))
	}

	seats := make([]seatView, 0, len(rt.SeatLabels))
	free := 0
	for _, label := range rt.SeatLabels {
		_, held := taken[label]
		if !held {
			free++
		}
		seats = append(seats, seatView{Label: label, Available: !held})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"route_id":  rt.ID,
		"seats":     seats,
		"available": free,
		"total":     len(rt.SeatLabels),
	})
}
