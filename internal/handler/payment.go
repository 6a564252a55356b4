package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/andikarp/bus-ticketing/internal/gateway"
	"github.com/andikarp/bus-ticketing/internal/metrics"
	"github.com/andikarp/bus-ticketing/internal/model"
	"github.com/andikarp/bus-ticketing/internal/order"
	"github.com/andikarp/bus-ticketing/internal/queue"
	"github.com/andikarp/bus-ticketing/internal/repository"
)

// PaymentHandler settles orders against gateway outcomes.  Both the
// webhook and the polling endpoint funnel into the same reconcile step,
// so a redelivered notification and a manual status check can never
// disagree about an order's final state.
type PaymentHandler struct {
	Tickets *repository.TicketRepo
	Gateway *gateway.Client
}

func NewPaymentHandler(tickets *repository.TicketRepo, gw *gateway.Client) *PaymentHandler {
	if tickets == nil {
		panic("nil repository passed to NewPaymentHandler")
	}
	return &PaymentHandler{Tickets: tickets, Gateway: gw}
}

type notifyReq struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
}

// Notify handles POST /v1/payments/notify, the gateway's server-to-server
// callback.  Unknown refs get 404 so the gateway stops retrying a
// notification that can never apply; duplicates and late arrivals are
// acknowledged with 200 and changed:false.
func (h *PaymentHandler) Notify(c echo.Context) error {
	var body notifyReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	var ref *string
	if body.TransactionID != "" {
		ref = &body.TransactionID
	}
	// The gateway authenticates with its server key, not a user session,
	// so no owner is enforced here.
	return h.reconcile(c, body.OrderID, body.TransactionStatus, ref, nil)
}

// PollStatus handles GET /v1/orders/:ref/status.  It asks the gateway for
// the current transaction state and applies it the same way a webhook
// would, which lets a user who closed the payment page resync their order.
// Only the order's owner may poll it.
func (h *PaymentHandler) PollStatus(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if h.Gateway == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payment gateway not configured"})
	}
	ref := c.Param("ref")
	external, err := h.Gateway.QueryStatus(c.Request().Context(), ref)
	if err != nil {
		zap.L().Warn("gateway status query failed", zap.String("order_ref", ref), zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "gateway unavailable"})
	}
	return h.reconcile(c, ref, external, nil, &userID)
}

// reconcile maps the external status onto the order's lifecycle and
// applies it to the whole group atomically.  The pipeline: resolve the
// ref, translate the status, lock the group, expire it if overdue, then
// let the transition table decide whether anything changes.  A non-nil
// owner restricts the call to that user's own orders.
func (h *PaymentHandler) reconcile(c echo.Context, ref, external string, paymentRef *string, owner *uint64) error {
	masterID, err := order.ParseOrderRef(ref)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}
	target, err := order.FromGatewayStatus(external)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
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
	if owner != nil && group[0].UserID != *owner {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	// A settlement that arrives after the hold lapsed must not revive
	// the order, so the deadline is applied before the transition.
	group, expired, err := expireGroupIfOverdue(ctx, tx, h.Tickets, group)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to expire order"})
	}

	current := group[0].Status
	decision := order.Decide(current, target)
	confirmedNow := false
	if decision == order.TransitionApply {
		var refToStore *string
		if target == model.StatusConfirmed {
			refToStore = paymentRef
			if refToStore == nil {
				refToStore = &ref
			}
			confirmedNow = current == model.StatusPending
		}
		if err := h.Tickets.UpdateGroupStatusTx(ctx, tx, group, target, refToStore); err != nil {
			if err == repository.ErrConflict {
				return c.JSON(http.StatusConflict, echo.Map{"error": "order changed concurrently"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update order"})
		}
		for i := range group {
			group[i].Status = target
			if refToStore != nil && group[i].IsMasterTicket {
				group[i].PaymentRef = refToStore
			}
		}
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

	switch {
	case confirmedNow:
		metrics.ReconciliationsTotal.WithLabelValues("confirmed").Inc()
		publishConfirmed(ctx, ord)
	case decision == order.TransitionApply:
		metrics.ReconciliationsTotal.WithLabelValues("cancelled").Inc()
	default:
		metrics.ReconciliationsTotal.WithLabelValues("noop").Inc()
	}

	return c.JSON(http.StatusOK, echo.Map{
		"order":   ord,
		"changed": decision == order.TransitionApply,
	})
}

// publishConfirmed emits the order.confirmed event after commit; a
// publish failure is logged but never fails the reconciliation, since
// the paid order must stand regardless of broker health.
func publishConfirmed(ctx context.Context, ord model.Order) {
	ev := queue.OrderConfirmedEvent{
		OrderRef:    ord.OrderRef,
		UserID:      ord.UserID,
		RouteID:     ord.RouteID,
		Seats:       ord.Seats,
		TotalBayar:  ord.TotalBayar,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := queue.PublishOrderConfirmed(ctx, ev); err != nil {
		zap.L().Warn("order.confirmed publish failed",
			zap.String("order_ref", ord.OrderRef), zap.Error(err))
	}
}
