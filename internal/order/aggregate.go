// Package order holds the pure order-lifecycle logic: folding raw ticket
// rows into one logical order, mapping gateway statuses onto the internal
// state machine, and the reservation-deadline arithmetic.  Nothing in this
// package touches storage; repositories and handlers feed it rows and act
// on its decisions.
package order

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/andikarp/bus-ticketing/internal/model"
)

// ErrEmptyGroup is returned when Aggregate is called with no tickets.
var ErrEmptyGroup = errors.New("order: empty ticket group")

// ErrBadOrderRef is returned when an order reference does not parse;
// callers treat it the same as an unknown order.
var ErrBadOrderRef = errors.New("order: malformed order reference")

// FormatOrderRef renders the public order reference for a master ticket id.
// The reference doubles as the gateway transaction identifier.
func FormatOrderRef(masterTicketID uint64) string {
	return fmt.Sprintf("ORD-%d", masterTicketID)
}

// ParseOrderRef recovers the master ticket id from an order reference.
func ParseOrderRef(ref string) (uint64, error) {
	rest, ok := strings.CutPrefix(ref, "ORD-")
	if !ok {
		return 0, ErrBadOrderRef
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrBadOrderRef
	}
	return id, nil
}

// Aggregate derives the logical Order from the raw ticket rows of one
// group (or a legacy singleton).  It never mutates its input and never
// touches storage.
//
// The master ticket is canonical: its status, deadline, payment reference
// and order_total_amount win.  A group with no master, or with more than
// one, is a data anomaly; Aggregate falls back to the ticket with the
// lowest id, logs the anomaly and carries on rather than failing a read
// path over it.  When the master carries no order_total_amount the total
// is the sum of member amounts.
func Aggregate(tickets []model.Ticket) (model.Order, error) {
	if len(tickets) == 0 {
		return model.Order{}, ErrEmptyGroup
	}

	master := findMaster(tickets)

	seats := make([]string, 0, len(tickets))
	var sum int64
	for _, t := range tickets {
		seats = append(seats, t.SeatLabel)
		sum += t.Amount
	}
	sort.Strings(seats)

	total := sum
	if master.OrderTotalAmount != nil {
		// The master's recorded total is authoritative when present.
		total = *master.OrderTotalAmount
	}

	return model.Order{
		OrderRef:        FormatOrderRef(master.ID),
		OrderGroupID:    master.OrderGroupID,
		MasterTicketID:  master.ID,
		UserID:          master.UserID,
		RouteID:         master.RouteID,
		TotalTickets:    len(tickets),
		Seats:           seats,
		TotalBayar:      total,
		StatusTiket:     master.Status,
		BatasPembayaran: master.BatasPembayaran,
		PaymentRef:      master.PaymentRef,
		BookedAt:        master.BookedAt,
	}, nil
}

// findMaster picks the canonical ticket of a group.  Exactly one master is
// the invariant; anything else falls back to the lowest ticket id.
func findMaster(tickets []model.Ticket) model.Ticket {
	var master *model.Ticket
	masters := 0
	lowest := tickets[0]
	for i := range tickets {
		if tickets[i].ID < lowest.ID {
			lowest = tickets[i]
		}
		if tickets[i].IsMasterTicket {
			masters++
			if master == nil {
				master = &tickets[i]
			}
		}
	}
	if masters == 1 {
		return *master
	}
	zap.L().Warn("ticket group without a unique master, falling back to lowest id",
		zap.Int("masters", masters),
		zap.Uint64("fallback_ticket_id", lowest.ID),
	)
	return lowest
}
