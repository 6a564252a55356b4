package model

import "time"

// Ticket statuses as persisted in the `tickets` table.  The vocabulary is
// fixed for compatibility with the payment gateway integration and the
// ticket-print tooling: a ticket is `pending` until the gateway settles it,
// `confirmed` once paid, `completed` after travel, and `cancelled` when the
// payment deadline passed or the gateway denied the transaction.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Ticket represents one reserved seat as stored in the `tickets` table.
// Seats selected together in one checkout are written as N ticket rows
// sharing an OrderGroupID; exactly one of them is flagged as the master
// ticket and carries the authoritative total for the whole order.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – user who booked the seat.
//  RouteID          – route the seat belongs to.
//  SeatLabel        – seat label on the bus (e.g. "A1").
//  Amount           – price of this seat in rupiah.
//  Status           – one of the status constants above.
//  BookedAt         – when the order was created; identical across a group.
//  BatasPembayaran  – payment deadline; nil once the ticket is paid or
//                     cancelled.
//  PaymentRef       – gateway transaction reference, if any.
//  OrderGroupID     – UUID shared by all tickets of one order.  Nil only on
//                     legacy single-seat rows created before grouping.
//  IsMasterTicket   – true on exactly one ticket per non-nil group.  Chosen
//                     at creation time and never reassigned.
//  OrderTotalAmount – sum of all seat prices of the order; carried on the
//                     master ticket only.
type Ticket struct {
	ID               uint64     // tickets.id
	UserID           uint64     // tickets.user_id
	RouteID          uint64     // tickets.route_id
	SeatLabel        string     // tickets.seat_label
	Amount           int64      // tickets.amount
	Status           string     // tickets.status
	BookedAt         time.Time  // tickets.booked_at
	BatasPembayaran  *time.Time // tickets.batas_pembayaran (nullable)
	PaymentRef       *string    // tickets.payment_ref (nullable)
	OrderGroupID     *string    // tickets.order_group_id (nullable)
	IsMasterTicket   bool       // tickets.is_master_ticket
	OrderTotalAmount *int64     // tickets.order_total_amount (master only)
}
