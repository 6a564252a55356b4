package model

import "time"

// Order is the logical view of one checkout: every ticket row sharing an
// order group id, folded into a single object for display and for payment
// reconciliation.  Orders are never stored; they are derived from raw
// ticket rows each time (see the order package).  The master ticket is the
// canonical source for status, deadline and total.
//
// JSON field names follow the vocabulary the portal's frontend and the
// gateway integration already speak (total_bayar, status_tiket,
// batas_pembayaran).
type Order struct {
	OrderRef        string     `json:"order_ref"`                  // "ORD-<master ticket id>"
	OrderGroupID    *string    `json:"order_group_id,omitempty"`   // nil on legacy singletons
	MasterTicketID  uint64     `json:"master_ticket_id"`
	UserID          uint64     `json:"user_id"`
	RouteID         uint64     `json:"route_id"`
	TotalTickets    int        `json:"total_tickets"`
	Seats           []string   `json:"seats"`                      // sorted seat labels
	TotalBayar      int64      `json:"total_bayar"`
	StatusTiket     string     `json:"status_tiket"`               // master ticket's status
	BatasPembayaran *time.Time `json:"batas_pembayaran,omitempty"` // master ticket's deadline
	PaymentRef      *string    `json:"payment_ref,omitempty"`
	BookedAt        time.Time  `json:"booked_at"`
}
