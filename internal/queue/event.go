// Package queue defines message payloads exchanged over the message
// broker and the background consumer that processes them.  Notification
// transport (email, SMS) is external; this service only publishes the
// events it owes the outside world.
package queue

// OrderConfirmedQueue and OTPIssuedQueue are the durable queue names.
const (
	OrderConfirmedQueue = "order.confirmed"
	OTPIssuedQueue      = "otp.issued"
)

// OrderConfirmedEvent is published exactly once per order, on the
// pending-to-confirmed transition.  Redelivered gateway events never
// publish it again.
type OrderConfirmedEvent struct {
	OrderRef    string   `json:"order_ref"`
	UserID      uint64   `json:"user_id"`
	RouteID     uint64   `json:"route_id"`
	Seats       []string `json:"seats"`
	TotalBayar  int64    `json:"total_bayar"`
	ConfirmedAt string   `json:"confirmed_at"`
}

// OTPIssuedEvent carries a freshly issued verification code to the
// notification service, which owns delivery to the user.
type OTPIssuedEvent struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	IssuedAt    string `json:"issued_at"`
	ResendAfter string `json:"resend_after"`
}
