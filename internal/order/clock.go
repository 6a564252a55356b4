package order

import "time"

// Deadline computes the payment deadline for an order created at bookedAt.
// The hold window is a configuration input (PAYMENT_HOLD_MINUTES), never a
// constant baked in here.
func Deadline(bookedAt time.Time, hold time.Duration) time.Time {
	return bookedAt.Add(hold)
}

// Remaining returns how long is left until the deadline.  Zero or negative
// means the order is expired.  The value is recomputed from the absolute
// deadline on every call; client-side countdowns are a display convenience
// and are never trusted.
func Remaining(deadline, now time.Time) time.Duration {
	return deadline.Sub(now)
}

// Expired reports whether a pending order with the given deadline is past
// its hold window.  A nil deadline (already paid or cancelled) never
// expires.
func Expired(deadline *time.Time, now time.Time) bool {
	if deadline == nil {
		return false
	}
	return !deadline.After(now)
}
