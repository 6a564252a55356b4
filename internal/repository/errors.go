// Package repository defines the sentinel errors shared across the data
// access layer.  Handlers compare against these values to pick the HTTP
// status and the recovery hint returned to the client; none of them is
// fatal.
package repository

import "errors"

// ErrRouteNotFound is returned when a route id does not exist.  Handlers
// translate it into a 404 response.
var ErrRouteNotFound = errors.New("route not found")

// ErrOrderNotFound is returned when an order reference or transaction
// identifier resolves to no master ticket.  Handlers translate it into a
// 404; the gateway-polling caller owns any retry policy.
var ErrOrderNotFound = errors.New("order not found")

// ErrSeatConflict is returned when a booking lost the race for at least
// one requested seat between the availability query and the commit.  The
// whole batch fails; handlers respond 409 with the fresh availability so
// the client can retry correctly.
var ErrSeatConflict = errors.New("seat conflict")

// ErrConflict is returned when a concurrent group mutation lost a race
// (e.g. two reconciliation events racing on one group).  Callers should
// retry the read-aggregate-decide cycle.
var ErrConflict = errors.New("conflict")
