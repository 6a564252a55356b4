package model

import "time"

// Route represents a scheduled bus departure as stored in the `routes`
// table.  The seat map is fixed per route: SeatLabels holds every seat
// label of the bus, and availability is derived by subtracting the labels
// currently held by live tickets.
//
// Fields:
//  ID          – primary key identifier.
//  Origin      – departure city.
//  Destination – arrival city.
//  DepartsAt   – scheduled departure time (UTC).
//  Fare        – per-seat price in rupiah; constant across seats.
//  SeatLabels  – every seat label of the bus, in layout order.
type Route struct {
	ID          uint64    // routes.id
	Origin      string    // routes.origin
	Destination string    // routes.destination
	DepartsAt   time.Time // routes.departs_at
	Fare        int64     // routes.fare
	SeatLabels  []string  // routes.seat_labels (comma separated)
}
