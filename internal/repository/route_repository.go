package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/andikarp/bus-ticketing/internal/model"
)

// RouteRepo provides read access to the `routes` table.  The seat map of a
// bus is stored denormalised as a comma-separated label list; one canonical
// column, parsed here at the storage boundary, so the core never deals
// with naming variants.
type RouteRepo struct {
	db *sql.DB
}

// NewRouteRepo returns a new RouteRepo bound to the given database.
func NewRouteRepo(db *sql.DB) *RouteRepo { return &RouteRepo{db: db} }

// GetByID loads a route.  Returns ErrRouteNotFound when the id does not
// exist.
func (r *RouteRepo) GetByID(ctx context.Context, id uint64) (*model.Route, error) {
	const q = `SELECT id, origin, destination, departs_at, fare, seat_labels
			   FROM routes WHERE id = ?`
	return r.scanRoute(r.db.QueryRowContext(ctx, q, id))
}

// GetByIDTx is GetByID inside an existing transaction, used by the booking
// path so the fare read and the ticket insert share one scope.
func (r *RouteRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Route, error) {
	const q = `SELECT id, origin, destination, departs_at, fare, seat_labels
			   FROM routes WHERE id = ?`
	return r.scanRoute(tx.QueryRowContext(ctx, q, id))
}

// List returns all routes ordered by departure time.
func (r *RouteRepo) List(ctx context.Context) ([]model.Route, error) {
	const q = `SELECT id, origin, destination, departs_at, fare, seat_labels
			   FROM routes ORDER BY departs_at`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	routes := make([]model.Route, 0)
	for rows.Next() {
		var rt model.Route
		var labels string
		if err := rows.Scan(&rt.ID, &rt.Origin, &rt.Destination, &rt.DepartsAt, &rt.Fare, &labels); err != nil {
			return nil, err
		}
		rt.SeatLabels = splitSeatLabels(labels)
		routes = append(routes, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return routes, nil
}

// Create inserts a route and returns its id.  Used by seeding; the admin
// back office managing routes lives outside this service.
func (r *RouteRepo) Create(ctx context.Context, rt *model.Route) (uint64, error) {
	const q = `INSERT INTO routes (origin, destination, departs_at, fare, seat_labels)
			   VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		rt.Origin, rt.Destination, rt.DepartsAt.UTC().Format("2006-01-02 15:04:05"),
		rt.Fare, strings.Join(rt.SeatLabels, ","))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	rt.ID = uint64(id)
	return rt.ID, nil
}

func (r *RouteRepo) scanRoute(row *sql.Row) (*model.Route, error) {
	var rt model.Route
	var labels string
	var departs time.Time
	err := row.Scan(&rt.ID, &rt.Origin, &rt.Destination, &departs, &rt.Fare, &labels)
	if err == sql.ErrNoRows {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, err
	}
	rt.DepartsAt = departs.UTC()
	rt.SeatLabels = splitSeatLabels(labels)
	return &rt, nil
}

func splitSeatLabels(s string) []string {
	parts := strings.Split(s, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}
