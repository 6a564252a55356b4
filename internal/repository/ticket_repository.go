package repository

import (
	"context"
	"database/sql"

	"github.com/andikarp/bus-ticketing/internal/model"
)

// TicketRepo provides data access to the `tickets` table.  Tickets created
// together in one checkout share an order_group_id, and every status
// change is applied to the whole group in a single statement so members
// never diverge mid-flight.  All timestamps are stored in UTC; expiry
// comparisons use the database clock (UTC_TIMESTAMP()) to keep the lazy
// cancellation idempotent across callers.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// DB exposes the underlying handle for handlers opening transactions.
func (r *TicketRepo) DB() *sql.DB { return r.db }

const ticketColumns = `id, user_id, route_id, seat_label, amount, status, booked_at,
	   batas_pembayaran, payment_ref, order_group_id, is_master_ticket, order_total_amount`

// CreateGroupTx inserts one ticket row per seat within the provided
// transaction, populating the generated ids on the passed records.  The
// caller prepares the rows (shared group id, shared booked_at, exactly one
// master carrying the order total) and must commit or roll back.  Rows
// are inserted one by one so each record receives its id; the whole batch
// still commits atomically.
func (r *TicketRepo) CreateGroupTx(ctx context.Context, tx *sql.Tx, tickets []model.Ticket) error {
	const q = `INSERT INTO tickets
			   (user_id, route_id, seat_label, amount, status, booked_at,
				batas_pembayaran, order_group_id, is_master_ticket, order_total_amount)
			   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i := range tickets {
		t := &tickets[i]
		var deadline interface{}
		if t.BatasPembayaran != nil {
			deadline = t.BatasPembayaran.UTC().Format("2006-01-02 15:04:05")
		}
		res, err := tx.ExecContext(ctx, q,
			t.UserID, t.RouteID, t.SeatLabel, t.Amount, t.Status,
			t.BookedAt.UTC().Format("2006-01-02 15:04:05"),
			deadline, t.OrderGroupID, t.IsMasterTicket, t.OrderTotalAmount)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		t.ID = uint64(id)
	}
	return nil
}

// TakenSeatLabelsTx returns the seat labels currently held for a route:
// tickets in confirmed or completed status, plus pending tickets whose
// deadline has not passed.  Callers must run ExpireOverdueByRouteTx first
// so that overdue rows are cancelled rather than filtered.  With lock set,
// the matching rows are read FOR UPDATE so two concurrent bookings for
// overlapping seats serialize on the route's live tickets; display paths
// pass lock=false.
func (r *TicketRepo) TakenSeatLabelsTx(ctx context.Context, tx *sql.Tx, routeID uint64, lock bool) (map[string]struct{}, error) {
	q := `SELECT seat_label FROM tickets
		  WHERE route_id = ?
			AND (status IN ('confirmed', 'completed')
				 OR (status = 'pending' AND batas_pembayaran > UTC_TIMESTAMP()))`
	if lock {
		q += ` FOR UPDATE`
	}
	rows, err := tx.QueryContext(ctx, q, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	taken := make(map[string]struct{})
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		taken[label] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return taken, nil
}

// ExpireOverdueByRouteTx cancels every pending ticket on the route whose
// payment deadline has passed, releasing the seats.  Members of a group
// share one deadline, so the single UPDATE moves whole groups together.
// The statement is idempotent: rerunning it matches nothing.
func (r *TicketRepo) ExpireOverdueByRouteTx(ctx context.Context, tx *sql.Tx, routeID uint64) (int64, error) {
	const q = `UPDATE tickets
			   SET status = 'cancelled', batas_pembayaran = NULL
			   WHERE route_id = ? AND status = 'pending' AND batas_pembayaran <= UTC_TIMESTAMP()`
	res, err := tx.ExecContext(ctx, q, routeID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpireOverdueAll is the sweep variant of ExpireOverdueByRouteTx, run
// periodically by the background worker across all routes.  Correctness
// never depends on it; every read and write path expires lazily on its
// own.
func (r *TicketRepo) ExpireOverdueAll(ctx context.Context) (int64, error) {
	const q = `UPDATE tickets
			   SET status = 'cancelled', batas_pembayaran = NULL
			   WHERE status = 'pending' AND batas_pembayaran <= UTC_TIMESTAMP()`
	res, err := r.db.ExecContext(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetGroupForUpdateTx resolves an order by its master ticket id and
// returns every member row, locked FOR UPDATE so concurrent
// reconciliation events for the same group are mutually exclusive.  A
// legacy singleton (no group id) is returned as a one-row slice.  It
// returns ErrOrderNotFound when the id does not exist or refers to a
// grouped ticket that is not the group's master.
func (r *TicketRepo) GetGroupForUpdateTx(ctx context.Context, tx *sql.Tx, masterID uint64) ([]model.Ticket, error) {
	master, err := r.getForUpdateTx(ctx, tx, masterID)
	if err != nil {
		return nil, err
	}
	if master.OrderGroupID == nil {
		return []model.Ticket{*master}, nil
	}
	if !master.IsMasterTicket {
		// Order references always encode the master; a sibling id is not a
		// valid reference.
		return nil, ErrOrderNotFound
	}
	q := `SELECT ` + ticketColumns + ` FROM tickets WHERE order_group_id = ? ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, *master.OrderGroupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var group []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		group = append(group, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return group, nil
}

func (r *TicketRepo) getForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ? FOR UPDATE`
	row := tx.QueryRowContext(ctx, q, id)
	t, err := scanTicketRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateGroupStatusTx moves every ticket of an order to the given status
// in one statement.  Terminal statuses clear the payment deadline; a
// payment reference, when provided, is recorded on the master ticket.
// The guard on the current status makes the update a no-op if another
// transaction already moved the group; callers detect that through
// RowsAffected and treat it as ErrConflict.
func (r *TicketRepo) UpdateGroupStatusTx(ctx context.Context, tx *sql.Tx, group []model.Ticket, status string, paymentRef *string) error {
	if len(group) == 0 {
		return nil
	}
	master := group[0]
	for _, t := range group {
		if t.IsMasterTicket {
			master = t
		}
	}
	current := master.Status

	var res sql.Result
	var err error
	if master.OrderGroupID != nil {
		const q = `UPDATE tickets
				   SET status = ?, batas_pembayaran = NULL
				   WHERE order_group_id = ? AND status = ?`
		res, err = tx.ExecContext(ctx, q, status, *master.OrderGroupID, current)
	} else {
		const q = `UPDATE tickets
				   SET status = ?, batas_pembayaran = NULL
				   WHERE id = ? AND status = ?`
		res, err = tx.ExecContext(ctx, q, status, master.ID, current)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(len(group)) {
		return ErrConflict
	}
	if paymentRef != nil {
		const q = `UPDATE tickets SET payment_ref = ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, q, *paymentRef, master.ID); err != nil {
			return err
		}
	}
	return nil
}

// ListByUser returns every ticket owned by the user, newest order first.
// Handlers fold the rows into Order views by group id.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets
		  WHERE user_id = ? ORDER BY booked_at DESC, id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets := make([]model.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// scanTicket reads one ticket row from a *sql.Rows cursor.
func scanTicket(rows *sql.Rows) (model.Ticket, error) {
	var t model.Ticket
	var deadline sql.NullTime
	var payRef, groupID sql.NullString
	var total sql.NullInt64
	err := rows.Scan(&t.ID, &t.UserID, &t.RouteID, &t.SeatLabel, &t.Amount,
		&t.Status, &t.BookedAt, &deadline, &payRef, &groupID, &t.IsMasterTicket, &total)
	if err != nil {
		return model.Ticket{}, err
	}
	assignTicketNullables(&t, deadline, payRef, groupID, total)
	return t, nil
}

func scanTicketRow(row *sql.Row) (model.Ticket, error) {
	var t model.Ticket
	var deadline sql.NullTime
	var payRef, groupID sql.NullString
	var total sql.NullInt64
	err := row.Scan(&t.ID, &t.UserID, &t.RouteID, &t.SeatLabel, &t.Amount,
		&t.Status, &t.BookedAt, &deadline, &payRef, &groupID, &t.IsMasterTicket, &total)
	if err != nil {
		return model.Ticket{}, err
	}
	assignTicketNullables(&t, deadline, payRef, groupID, total)
	return t, nil
}

func assignTicketNullables(t *model.Ticket, deadline sql.NullTime, payRef, groupID sql.NullString, total sql.NullInt64) {
	t.BookedAt = t.BookedAt.UTC()
	if deadline.Valid {
		d := deadline.Time.UTC()
		t.BatasPembayaran = &d
	}
	if payRef.Valid {
		ref := payRef.String
		t.PaymentRef = &ref
	}
	if groupID.Valid {
		g := groupID.String
		t.OrderGroupID = &g
	}
	if total.Valid {
		v := total.Int64
		t.OrderTotalAmount = &v
	}
}
