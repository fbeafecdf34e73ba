package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/event-booking/internal/model"
)

// ReservationRepo provides persistence for reservations.  Status changes go
// through Transition, whose WHERE clause re-checks the expected current
// status so a stale read can never apply a transition twice.
type ReservationRepo struct{ db DBTX }

func NewReservationRepo(db DBTX) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = "r.id, r.event_id, r.user_id, r.number_of_seats, r.status, r.created_at, r.updated_at, r.confirmed_at, r.canceled_at"

// Create inserts a PENDING reservation and fills in the generated columns.
// A second active reservation for the same user and event fails with
// ErrDuplicateActive.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (event_id, user_id, number_of_seats, status) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, res.EventID, res.UserID, res.NumberOfSeats, res.Status)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateActive
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*res = *created
	return nil
}

func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.getOne(ctx, "SELECT "+reservationColumns+" FROM reservations r WHERE r.id = ?", id)
}

// GetForUpdate locks the reservation row for the rest of the transaction.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.getOne(ctx, "SELECT "+reservationColumns+" FROM reservations r WHERE r.id = ? FOR UPDATE", id)
}

func (r *ReservationRepo) getOne(ctx context.Context, q string, id uint64) (*model.Reservation, error) {
	var res model.Reservation
	if err := scanReservation(r.db.QueryRowContext(ctx, q, id), &res); err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

func scanReservation(row rowScanner, res *model.Reservation, extra ...any) error {
	var confirmedAt, canceledAt sql.NullTime
	dest := append([]any{&res.ID, &res.EventID, &res.UserID, &res.NumberOfSeats, &res.Status,
		&res.CreatedAt, &res.UpdatedAt, &confirmedAt, &canceledAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	res.ConfirmedAt = nullTime(confirmedAt)
	res.CanceledAt = nullTime(canceledAt)
	return nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// HasActive reports whether the user already holds a PENDING or CONFIRMED
// reservation for the event.
func (r *ReservationRepo) HasActive(ctx context.Context, userID, eventID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations WHERE user_id = ? AND event_id = ? AND status IN ('PENDING','CONFIRMED')",
		userID, eventID).Scan(&n)
	return n > 0, err
}

// Transition moves the reservation to status `to` when its current status is
// one of `from`.  confirmed_at/canceled_at are stamped with at for the
// matching target.  It returns false when no row matched.
func (r *ReservationRepo) Transition(ctx context.Context, id uint64, to model.ReservationStatus, at time.Time, from ...model.ReservationStatus) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("transition needs at least one source status")
	}
	set := "status = ?"
	args := []any{to}
	switch to {
	case model.ReservationConfirmed:
		set += ", confirmed_at = ?"
		args = append(args, at.UTC())
	case model.ReservationCanceled:
		set += ", canceled_at = ?"
		args = append(args, at.UTC())
	}
	args = append(args, id)
	for _, s := range from {
		args = append(args, s)
	}
	q := "UPDATE reservations SET " + set + " WHERE id = ? AND status IN (" + placeholders(len(from)) + ")"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ListActiveByEventForUpdate returns and locks every active reservation of
// the event.
func (r *ReservationRepo) ListActiveByEventForUpdate(ctx context.Context, eventID uint64) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations r WHERE r.event_id = ? AND r.status IN ('PENDING','CONFIRMED') ORDER BY r.id FOR UPDATE",
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := scanReservation(rows, &res); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// CancelActiveByEvent cancels every active reservation of the event in one
// statement and returns how many rows changed.  Seats are not touched.
func (r *ReservationRepo) CancelActiveByEvent(ctx context.Context, eventID uint64, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE reservations SET status = 'CANCELED', canceled_at = ? WHERE event_id = ? AND status IN ('PENDING','CONFIRMED')",
		at.UTC(), eventID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ReservationRepo) CountActiveByEvent(ctx context.Context, eventID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations WHERE event_id = ? AND status IN ('PENDING','CONFIRMED')",
		eventID).Scan(&n)
	return n, err
}

// CountByOwner counts every reservation made on events the user owns.
func (r *ReservationRepo) CountByOwner(ctx context.Context, ownerID uint64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations r JOIN events e ON e.id = r.event_id WHERE e.owner_id = ?",
		ownerID).Scan(&n)
	return n, err
}

func (r *ReservationRepo) DeleteByEvent(ctx context.Context, eventID uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM reservations WHERE event_id = ?", eventID)
	return err
}

const (
	eventSummaryColumns = "e.id, e.title, e.date, e.location, e.status"
	userSummaryColumns  = "u.id, u.email, u.first_name, u.last_name"
)

// GetDetail loads a reservation with its event summary.
func (r *ReservationRepo) GetDetail(ctx context.Context, id uint64) (*model.ReservationDetail, error) {
	q := "SELECT " + reservationColumns + ", " + eventSummaryColumns + ", " + userSummaryColumns + `
		FROM reservations r
		JOIN events e ON e.id = r.event_id
		JOIN users u  ON u.id = r.user_id
		WHERE r.id = ?`
	var d model.ReservationDetail
	if err := scanDetail(r.db.QueryRowContext(ctx, q, id), &d, true, true); err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

// ListByUser returns the user's reservations with event summaries, newest
// first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.ReservationDetail, error) {
	q := "SELECT " + reservationColumns + ", " + eventSummaryColumns + `
		FROM reservations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = ?
		ORDER BY r.created_at DESC, r.id DESC`
	return r.listDetails(ctx, q, true, false, userID)
}

// ListByEvent returns the event's reservations with user summaries.
func (r *ReservationRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.ReservationDetail, error) {
	q := "SELECT " + reservationColumns + ", " + userSummaryColumns + `
		FROM reservations r
		JOIN users u ON u.id = r.user_id
		WHERE r.event_id = ?
		ORDER BY r.created_at DESC, r.id DESC`
	return r.listDetails(ctx, q, false, true, eventID)
}

// List is the admin listing, filterable by status and event.
func (r *ReservationRepo) List(ctx context.Context, f model.ReservationFilter) ([]model.ReservationDetail, int64, error) {
	where := []string{}
	args := []any{}
	if f.Status != "" {
		where = append(where, "r.status = ?")
		args = append(args, f.Status)
	}
	if f.EventID != 0 {
		where = append(where, "r.event_id = ?")
		args = append(args, f.EventID)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reservations r WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT " + reservationColumns + ", " + eventSummaryColumns + ", " + userSummaryColumns + `
		FROM reservations r
		JOIN events e ON e.id = r.event_id
		JOIN users u  ON u.id = r.user_id
		WHERE ` + cond + `
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), f.Limit, offset(f.Page, f.Limit))
	out, err := r.listDetails(ctx, q, true, true, argsData...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *ReservationRepo) listDetails(ctx context.Context, q string, withEvent, withUser bool, args ...any) ([]model.ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ReservationDetail{}
	for rows.Next() {
		var d model.ReservationDetail
		if err := scanDetail(rows, &d, withEvent, withUser); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDetail(row rowScanner, d *model.ReservationDetail, withEvent, withUser bool) error {
	var extra []any
	if withEvent {
		d.Event = &model.EventSummary{}
		extra = append(extra, &d.Event.ID, &d.Event.Title, &d.Event.Date, &d.Event.Location, &d.Event.Status)
	}
	if withUser {
		d.User = &model.UserSummary{}
		extra = append(extra, &d.User.ID, &d.User.Email, &d.User.FirstName, &d.User.LastName)
	}
	return scanReservation(row, &d.Reservation, extra...)
}
