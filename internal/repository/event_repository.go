package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/event-booking/internal/model"
)

// EventRepo manages persistence for events.  Seat counters are only ever
// changed through DecrementSeats and IncrementSeats, both of which guard the
// bounds in the UPDATE itself.
type EventRepo struct{ db DBTX }

func NewEventRepo(db DBTX) *EventRepo { return &EventRepo{db: db} }

const eventColumns = "id, title, description, date, location, capacity, available_seats, status, owner_id, created_at, updated_at"

// Create inserts a new event with availableSeats equal to capacity and
// populates the generated id and timestamps on e.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (title, description, date, location, capacity, available_seats, status, owner_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		e.Title, e.Description, e.Date.UTC(), e.Location, e.Capacity, e.Capacity, e.Status, e.OwnerID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*e = *created
	return nil
}

func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	return r.getOne(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
}

// GetForUpdate reads the event and holds its row lock until the surrounding
// transaction ends.  Outside a transaction the lock is released immediately.
func (r *EventRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Event, error) {
	return r.getOne(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ? FOR UPDATE", id)
}

func (r *EventRepo) getOne(ctx context.Context, q string, id uint64) (*model.Event, error) {
	var e model.Event
	if err := scanEvent(r.db.QueryRowContext(ctx, q, id), &e); err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanEvent(row rowScanner, e *model.Event) error {
	return row.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Location,
		&e.Capacity, &e.AvailableSeats, &e.Status, &e.OwnerID, &e.CreatedAt, &e.UpdatedAt)
}

// Update writes the editable columns of e.  Seat columns are written as
// given; callers compute them while holding the row lock.  MySQL reports
// zero affected rows for an update that changes nothing, so the count is not
// checked here.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	const q = `UPDATE events
		SET title = ?, description = ?, date = ?, location = ?, capacity = ?, available_seats = ?
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q,
		e.Title, e.Description, e.Date.UTC(), e.Location, e.Capacity, e.AvailableSeats, e.ID)
	return err
}

// SetStatus moves the event to status.  The WHERE clause only matches when
// the current status is one of from, so a concurrent transition is detected
// as ErrNotFound.
func (r *EventRepo) SetStatus(ctx context.Context, id uint64, status model.EventStatus, from ...model.EventStatus) error {
	q := "UPDATE events SET status = ? WHERE id = ?"
	args := []any{status, id}
	if len(from) > 0 {
		q += " AND status IN (" + placeholders(len(from)) + ")"
		for _, s := range from {
			args = append(args, s)
		}
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return expectOne(res.RowsAffected())
}

// DecrementSeats takes n seats from a published event.  It reports false,
// without error, when the event is not published or has fewer than n seats
// left; the check and the write happen in one statement.
func (r *EventRepo) DecrementSeats(ctx context.Context, id uint64, n int) (bool, error) {
	const q = `UPDATE events SET available_seats = available_seats - ?
		WHERE id = ? AND status = 'PUBLISHED' AND available_seats >= ?`
	res, err := r.db.ExecContext(ctx, q, n, id, n)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// IncrementSeats gives n seats back.  Restoring more than capacity means the
// seat accounting is already broken, so it fails instead of clamping.
func (r *EventRepo) IncrementSeats(ctx context.Context, id uint64, n int) error {
	const q = `UPDATE events SET available_seats = available_seats + ?
		WHERE id = ? AND available_seats + ? <= capacity`
	res, err := r.db.ExecContext(ctx, q, n, id, n)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return fmt.Errorf("restore %d seats on event %d: would exceed capacity", n, id)
	}
	return nil
}

func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectOne(res.RowsAffected())
}

// StatusCounts groups the owner's events by status.
func (r *EventRepo) StatusCounts(ctx context.Context, ownerID uint64) (map[model.EventStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM events WHERE owner_id = ? GROUP BY status", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.EventStatus]int64{}
	for rows.Next() {
		var (
			s model.EventStatus
			n int64
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}

// CountUpcoming counts published events dated at or after now.
func (r *EventRepo) CountUpcoming(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE status = 'PUBLISHED' AND date >= ?", now.UTC()).Scan(&n)
	return n, err
}

// FillSamples returns capacity and remaining seats of the owner's published
// events.
func (r *EventRepo) FillSamples(ctx context.Context, ownerID uint64) ([]model.FillSample, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT capacity, available_seats FROM events WHERE owner_id = ? AND status = 'PUBLISHED'", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.FillSample
	for rows.Next() {
		var s model.FillSample
		if err := rows.Scan(&s.Capacity, &s.AvailableSeats); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func expectOne(affected int64, err error) error {
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, 2*n-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
