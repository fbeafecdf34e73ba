package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/event-booking/internal/model"
)

// Search runs the filtered, paginated event listing ordered by date.  The
// filter is expected to be normalised by the caller (page >= 1, limit > 0).
func (r *EventRepo) Search(ctx context.Context, f model.EventFilter) ([]model.Event, int64, error) {
	where := []string{}
	args := []any{}

	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(s))+"%")
	}
	if f.FromDate != nil {
		where = append(where, "date >= ?")
		args = append(args, f.FromDate.UTC())
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := "SELECT " + eventColumns + " FROM events WHERE " + cond + " ORDER BY date ASC, id ASC LIMIT ? OFFSET ?"
	argsData := append(append([]any{}, args...), f.Limit, offset(f.Page, f.Limit))

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Event, 0, f.Limit)
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// escapeLike neutralises LIKE wildcards typed by the user.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
