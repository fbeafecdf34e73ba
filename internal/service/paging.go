package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/event-booking/internal/apperr"
	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
)

// EventPage is one page of the event listing.
type EventPage struct {
	Events     []model.Event `json:"events"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
}

// ReservationPage is one page of the admin reservation listing.
type ReservationPage struct {
	Reservations []model.ReservationDetail `json:"reservations"`
	Total        int64                     `json:"total"`
	Page         int                       `json:"page"`
	TotalPages   int                       `json:"totalPages"`
}

// normalize clamps page/limit: page starts at 1, limit falls back to the
// default and never exceeds the maximum.
func normalize(p config.PaginationConfig, page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = p.DefaultPageSize
	}
	if p.MaxPageSize > 0 && limit > p.MaxPageSize {
		limit = p.MaxPageSize
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func totalPages(total int64, limit int) int {
	if total == 0 || limit < 1 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// storeErr maps a repository failure: a missing row becomes NotFound with
// the given message, anything else is Internal.
func storeErr(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(format, args...)
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(err, "store failure")
}

// internal wraps an unexpected failure with the step that produced it.
func internal(err error, step string, args ...any) error {
	return apperr.Internal(fmt.Errorf(step+": %w", append(args, err)...), "store failure")
}
