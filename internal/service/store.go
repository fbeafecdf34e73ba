// Package service holds the booking workflow.  Services depend on the
// repository interfaces below so the workflow can run against MySQL in
// production and an in-memory store in tests.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
)

// EventRepository is the Event Store.
type EventRepository interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	GetForUpdate(ctx context.Context, id uint64) (*model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	SetStatus(ctx context.Context, id uint64, status model.EventStatus, from ...model.EventStatus) error
	DecrementSeats(ctx context.Context, id uint64, n int) (bool, error)
	IncrementSeats(ctx context.Context, id uint64, n int) error
	Delete(ctx context.Context, id uint64) error
	Search(ctx context.Context, f model.EventFilter) ([]model.Event, int64, error)
	StatusCounts(ctx context.Context, ownerID uint64) (map[model.EventStatus]int64, error)
	CountUpcoming(ctx context.Context, now time.Time) (int64, error)
	FillSamples(ctx context.Context, ownerID uint64) ([]model.FillSample, error)
}

// ReservationRepository is the Reservation Store.
type ReservationRepository interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	GetForUpdate(ctx context.Context, id uint64) (*model.Reservation, error)
	HasActive(ctx context.Context, userID, eventID uint64) (bool, error)
	Transition(ctx context.Context, id uint64, to model.ReservationStatus, at time.Time, from ...model.ReservationStatus) (bool, error)
	ListActiveByEventForUpdate(ctx context.Context, eventID uint64) ([]model.Reservation, error)
	CancelActiveByEvent(ctx context.Context, eventID uint64, at time.Time) (int64, error)
	CountActiveByEvent(ctx context.Context, eventID uint64) (int, error)
	CountByOwner(ctx context.Context, ownerID uint64) (int64, error)
	DeleteByEvent(ctx context.Context, eventID uint64) error
	GetDetail(ctx context.Context, id uint64) (*model.ReservationDetail, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.ReservationDetail, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.ReservationDetail, error)
	List(ctx context.Context, f model.ReservationFilter) ([]model.ReservationDetail, int64, error)
}

// UserRepository is the read side of users needed by the workflow.
type UserRepository interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Repos bundles the repositories bound to one connection or transaction.
type Repos struct {
	Events       EventRepository
	Reservations ReservationRepository
	Users        UserRepository
}

// Store hands out repositories.  WithTx runs fn inside one transaction and
// commits only when fn returns nil.
type Store interface {
	Repos() Repos
	WithTx(ctx context.Context, fn func(Repos) error) error
}

type sqlStore struct {
	db *sql.DB
}

// NewSQLStore builds the MySQL-backed Store.
func NewSQLStore(db *sql.DB) Store { return &sqlStore{db: db} }

func (s *sqlStore) Repos() Repos { return reposOn(s.db) }

func (s *sqlStore) WithTx(ctx context.Context, fn func(Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(reposOn(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

func reposOn(db repository.DBTX) Repos {
	return Repos{
		Events:       repository.NewEventRepo(db),
		Reservations: repository.NewReservationRepo(db),
		Users:        repository.NewUserRepo(db),
	}
}

var (
	_ EventRepository       = (*repository.EventRepo)(nil)
	_ ReservationRepository = (*repository.ReservationRepo)(nil)
	_ UserRepository        = (*repository.UserRepo)(nil)
)
