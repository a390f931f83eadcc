package calendar

import (
	"context"

	domain "clubadmin/internal/domain/calendar"
)

// Store persists the event list.
type Store interface {
	UpdateField(ctx context.Context, e domain.Event, field string) error
	Create(ctx context.Context, e *domain.Event) error
	GetByID(ctx context.Context, id int64) (domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
}
