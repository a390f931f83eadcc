package member

import (
	"context"

	domain "clubadmin/internal/domain/member"
)

// Store persists Member state.
type Store interface {
	GetByID(ctx context.Context, id int64) (domain.Member, error)
	Create(ctx context.Context, value *domain.Member) error
	UpdateField(ctx context.Context, value domain.Member, field string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Member, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit  int
	Offset int
	Status string
	Search string
	Sort   string
	Dir    string
}
