package audit

import (
	"context"

	domain "clubadmin/internal/domain/audit"
)

// Store defines the interface for field change persistence.
type Store interface {
	// Save persists a change.
	// PRE: change is valid
	// POST: Change is persisted
	Save(ctx context.Context, change domain.Change) error

	// List returns changes with optional filtering.
	// PRE: limit > 0
	// POST: Returns changes ordered newest first
	List(ctx context.Context, filter Filter, limit int) ([]domain.Change, error)
}

// Filter defines query parameters for listing changes. Zero values match all.
type Filter struct {
	Table    string
	EntityID int64
	Field    string
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
