package projections

import (
	"context"

	"clubadmin/internal/adapters/storage/member"
	domainCalendar "clubadmin/internal/domain/calendar"
	domainMember "clubadmin/internal/domain/member"
)

// MemberStore interface for member queries.
type MemberStore interface {
	GetByID(ctx context.Context, id int64) (domainMember.Member, error)
	List(ctx context.Context, filter member.ListFilter) ([]domainMember.Member, error)
	Count(ctx context.Context, filter member.ListFilter) (int, error)
}

// EventStore interface for event list queries.
type EventStore interface {
	GetByID(ctx context.Context, id int64) (domainCalendar.Event, error)
	List(ctx context.Context) ([]domainCalendar.Event, error)
}
