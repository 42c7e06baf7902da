package resource

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no resource matches the lookup.
var ErrNotFound = errors.New("resource not found")

// Filter narrows a resource listing.
type Filter struct {
	Kind   string
	Status string
	Limit  int
	Offset int
}

// Repository defines resource persistence operations.
type Repository interface {
	Create(ctx context.Context, r *Resource) error
	GetByID(ctx context.Context, id uuid.UUID) (*Resource, error)
	Update(ctx context.Context, r *Resource) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter) ([]*Resource, int, error)
}
