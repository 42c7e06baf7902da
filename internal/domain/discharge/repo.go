package discharge

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no discharge matches the lookup.
var ErrNotFound = errors.New("discharge not found")

// Filter narrows a discharge listing.
type Filter struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	CreatedBy uuid.UUID
	Status    string
	Limit     int
	Offset    int
}

// Repository defines discharge persistence operations.
type Repository interface {
	Create(ctx context.Context, d *Discharge) error
	GetByID(ctx context.Context, id uuid.UUID) (*Discharge, error)
	Update(ctx context.Context, d *Discharge) error
	List(ctx context.Context, f Filter) ([]*Discharge, int, error)
}
