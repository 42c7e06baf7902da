package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no booking matches the lookup.
var ErrNotFound = errors.New("booking not found")

// Filter narrows a booking listing. Zero-valued fields are ignored.
type Filter struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	StaffID   uuid.UUID
	Status    string
	Kind      string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// Repository defines booking persistence. The overlap counters consider only
// bookings in status scheduled; completed and cancelled rows never block a
// window. All methods honor a transaction bound to the context.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateWindow(ctx context.Context, id uuid.UUID, start, end time.Time) error
	List(ctx context.Context, f Filter) ([]*Booking, int, error)

	CountDoctorOverlaps(ctx context.Context, doctorID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error)
	CountStaffOverlaps(ctx context.Context, staffID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error)
	CountResourceOverlaps(ctx context.Context, resourceID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error)

	// CountResourceScheduled counts scheduled bookings other than exclude
	// that reference the resource, regardless of window. Used to decide
	// whether a released resource can be flagged available again.
	CountResourceScheduled(ctx context.Context, resourceID uuid.UUID, exclude uuid.UUID) (int, error)

	// ReleaseAllocations stamps released_at on every staff and resource
	// allocation of the booking that is not already released.
	ReleaseAllocations(ctx context.Context, bookingID uuid.UUID, at time.Time) error
}
