package resource

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Resource kinds.
const (
	KindBed              = "bed"
	KindOperationTheatre = "operation_theatre"
	KindMachine          = "machine"
)

// Resource statuses. The status column is a convenience flag for listings;
// the booking allocator decides real availability from overlapping bookings.
const (
	StatusAvailable   = "available"
	StatusBooked      = "booked"
	StatusMaintenance = "maintenance"
)

var validKinds = map[string]bool{
	KindBed: true, KindOperationTheatre: true, KindMachine: true,
}

var validStatuses = map[string]bool{
	StatusAvailable: true, StatusBooked: true, StatusMaintenance: true,
}

func ValidKind(kind string) bool     { return validKinds[kind] }
func ValidStatus(status string) bool { return validStatuses[status] }

// Resource is a bookable physical asset. The kind decides which of the
// optional identity fields apply.
type Resource struct {
	ID           uuid.UUID `json:"id"`
	Kind         string    `json:"kind"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	WardID       *string   `json:"ward_id,omitempty"`       // beds
	BedNumber    *string   `json:"bed_number,omitempty"`    // beds
	OTNumber     *string   `json:"ot_number,omitempty"`     // operation theatres
	SerialNumber *string   `json:"serial_number,omitempty"` // machines
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identifier renders the human label used in notifications and summaries.
func (r *Resource) Identifier() string {
	switch r.Kind {
	case KindBed:
		if r.WardID != nil && r.BedNumber != nil {
			return fmt.Sprintf("Bed %s (Ward %s)", *r.BedNumber, *r.WardID)
		}
	case KindOperationTheatre:
		if r.OTNumber != nil {
			return fmt.Sprintf("Operation Theatre %s", *r.OTNumber)
		}
	case KindMachine:
		if r.SerialNumber != nil {
			return fmt.Sprintf("%s #%s", r.Name, *r.SerialNumber)
		}
	}
	return r.Name
}

// CreateRequest carries the fields needed to register a resource.
type CreateRequest struct {
	Kind         string  `json:"kind"`
	Name         string  `json:"name"`
	WardID       *string `json:"ward_id,omitempty"`
	BedNumber    *string `json:"bed_number,omitempty"`
	OTNumber     *string `json:"ot_number,omitempty"`
	SerialNumber *string `json:"serial_number,omitempty"`
	Description  string  `json:"description,omitempty"`
}

// Validate checks the kind and its required identity fields.
func (r *CreateRequest) Validate() error {
	var errs []string
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	if !ValidKind(r.Kind) {
		errs = append(errs, "kind must be one of: bed, operation_theatre, machine")
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	switch r.Kind {
	case KindBed:
		if r.WardID == nil || *r.WardID == "" {
			errs = append(errs, "ward_id is required for beds")
		}
		if r.BedNumber == nil || *r.BedNumber == "" {
			errs = append(errs, "bed_number is required for beds")
		}
	case KindOperationTheatre:
		if r.OTNumber == nil || *r.OTNumber == "" {
			errs = append(errs, "ot_number is required for operation theatres")
		}
	case KindMachine:
		if r.SerialNumber == nil || *r.SerialNumber == "" {
			errs = append(errs, "serial_number is required for machines")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// UpdateRequest carries a partial resource update. Kind is immutable.
type UpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	WardID       *string `json:"ward_id,omitempty"`
	BedNumber    *string `json:"bed_number,omitempty"`
	OTNumber     *string `json:"ot_number,omitempty"`
	SerialNumber *string `json:"serial_number,omitempty"`
	Description  *string `json:"description,omitempty"`
}
