package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Booking kinds.
const (
	KindAppointment = "appointment"
	KindSurgery     = "surgery"
	KindTest        = "test"
)

// Booking statuses. Only scheduled bookings hold their participants and
// resources; completed and cancelled ones never conflict with anything.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var validKinds = map[string]bool{
	KindAppointment: true, KindSurgery: true, KindTest: true,
}

func ValidKind(kind string) bool { return validKinds[kind] }

// Booking is a scheduled claim on a doctor, zero or more supporting staff
// and zero or more resources over a time window.
type Booking struct {
	ID            uuid.UUID   `json:"id"`
	Kind          string      `json:"kind"`
	PatientID     uuid.UUID   `json:"patient_id"`
	DoctorID      uuid.UUID   `json:"doctor_id"`
	StaffIDs      []uuid.UUID `json:"staff_ids"`
	ResourceIDs   []uuid.UUID `json:"resource_ids"`
	StartTime     time.Time   `json:"start_time"`
	EndTime       time.Time   `json:"end_time"`
	DurationHours float64     `json:"duration_hours"`
	Status        string      `json:"status"`
	Notes         string      `json:"notes,omitempty"`
	CreatedBy     uuid.UUID   `json:"created_by"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back windows do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// CreateRequest carries the fields needed to schedule a booking. The start
// is RFC 3339 and the window length comes as a duration in hours.
type CreateRequest struct {
	Kind          string      `json:"kind"`
	PatientID     uuid.UUID   `json:"patient_id"`
	DoctorID      uuid.UUID   `json:"doctor_id"`
	StaffIDs      []uuid.UUID `json:"staff_ids,omitempty"`
	ResourceIDs   []uuid.UUID `json:"resource_ids,omitempty"`
	StartTime     string      `json:"start_time"`
	DurationHours float64     `json:"duration_hours"`
	Notes         string      `json:"notes,omitempty"`
}

// Window validates the requested start and duration and computes the end of
// the window from them.
func (r *CreateRequest) Window(now time.Time) (start, end time.Time, err error) {
	start, err = time.Parse(time.RFC3339, r.StartTime)
	if err != nil {
		return start, end, fmt.Errorf("start_time must be RFC 3339")
	}
	if r.DurationHours <= 0 {
		return start, end, fmt.Errorf("duration_hours must be positive")
	}
	end = start.Add(time.Duration(r.DurationHours * float64(time.Hour)))
	if start.Before(now) {
		return start, end, fmt.Errorf("start_time is in the past")
	}
	return start, end, nil
}

// Validate checks everything except the time window and referenced entities.
func (r *CreateRequest) Validate() error {
	var errs []string
	if !ValidKind(r.Kind) {
		errs = append(errs, "kind must be one of: appointment, surgery, test")
	}
	if r.PatientID == uuid.Nil {
		errs = append(errs, "patient_id is required")
	}
	if r.DoctorID == uuid.Nil {
		errs = append(errs, "doctor_id is required")
	}
	seen := make(map[uuid.UUID]bool)
	for _, id := range r.StaffIDs {
		if seen[id] {
			errs = append(errs, "duplicate staff id "+id.String())
		}
		seen[id] = true
	}
	seen = make(map[uuid.UUID]bool)
	for _, id := range r.ResourceIDs {
		if seen[id] {
			errs = append(errs, "duplicate resource id "+id.String())
		}
		seen[id] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// RescheduleRequest moves an existing booking to a new window.
type RescheduleRequest struct {
	StartTime     string  `json:"start_time"`
	DurationHours float64 `json:"duration_hours"`
}

// Conflict describes one reason a requested window cannot be allocated.
type Conflict struct {
	Type  string    `json:"type"` // doctor, staff or resource
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s %s is not available in the requested window", c.Type, c.Label)
}
