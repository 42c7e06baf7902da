package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalid marks a request that failed validation.
	ErrInvalid = errors.New("invalid request")
	// ErrConflict is returned when a participant or resource is already
	// claimed in the requested window.
	ErrConflict = errors.New("scheduling conflict")
	// ErrForbidden is returned when the actor may not touch the booking.
	ErrForbidden = errors.New("not allowed")
	// ErrNotScheduled is returned for lifecycle changes on a booking that is
	// no longer scheduled.
	ErrNotScheduled = errors.New("booking is not scheduled")
)

// Participant is the slice of a user the allocator needs.
type Participant struct {
	ID     uuid.UUID
	Role   string
	Name   string
	Active bool
}

// Asset is the slice of a resource the allocator needs.
type Asset struct {
	ID     uuid.UUID
	Kind   string
	Label  string
	Status string
}

// UserDirectory resolves booking participants.
type UserDirectory interface {
	Participant(ctx context.Context, id uuid.UUID) (*Participant, error)
}

// ResourceDirectory resolves bookable assets and flips their status flag.
// SetStatus is called inside the allocation transaction so the flag can
// never drift from the booking rows.
type ResourceDirectory interface {
	Asset(ctx context.Context, id uuid.UUID) (*Asset, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Notifier delivers in-app notifications. Implementations write through the
// context so notifications commit or roll back with the booking.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message string) error
}

// TxRunner executes fn inside a serializable transaction bound to the
// context it passes down.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Service implements booking allocation and lifecycle.
type Service struct {
	repo      Repository
	users     UserDirectory
	resources ResourceDirectory
	notifier  Notifier
	inTx      TxRunner
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(repo Repository, users UserDirectory, resources ResourceDirectory, notifier Notifier, inTx TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		resources: resources,
		notifier:  notifier,
		inTx:      inTx,
		now:       time.Now,
		logger:    logger,
	}
}

// Actor identifies who is performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// Create allocates a booking. Every participant and resource is checked for
// overlap inside one serializable transaction; either the whole claim is
// written or none of it is.
func (s *Service) Create(ctx context.Context, actor Actor, req *CreateRequest) (*Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	start, end, err := req.Window(s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}

	// Patients may only book appointments for themselves.
	if actor.Role == "patient" {
		if req.PatientID != actor.UserID {
			return nil, fmt.Errorf("%w: patients can only book for themselves", ErrForbidden)
		}
		if req.Kind != KindAppointment {
			return nil, fmt.Errorf("%w: patients can only book appointments", ErrForbidden)
		}
	}

	if err := s.checkParticipants(ctx, req); err != nil {
		return nil, err
	}
	assets, err := s.checkAssets(ctx, req)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		ID:            uuid.New(),
		Kind:          req.Kind,
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		StaffIDs:      req.StaffIDs,
		ResourceIDs:   req.ResourceIDs,
		StartTime:     start,
		EndTime:       end,
		DurationHours: req.DurationHours,
		Status:        StatusScheduled,
		Notes:         req.Notes,
		CreatedBy:     actor.UserID,
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		conflicts, err := s.findConflicts(ctx, b, assets, uuid.Nil)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return conflictError(conflicts)
		}
		if err := s.repo.Create(ctx, b); err != nil {
			return err
		}
		for _, id := range b.ResourceIDs {
			if err := s.resources.SetStatus(ctx, id, "booked"); err != nil {
				return err
			}
		}
		return s.notifyParticipants(ctx, b, "Booking scheduled",
			fmt.Sprintf("A %s has been scheduled from %s to %s.",
				b.Kind, b.StartTime.Format(time.RFC3339), b.EndTime.Format(time.RFC3339)))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", b.ID.String()).
		Str("kind", b.Kind).
		Time("start", b.StartTime).
		Time("end", b.EndTime).
		Msg("booking created")
	return b, nil
}

func (s *Service) checkParticipants(ctx context.Context, req *CreateRequest) error {
	patient, err := s.users.Participant(ctx, req.PatientID)
	if err != nil {
		return fmt.Errorf("%w: patient not found", ErrInvalid)
	}
	if patient.Role != "patient" {
		return fmt.Errorf("%w: patient_id does not refer to a patient", ErrInvalid)
	}
	if !patient.Active {
		return fmt.Errorf("%w: patient account is deactivated", ErrInvalid)
	}

	doctor, err := s.users.Participant(ctx, req.DoctorID)
	if err != nil {
		return fmt.Errorf("%w: doctor not found", ErrInvalid)
	}
	if doctor.Role != "doctor" {
		return fmt.Errorf("%w: doctor_id does not refer to a doctor", ErrInvalid)
	}
	if !doctor.Active {
		return fmt.Errorf("%w: doctor account is deactivated", ErrInvalid)
	}

	for _, id := range req.StaffIDs {
		member, err := s.users.Participant(ctx, id)
		if err != nil {
			return fmt.Errorf("%w: staff member %s not found", ErrInvalid, id)
		}
		if member.Role != "nurse" && member.Role != "staff" {
			return fmt.Errorf("%w: %s is not nursing or technical staff", ErrInvalid, member.Name)
		}
		if !member.Active {
			return fmt.Errorf("%w: staff member %s is deactivated", ErrInvalid, member.Name)
		}
	}
	return nil
}

// checkAssets resolves every requested resource and enforces the kind rules:
// a surgery needs an operation theatre, a test needs a machine.
func (s *Service) checkAssets(ctx context.Context, req *CreateRequest) (map[uuid.UUID]*Asset, error) {
	assets := make(map[uuid.UUID]*Asset, len(req.ResourceIDs))
	for _, id := range req.ResourceIDs {
		a, err := s.resources.Asset(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: resource %s not found", ErrInvalid, id)
		}
		if a.Status == "maintenance" {
			return nil, fmt.Errorf("%w: %s is under maintenance", ErrInvalid, a.Label)
		}
		assets[id] = a
	}

	hasKind := func(kind string) bool {
		for _, a := range assets {
			if a.Kind == kind {
				return true
			}
		}
		return false
	}
	switch req.Kind {
	case KindSurgery:
		if !hasKind("operation_theatre") {
			return nil, fmt.Errorf("%w: a surgery requires an operation theatre", ErrInvalid)
		}
	case KindTest:
		if !hasKind("machine") {
			return nil, fmt.Errorf("%w: a test requires a machine", ErrInvalid)
		}
	}
	return assets, nil
}

func (s *Service) findConflicts(ctx context.Context, b *Booking, assets map[uuid.UUID]*Asset, exclude uuid.UUID) ([]Conflict, error) {
	var conflicts []Conflict

	n, err := s.repo.CountDoctorOverlaps(ctx, b.DoctorID, b.StartTime, b.EndTime, exclude)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		conflicts = append(conflicts, Conflict{Type: "doctor", ID: b.DoctorID, Label: b.DoctorID.String()})
	}

	for _, staffID := range b.StaffIDs {
		n, err := s.repo.CountStaffOverlaps(ctx, staffID, b.StartTime, b.EndTime, exclude)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			conflicts = append(conflicts, Conflict{Type: "staff", ID: staffID, Label: staffID.String()})
		}
	}

	for _, resourceID := range b.ResourceIDs {
		n, err := s.repo.CountResourceOverlaps(ctx, resourceID, b.StartTime, b.EndTime, exclude)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			label := resourceID.String()
			if a, ok := assets[resourceID]; ok {
				label = a.Label
			}
			conflicts = append(conflicts, Conflict{Type: "resource", ID: resourceID, Label: label})
		}
	}
	return conflicts, nil
}

func conflictError(conflicts []Conflict) error {
	msgs := make([]string, len(conflicts))
	for i, c := range conflicts {
		msgs[i] = c.String()
	}
	return fmt.Errorf("%w: %s", ErrConflict, strings.Join(msgs, "; "))
}

func (s *Service) notifyParticipants(ctx context.Context, b *Booking, title, message string) error {
	recipients := append([]uuid.UUID{b.PatientID, b.DoctorID}, b.StaffIDs...)
	for _, id := range recipients {
		if err := s.notifier.Notify(ctx, id, title, message); err != nil {
			return err
		}
	}
	return nil
}

// CheckAvailability reports the conflicts a booking request would hit,
// without writing anything. The answer is advisory; Create re-checks inside
// its transaction.
func (s *Service) CheckAvailability(ctx context.Context, req *CreateRequest) ([]Conflict, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	start, end, err := req.Window(s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	assets, err := s.checkAssets(ctx, req)
	if err != nil {
		return nil, err
	}
	b := &Booking{
		DoctorID:    req.DoctorID,
		StaffIDs:    req.StaffIDs,
		ResourceIDs: req.ResourceIDs,
		StartTime:   start,
		EndTime:     end,
	}
	return s.findConflicts(ctx, b, assets, uuid.Nil)
}

// Get returns a booking if the actor is a participant, its creator or an
// admin.
func (s *Service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canSee(actor, b) {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *Service) canSee(actor Actor, b *Booking) bool {
	if actor.Role == "admin" || actor.UserID == b.CreatedBy {
		return true
	}
	if actor.UserID == b.PatientID || actor.UserID == b.DoctorID {
		return true
	}
	for _, id := range b.StaffIDs {
		if actor.UserID == id {
			return true
		}
	}
	return false
}

// List returns bookings visible to the actor. Patients see their own,
// doctors the ones they are assigned to, nurses and technical staff the
// ones they are allocated to, admins everything.
func (s *Service) List(ctx context.Context, actor Actor, f Filter) ([]*Booking, int, error) {
	switch actor.Role {
	case "patient":
		f.PatientID = actor.UserID
	case "doctor":
		f.DoctorID = actor.UserID
	case "nurse", "staff":
		f.StaffID = actor.UserID
	case "admin":
		// unrestricted
	default:
		return nil, 0, ErrForbidden
	}
	if f.Status != "" && f.Status != StatusScheduled && f.Status != StatusCompleted && f.Status != StatusCancelled {
		return nil, 0, fmt.Errorf("%w: invalid status filter", ErrInvalid)
	}
	if f.Kind != "" && !ValidKind(f.Kind) {
		return nil, 0, fmt.Errorf("%w: invalid kind filter", ErrInvalid)
	}
	return s.repo.List(ctx, f)
}

// Complete marks a scheduled booking done and releases its resources. Only
// the assigned doctor or an admin may complete a booking.
func (s *Service) Complete(ctx context.Context, actor Actor, id uuid.UUID) (*Booking, error) {
	return s.finish(ctx, actor, id, StatusCompleted)
}

// Cancel voids a scheduled booking and releases its resources. The patient,
// the assigned doctor, the creator or an admin may cancel.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*Booking, error) {
	return s.finish(ctx, actor, id, StatusCancelled)
}

func (s *Service) finish(ctx context.Context, actor Actor, id uuid.UUID, status string) (*Booking, error) {
	var out *Booking
	err := s.inTx(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !s.mayFinish(actor, b, status) {
			return ErrForbidden
		}
		if b.Status != StatusScheduled {
			return ErrNotScheduled
		}
		if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		if err := s.repo.ReleaseAllocations(ctx, id, s.now()); err != nil {
			return err
		}
		// A resource goes back to available only when no other scheduled
		// booking still references it.
		for _, resourceID := range b.ResourceIDs {
			n, err := s.repo.CountResourceScheduled(ctx, resourceID, id)
			if err != nil {
				return err
			}
			if n == 0 {
				if err := s.resources.SetStatus(ctx, resourceID, "available"); err != nil {
					return err
				}
			}
		}
		b.Status = status
		out = b

		verb := "completed"
		if status == StatusCancelled {
			verb = "cancelled"
		}
		return s.notifyParticipants(ctx, b, "Booking "+verb,
			fmt.Sprintf("The %s on %s has been %s.", b.Kind, b.StartTime.Format(time.RFC3339), verb))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", id.String()).
		Str("status", status).
		Msg("booking closed")
	return out, nil
}

func (s *Service) mayFinish(actor Actor, b *Booking, status string) bool {
	if actor.Role == "admin" || actor.UserID == b.DoctorID {
		return true
	}
	if status == StatusCancelled {
		return actor.UserID == b.PatientID || actor.UserID == b.CreatedBy
	}
	return false
}

// Reschedule moves a scheduled booking to a new window, re-running the full
// conflict check with the booking itself excluded.
func (s *Service) Reschedule(ctx context.Context, actor Actor, id uuid.UUID, req *RescheduleRequest) (*Booking, error) {
	window := &CreateRequest{StartTime: req.StartTime, DurationHours: req.DurationHours}
	start, end, err := window.Window(s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}

	var out *Booking
	err = s.inTx(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if actor.Role != "admin" && actor.UserID != b.DoctorID && actor.UserID != b.CreatedBy {
			return ErrForbidden
		}
		if b.Status != StatusScheduled {
			return ErrNotScheduled
		}

		moved := *b
		moved.StartTime = start
		moved.EndTime = end
		moved.DurationHours = req.DurationHours
		conflicts, err := s.findConflicts(ctx, &moved, nil, id)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return conflictError(conflicts)
		}
		if err := s.repo.UpdateWindow(ctx, id, start, end); err != nil {
			return err
		}
		out = &moved

		return s.notifyParticipants(ctx, &moved, "Booking rescheduled",
			fmt.Sprintf("The %s has been moved to %s.", b.Kind, start.Format(time.RFC3339)))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
