package discharge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalid marks a request that failed validation.
	ErrInvalid = errors.New("invalid request")
	// ErrForbidden is returned when the actor may not touch the discharge.
	ErrForbidden = errors.New("not allowed")
	// ErrNotPending is returned for edits or approval of a discharge that is
	// already approved.
	ErrNotPending = errors.New("discharge is not pending")
)

// Person is the slice of a user this package needs.
type Person struct {
	ID     uuid.UUID
	Role   string
	Name   string
	Active bool
}

// UserDirectory resolves patients and doctors.
type UserDirectory interface {
	Person(ctx context.Context, id uuid.UUID) (*Person, error)
}

// BedDirectory resolves the occupied bed and releases it on approval.
type BedDirectory interface {
	BedLabel(ctx context.Context, id uuid.UUID) (string, error)
	Release(ctx context.Context, id uuid.UUID) error
}

// Notifier delivers in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message string) error
}

// TxRunner executes fn inside a transaction bound to the context.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Actor identifies who is performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// Service implements discharge records and summary generation.
type Service struct {
	repo     Repository
	users    UserDirectory
	beds     BedDirectory
	notifier Notifier
	inTx     TxRunner
	now      func() time.Time
	logger   zerolog.Logger
}

func NewService(repo Repository, users UserDirectory, beds BedDirectory, notifier Notifier, inTx TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		beds:     beds,
		notifier: notifier,
		inTx:     inTx,
		now:      time.Now,
		logger:   logger,
	}
}

// Create records a pending discharge and renders its summary.
func (s *Service) Create(ctx context.Context, actor Actor, req *CreateRequest) (*Discharge, error) {
	admission, dischargeDate, err := req.Validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}

	patient, err := s.users.Person(ctx, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("%w: patient not found", ErrInvalid)
	}
	if patient.Role != "patient" {
		return nil, fmt.Errorf("%w: patient_id does not refer to a patient", ErrInvalid)
	}
	doctor, err := s.users.Person(ctx, req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("%w: doctor not found", ErrInvalid)
	}
	if doctor.Role != "doctor" {
		return nil, fmt.Errorf("%w: doctor_id does not refer to a doctor", ErrInvalid)
	}

	var bedLabel string
	if req.BedID != nil {
		bedLabel, err = s.beds.BedLabel(ctx, *req.BedID)
		if err != nil {
			return nil, fmt.Errorf("%w: bed not found", ErrInvalid)
		}
	}

	d := &Discharge{
		ID:            uuid.New(),
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		BedID:         req.BedID,
		AdmissionDate: admission,
		DischargeDate: dischargeDate,
		Diagnosis:     req.Diagnosis,
		Treatment:     req.Treatment,
		Medications:   req.Medications,
		FollowUp:      req.FollowUp,
		Status:        StatusPending,
		CreatedBy:     actor.UserID,
	}
	d.Summary = d.BuildSummary(SummaryInput{
		PatientName: patient.Name,
		DoctorName:  doctor.Name,
		BedLabel:    bedLabel,
	})

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("discharge_id", d.ID.String()).
		Str("patient_id", d.PatientID.String()).
		Msg("discharge recorded")
	return d, nil
}

// Get returns a discharge if the actor is its patient, doctor, creator or an
// admin.
func (s *Service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*Discharge, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canSee(actor, d) {
		return nil, ErrForbidden
	}
	return d, nil
}

func (s *Service) canSee(actor Actor, d *Discharge) bool {
	return actor.Role == "admin" ||
		actor.UserID == d.PatientID ||
		actor.UserID == d.DoctorID ||
		actor.UserID == d.CreatedBy
}

// List returns discharges visible to the actor.
func (s *Service) List(ctx context.Context, actor Actor, f Filter) ([]*Discharge, int, error) {
	switch actor.Role {
	case "patient":
		f.PatientID = actor.UserID
	case "doctor":
		f.DoctorID = actor.UserID
	case "nurse", "staff":
		f.CreatedBy = actor.UserID
	case "admin":
		// unrestricted
	default:
		return nil, 0, ErrForbidden
	}
	if f.Status != "" && f.Status != StatusPending && f.Status != StatusApproved {
		return nil, 0, fmt.Errorf("%w: invalid status filter", ErrInvalid)
	}
	return s.repo.List(ctx, f)
}

// Update amends a pending discharge and regenerates its summary. Only the
// assigned doctor, the creator or an admin may edit.
func (s *Service) Update(ctx context.Context, actor Actor, id uuid.UUID, req *UpdateRequest) (*Discharge, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != "admin" && actor.UserID != d.DoctorID && actor.UserID != d.CreatedBy {
		return nil, ErrForbidden
	}
	if d.Status != StatusPending {
		return nil, ErrNotPending
	}

	if req.DischargeDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.DischargeDate)
		if err != nil {
			return nil, fmt.Errorf("%w: discharge_date must be YYYY-MM-DD", ErrInvalid)
		}
		if !parsed.After(d.AdmissionDate) {
			return nil, fmt.Errorf("%w: discharge_date must be after admission_date", ErrInvalid)
		}
		d.DischargeDate = parsed
	}
	if req.Diagnosis != nil {
		d.Diagnosis = *req.Diagnosis
	}
	if req.Treatment != nil {
		d.Treatment = *req.Treatment
	}
	if req.Medications != nil {
		d.Medications = *req.Medications
	}
	if req.FollowUp != nil {
		d.FollowUp = *req.FollowUp
	}

	if err := s.regenerate(ctx, d); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// RegenerateSummary re-renders the summary from the stored record. For an
// unchanged record the output is identical to what is already stored.
func (s *Service) RegenerateSummary(ctx context.Context, actor Actor, id uuid.UUID) (*Discharge, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != "admin" && actor.UserID != d.DoctorID && actor.UserID != d.CreatedBy {
		return nil, ErrForbidden
	}
	if err := s.regenerate(ctx, d); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) regenerate(ctx context.Context, d *Discharge) error {
	patient, err := s.users.Person(ctx, d.PatientID)
	if err != nil {
		return fmt.Errorf("%w: patient not found", ErrInvalid)
	}
	doctor, err := s.users.Person(ctx, d.DoctorID)
	if err != nil {
		return fmt.Errorf("%w: doctor not found", ErrInvalid)
	}
	var bedLabel string
	if d.BedID != nil {
		bedLabel, err = s.beds.BedLabel(ctx, *d.BedID)
		if err != nil {
			return fmt.Errorf("%w: bed not found", ErrInvalid)
		}
	}
	d.Summary = d.BuildSummary(SummaryInput{
		PatientName: patient.Name,
		DoctorName:  doctor.Name,
		BedLabel:    bedLabel,
	})
	return nil
}

// Approve finalizes a pending discharge. Only the assigned doctor or an
// admin may approve; any other caller gets ErrForbidden. The bed release and
// patient notification commit atomically with the status change.
func (s *Service) Approve(ctx context.Context, actor Actor, id uuid.UUID) (*Discharge, error) {
	var out *Discharge
	err := s.inTx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if actor.Role != "admin" && actor.UserID != d.DoctorID {
			return ErrForbidden
		}
		if d.Status != StatusPending {
			return ErrNotPending
		}

		now := s.now().UTC()
		d.Status = StatusApproved
		d.ApprovedBy = &actor.UserID
		d.ApprovedAt = &now
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		if d.BedID != nil {
			if err := s.beds.Release(ctx, *d.BedID); err != nil {
				return err
			}
		}
		out = d
		return s.notifier.Notify(ctx, d.PatientID, "Discharge approved",
			fmt.Sprintf("Your discharge dated %s has been approved.", d.DischargeDate.Format("2006-01-02")))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("discharge_id", id.String()).
		Str("approved_by", actor.UserID.String()).
		Msg("discharge approved")
	return out, nil
}
