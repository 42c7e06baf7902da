package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalid marks a request that failed validation.
	ErrInvalid = errors.New("invalid request")
	// ErrInUse is returned when deleting a resource that is currently booked.
	ErrInUse = errors.New("resource is in use")
)

// Service implements the resource registry.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create registers a new resource. It starts out available.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Resource, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	res := &Resource{
		ID:           uuid.New(),
		Kind:         req.Kind,
		Name:         req.Name,
		Status:       StatusAvailable,
		WardID:       req.WardID,
		BedNumber:    req.BedNumber,
		OTNumber:     req.OTNumber,
		SerialNumber: req.SerialNumber,
		Description:  req.Description,
	}
	if err := s.repo.Create(ctx, res); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("resource_id", res.ID.String()).
		Str("kind", res.Kind).
		Msg("resource registered")
	return res, nil
}

// Get returns a resource by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Resource, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies a partial update. Kind and status are not touched here;
// status moves through SetMaintenance/ClearMaintenance and the booking flow.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Resource, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalid)
		}
		res.Name = *req.Name
	}
	if req.WardID != nil {
		res.WardID = req.WardID
	}
	if req.BedNumber != nil {
		res.BedNumber = req.BedNumber
	}
	if req.OTNumber != nil {
		res.OTNumber = req.OTNumber
	}
	if req.SerialNumber != nil {
		res.SerialNumber = req.SerialNumber
	}
	if req.Description != nil {
		res.Description = *req.Description
	}
	if err := s.repo.Update(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// SetMaintenance takes a resource out of service. Booked resources can be
// flagged too; existing bookings are not cancelled.
func (s *Service) SetMaintenance(ctx context.Context, id uuid.UUID) (*Resource, error) {
	return s.setStatus(ctx, id, StatusMaintenance)
}

// ClearMaintenance returns a resource to service.
func (s *Service) ClearMaintenance(ctx context.Context, id uuid.UUID) (*Resource, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status != StatusMaintenance {
		return nil, fmt.Errorf("%w: resource is not under maintenance", ErrInvalid)
	}
	return s.setStatus(ctx, id, StatusAvailable)
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, status string) (*Resource, error) {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("resource_id", id.String()).
		Str("status", status).
		Msg("resource status changed")
	return s.repo.GetByID(ctx, id)
}

// Delete removes a resource from the registry. A resource whose status says
// it is booked is refused; cancel or complete its bookings first.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if res.Status == StatusBooked {
		return ErrInUse
	}
	return s.repo.Delete(ctx, id)
}

// List returns resources matching the filter plus the total count.
func (s *Service) List(ctx context.Context, f Filter) ([]*Resource, int, error) {
	if f.Kind != "" && !ValidKind(f.Kind) {
		return nil, 0, fmt.Errorf("%w: invalid kind filter", ErrInvalid)
	}
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, fmt.Errorf("%w: invalid status filter", ErrInvalid)
	}
	return s.repo.List(ctx, f)
}
