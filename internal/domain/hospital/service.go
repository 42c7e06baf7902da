package hospital

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrInvalid marks a request that failed validation.
var ErrInvalid = errors.New("invalid request")

// Service manages the hospital record.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Get returns the hospital record.
func (s *Service) Get(ctx context.Context) (*Info, error) {
	return s.repo.Get(ctx)
}

// Update replaces the hospital record, creating it on first use.
func (s *Service) Update(ctx context.Context, req *UpdateRequest) (*Info, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	info := &Info{
		Name:        req.Name,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Description: req.Description,
	}
	if err := s.repo.Upsert(ctx, info); err != nil {
		return nil, err
	}
	s.logger.Info().Str("name", info.Name).Msg("hospital info updated")
	return info, nil
}
