package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orego/hospital/internal/platform/auth"
)

var (
	// ErrInvalid marks a request that failed validation.
	ErrInvalid = errors.New("invalid request")
	// ErrDuplicate marks a uniqueness violation on username, email or id card.
	ErrDuplicate = errors.New("already registered")
	// ErrInvalidCredentials is returned for a bad username/password pair.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInactive is returned when a deactivated account tries to sign in.
	ErrInactive = errors.New("account is deactivated")
	// ErrForbidden is returned when the actor may not touch the target user.
	ErrForbidden = errors.New("not allowed")
)

const (
	minPasswordLen  = 6
	resetTokenTTL   = 24 * time.Hour
	resetTokenBytes = 32
)

// Service implements user management and authentication.
type Service struct {
	repo   Repository
	issuer *auth.Issuer
	logger zerolog.Logger
}

func NewService(repo Repository, issuer *auth.Issuer, logger zerolog.Logger) *Service {
	return &Service{repo: repo, issuer: issuer, logger: logger}
}

// Register creates a user after validating the payload and checking that
// username, email and id card number are unused.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	if len(req.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalid, minPasswordLen)
	}

	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("%w: username", ErrDuplicate)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: email", ErrDuplicate)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, err := s.repo.GetByIDCard(ctx, req.IDCardNumber); err == nil {
		return nil, fmt.Errorf("%w: id card number", ErrDuplicate)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	birthday, _ := time.Parse("2006-01-02", req.Birthday)
	u := &User{
		ID:            uuid.New(),
		Username:      req.Username,
		PasswordHash:  hash,
		Role:          req.Role,
		Name:          req.Name,
		Birthday:      birthday,
		IDCardNumber:  req.IDCardNumber,
		Address:       req.Address,
		PhoneNumber:   req.PhoneNumber,
		Email:         req.Email,
		Speciality:    req.Speciality,
		MedicalStatus: req.MedicalStatus,
		OperationType: req.OperationType,
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", u.ID.String()).
		Str("role", u.Role).
		Msg("user registered")
	return u, nil
}

// Login verifies credentials and issues a token pair. Deactivated accounts
// are refused even with a correct password.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenPair, error) {
	u, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactive
	}

	now := time.Now().UTC()
	u.LastLogin = &now
	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("record last login")
	}

	return s.issueTokens(u)
}

// Refresh exchanges a valid refresh token for a fresh token pair. The user
// must still exist and be active.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.issuer.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, "bad refresh token")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInactive
	}
	return s.issueTokens(u)
}

func (s *Service) issueTokens(u *User) (*TokenPair, error) {
	access, err := s.issuer.AccessToken(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.issuer.RefreshToken(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies a partial update. Non-admins may only update themselves.
func (s *Service) Update(ctx context.Context, actor auth.Principal, id uuid.UUID, req *UpdateUserRequest) (*User, error) {
	if actor.Role != RoleAdmin && actor.UserID != id {
		return nil, ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != u.Email {
		if _, err := s.repo.GetByEmail(ctx, *req.Email); err == nil {
			return nil, fmt.Errorf("%w: email", ErrDuplicate)
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		u.Email = *req.Email
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Address != nil {
		u.Address = *req.Address
	}
	if req.PhoneNumber != nil {
		u.PhoneNumber = *req.PhoneNumber
	}
	if req.Speciality != nil {
		u.Speciality = req.Speciality
	}
	if req.MedicalStatus != nil {
		u.MedicalStatus = req.MedicalStatus
	}
	if req.OperationType != nil {
		u.OperationType = req.OperationType
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SetActive activates or deactivates an account. Deactivation does not
// revoke already issued tokens; they lapse at expiry.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsActive = active
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", id.String()).
		Bool("active", active).
		Msg("user active flag changed")
	return u, nil
}

// List returns users matching the filter plus the total count.
func (s *Service) List(ctx context.Context, f Filter) ([]*User, int, error) {
	if f.Role != "" && !ValidRole(f.Role) {
		return nil, 0, fmt.Errorf("%w: invalid role filter", ErrInvalid)
	}
	return s.repo.List(ctx, f)
}

// RequestPasswordReset generates a single-use reset token for the account
// holding the given email. The token is returned to the caller; delivery is
// out of band.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)
	expiry := time.Now().UTC().Add(resetTokenTTL)

	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	if err := s.repo.Update(ctx, u); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalid, minPasswordLen)
	}
	u, err := s.repo.GetByResetToken(ctx, token)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	u.ResetToken = nil
	u.ResetTokenExpiry = nil
	return s.repo.Update(ctx, u)
}

// ChangePassword verifies the current password before setting a new one.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalid, minPasswordLen)
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(current, u.PasswordHash) {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	return s.repo.Update(ctx, u)
}
