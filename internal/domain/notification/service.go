package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalid marks a request that failed validation.
	ErrInvalid = errors.New("invalid request")
	// ErrForbidden is returned when touching someone else's notification.
	ErrForbidden = errors.New("not allowed")
)

// RecipientDirectory resolves broadcast audiences.
type RecipientDirectory interface {
	ActiveUserIDs(ctx context.Context, role string) ([]uuid.UUID, error)
}

// Service implements in-app notifications.
type Service struct {
	repo       Repository
	recipients RecipientDirectory
	logger     zerolog.Logger
}

func NewService(repo Repository, recipients RecipientDirectory, logger zerolog.Logger) *Service {
	return &Service{repo: repo, recipients: recipients, logger: logger}
}

// Notify writes a notification for one user. It is also called by the
// booking and discharge flows through their Notifier ports; the write joins
// whatever transaction is bound to the context.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, title, message string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: user_id is required", ErrInvalid)
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	n := &Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Title:   title,
		Message: message,
	}
	return s.repo.Create(ctx, n)
}

// ListResult is a notification page plus the recipient's unread total.
type ListResult struct {
	Notifications []*Notification `json:"notifications"`
	Total         int             `json:"total"`
	UnreadCount   int             `json:"unread_count"`
}

// ListOwn returns the caller's notifications with the unread counter.
func (s *Service) ListOwn(ctx context.Context, userID uuid.UUID, f Filter) (*ListResult, error) {
	notifications, total, err := s.repo.ListForUser(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []*Notification{}
	}
	return &ListResult{Notifications: notifications, Total: total, UnreadCount: unread}, nil
}

// MarkRead flags one of the caller's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrForbidden
	}
	return s.repo.MarkRead(ctx, id)
}

// MarkAllRead flags every unread notification of the caller and reports how
// many were touched.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// Delete removes one of the caller's notifications.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

// Send delivers an admin-authored notification to one user.
func (s *Service) Send(ctx context.Context, req *CreateRequest) error {
	return s.Notify(ctx, req.UserID, req.Title, req.Message)
}

// Broadcast delivers a notification to every active user, or to every
// active user of one role. It returns the number of recipients.
func (s *Service) Broadcast(ctx context.Context, req *BroadcastRequest) (int, error) {
	if strings.TrimSpace(req.Title) == "" {
		return 0, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	ids, err := s.recipients.ActiveUserIDs(ctx, req.Role)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.Notify(ctx, id, req.Title, req.Message); err != nil {
			return 0, err
		}
	}
	s.logger.Info().
		Int("recipients", len(ids)).
		Str("role", req.Role).
		Msg("notification broadcast")
	return len(ids), nil
}
