package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/lifeline/lifeline/internal/platform/apperr"
	"github.com/lifeline/lifeline/internal/platform/websocket"
)

// Broadcaster pushes real-time refresh hints to connected dashboards.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

type Service struct {
	repo      Repository
	broadcast Broadcaster
}

func NewService(repo Repository, broadcast Broadcaster) *Service {
	return &Service{repo: repo, broadcast: broadcast}
}

// Notify persists a notification row for the user and broadcasts a
// notification event. Callers invoke this strictly after their own
// transactions commit; a failure here must not undo committed state.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, typ, title, body string, metadata map[string]interface{}) (*Notification, error) {
	if userID == uuid.Nil {
		return nil, apperr.Validation("user_id is required")
	}
	if title == "" {
		return nil, apperr.Validation("title is required")
	}

	n := &Notification{
		UserID:   userID,
		Type:     typ,
		Title:    title,
		Body:     body,
		Metadata: metadata,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, apperr.Internal(err)
	}

	s.broadcast.Broadcast(websocket.EventNotification, map[string]interface{}{
		"user_id": userID,
		"type":    typ,
		"title":   title,
	})
	return n, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

// MarkRead marks one notification read. The caller must own it.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return apperr.NotFound("notification")
	}
	if n.UserID != userID {
		return apperr.Forbidden("notification belongs to another user")
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
