package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lifeline/lifeline/internal/platform/apperr"
	"github.com/lifeline/lifeline/internal/platform/websocket"
)

type mockRepo struct {
	items map[uuid.UUID]*Notification
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Notification)}
}

func (m *mockRepo) Create(_ context.Context, n *Notification) error {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	m.items[n.ID] = n
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Notification, error) {
	n, ok := m.items[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return n, nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	var items []*Notification
	for _, n := range m.items {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		items = append(items, n)
	}
	return items, len(items), nil
}

func (m *mockRepo) MarkRead(_ context.Context, id uuid.UUID) error {
	n, ok := m.items[id]
	if !ok {
		return errors.New("no rows")
	}
	n.IsRead = true
	return nil
}

func (m *mockRepo) MarkAllRead(_ context.Context, userID uuid.UUID) error {
	for _, n := range m.items {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

type mockBroadcaster struct {
	events []string
}

func (m *mockBroadcaster) Broadcast(event string, _ interface{}) {
	m.events = append(m.events, event)
}

func TestService_Notify(t *testing.T) {
	repo := newMockRepo()
	bc := &mockBroadcaster{}
	svc := NewService(repo, bc)

	userID := uuid.New()
	n, err := svc.Notify(context.Background(), userID, TypeEmergency,
		"New emergency", "Chest pain reported nearby", map[string]interface{}{"request_id": "r1"})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if n.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if n.IsRead {
		t.Error("new notifications must be unread")
	}
	if len(bc.events) != 1 || bc.events[0] != websocket.EventNotification {
		t.Errorf("expected one notification broadcast, got %v", bc.events)
	}
}

func TestService_Notify_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), &mockBroadcaster{})

	if _, err := svc.Notify(context.Background(), uuid.Nil, TypeEmergency, "t", "b", nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for nil user, got %v", err)
	}
	if _, err := svc.Notify(context.Background(), uuid.New(), TypeEmergency, "", "b", nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for empty title, got %v", err)
	}
}

func TestService_MarkRead_Ownership(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockBroadcaster{})

	owner := uuid.New()
	other := uuid.New()
	n, err := svc.Notify(context.Background(), owner, TypeAssignment, "Assigned", "", nil)
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if err := svc.MarkRead(context.Background(), other, n.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden for non-owner, got %v", err)
	}
	if err := svc.MarkRead(context.Background(), owner, n.ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if !repo.items[n.ID].IsRead {
		t.Error("expected notification to be read")
	}

	if err := svc.MarkRead(context.Background(), owner, uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_ListByUser_UnreadFilter(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockBroadcaster{})

	userID := uuid.New()
	read, _ := svc.Notify(context.Background(), userID, TypeEmergency, "a", "", nil)
	if _, err := svc.Notify(context.Background(), userID, TypeEmergency, "b", "", nil); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if err := svc.MarkRead(context.Background(), userID, read.ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	all, total, err := svc.ListByUser(context.Background(), userID, false, 20, 0)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("expected 2 notifications, got %d", total)
	}

	unread, total, err := svc.ListByUser(context.Background(), userID, true, 20, 0)
	if err != nil {
		t.Fatalf("ListByUser(unread) error = %v", err)
	}
	if total != 1 || len(unread) != 1 {
		t.Errorf("expected 1 unread notification, got %d", total)
	}
}

func TestService_MarkAllRead(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockBroadcaster{})

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		if _, err := svc.Notify(context.Background(), userID, TypeStatusChange, "t", "", nil); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
	}

	if err := svc.MarkAllRead(context.Background(), userID); err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	for _, n := range repo.items {
		if !n.IsRead {
			t.Error("expected every notification to be read")
		}
	}
}
