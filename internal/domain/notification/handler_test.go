package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lifeline/lifeline/internal/platform/auth"
)

func newTestHandler() (*Handler, *mockRepo, uuid.UUID) {
	repo := newMockRepo()
	svc := NewService(repo, &mockBroadcaster{})
	return NewHandler(svc), repo, uuid.New()
}

func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID uuid.UUID) echo.Context {
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID.String())
	c := e.NewContext(req.WithContext(ctx), rec)
	return c
}

func TestHandler_List(t *testing.T) {
	h, _, userID := newTestHandler()
	if _, err := h.svc.Notify(context.Background(), userID, TypeEmergency, "New emergency", "", nil); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, userID)

	if err := h.List(c); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Data  []*Notification `json:"data"`
		Total int             `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Total != 1 || len(body.Data) != 1 {
		t.Errorf("expected 1 notification, got total=%d len=%d", body.Total, len(body.Data))
	}
}

func TestHandler_List_UnreadFilter(t *testing.T) {
	h, _, userID := newTestHandler()
	read, _ := h.svc.Notify(context.Background(), userID, TypeEmergency, "a", "", nil)
	if _, err := h.svc.Notify(context.Background(), userID, TypeEmergency, "b", "", nil); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if err := h.svc.MarkRead(context.Background(), userID, read.ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?unread=true", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, userID)

	if err := h.List(c); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	var body struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Total != 1 {
		t.Errorf("expected 1 unread notification, got %d", body.Total)
	}
}

func TestHandler_List_MissingAuth(t *testing.T) {
	h, _, _ := newTestHandler()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.List(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}

func TestHandler_MarkRead(t *testing.T) {
	h, repo, userID := newTestHandler()
	n, err := h.svc.Notify(context.Background(), userID, TypeAssignment, "Assigned", "", nil)
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notifications/"+n.ID.String()+"/read", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, userID)
	c.SetParamNames("id")
	c.SetParamValues(n.ID.String())

	if err := h.MarkRead(c); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if !repo.items[n.ID].IsRead {
		t.Error("expected notification marked read")
	}
}

func TestHandler_MarkRead_OtherUser(t *testing.T) {
	h, _, userID := newTestHandler()
	n, err := h.svc.Notify(context.Background(), userID, TypeAssignment, "Assigned", "", nil)
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notifications/"+n.ID.String()+"/read", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(n.ID.String())

	if err := h.MarkRead(c); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestHandler_MarkAllRead(t *testing.T) {
	h, repo, userID := newTestHandler()
	for i := 0; i < 2; i++ {
		if _, err := h.svc.Notify(context.Background(), userID, TypeStatusChange, "t", "", nil); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, userID)

	if err := h.MarkAllRead(c); err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	for _, n := range repo.items {
		if !n.IsRead {
			t.Error("expected every notification to be read")
		}
	}
}
