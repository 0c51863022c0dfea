package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/lifeline/lifeline/internal/platform/auth"
)

func newTestHub() *Hub {
	return NewHub(zerolog.Nop())
}

func newTestIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer("test-secret", 15*time.Minute, time.Hour)
}

func TestHub_RegisterClient(t *testing.T) {
	hub := newTestHub()
	client := &Client{
		ID:   "client-1",
		Send: make(chan []byte, 256),
		hub:  hub,
	}

	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
}

func TestHub_UnregisterClient(t *testing.T) {
	hub := newTestHub()
	client := &Client{
		ID:   "client-2",
		Send: make(chan []byte, 256),
		hub:  hub,
	}

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := newTestHub()

	c1 := &Client{ID: "all-1", Send: make(chan []byte, 256), hub: hub}
	c2 := &Client{ID: "all-2", Send: make(chan []byte, 256), hub: hub}

	hub.Register(c1)
	hub.Register(c2)

	hub.Broadcast(EventEmergency, map[string]string{"id": "req-1"})

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.Send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("failed to unmarshal: %v", err)
			}
			if received.Event != EventEmergency {
				t.Fatalf("expected %s, got %s", EventEmergency, received.Event)
			}
			if received.Timestamp.IsZero() {
				t.Fatal("expected timestamp to be set")
			}
		case <-time.After(time.Second):
			t.Fatalf("client %s did not receive broadcast", c.ID)
		}
	}
}

func TestHub_BroadcastSkipsSlowClient(t *testing.T) {
	hub := newTestHub()

	// Buffer of 1, already full
	slow := &Client{ID: "slow-1", Send: make(chan []byte, 1), hub: hub}
	slow.Send <- []byte("stale")
	fast := &Client{ID: "fast-1", Send: make(chan []byte, 256), hub: hub}

	hub.Register(slow)
	hub.Register(fast)

	// Must not block even though the slow client cannot accept the event
	done := make(chan struct{})
	go func() {
		hub.Broadcast(EventStatusUpdate, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on slow client")
	}

	select {
	case <-fast.Send:
	case <-time.After(time.Second):
		t.Fatal("fast client did not receive event")
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := newTestHub()

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0, got %d", hub.ClientCount())
	}

	clients := make([]*Client, 5)
	for i := range clients {
		clients[i] = &Client{
			ID:   "count-" + string(rune('a'+i)),
			Send: make(chan []byte, 256),
			hub:  hub,
		}
		hub.Register(clients[i])
	}

	if hub.ClientCount() != 5 {
		t.Fatalf("expected 5, got %d", hub.ClientCount())
	}

	hub.Unregister(clients[0])
	hub.Unregister(clients[1])

	if hub.ClientCount() != 3 {
		t.Fatalf("expected 3, got %d", hub.ClientCount())
	}
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	hub := newTestHub()
	client := &Client{
		ID:   "close-1",
		Send: make(chan []byte, 256),
		hub:  hub,
	}

	hub.Register(client)
	hub.Unregister(client)

	// Reading from a closed channel returns zero value immediately
	_, ok := <-client.Send
	if ok {
		t.Fatal("expected Send channel to be closed after unregister")
	}
}

func TestHub_UnregisterTwiceIsSafe(t *testing.T) {
	hub := newTestHub()
	client := &Client{
		ID:   "double-1",
		Send: make(chan []byte, 256),
		hub:  hub,
	}

	hub.Register(client)
	hub.Unregister(client)
	// Second unregister must not panic on the closed channel
	hub.Unregister(client)
}

func TestHub_BroadcastWithNoClients(t *testing.T) {
	hub := newTestHub()
	// Should not panic
	hub.Broadcast(EventStatsUpdated, nil)
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := newTestHub()
	const n = 100

	var wg sync.WaitGroup
	wg.Add(n * 2)

	clients := make([]*Client, n)
	for i := 0; i < n; i++ {
		clients[i] = &Client{
			ID:   "concurrent-" + string(rune(i)),
			Send: make(chan []byte, 256),
			hub:  hub,
		}
	}

	// Register all concurrently
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			hub.Register(clients[idx])
		}(i)
	}

	// Unregister all concurrently
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			hub.Unregister(clients[idx])
		}(i)
	}

	wg.Wait()

	count := hub.ClientCount()
	if count < 0 {
		t.Fatalf("client count should not be negative, got %d", count)
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	handler := NewHandler(newTestHub(), newTestIssuer())

	e := echo.New()
	g := e.Group("")
	handler.RegisterRoutes(g)

	routes := e.Routes()
	found := false
	for _, r := range routes {
		if r.Path == "/ws" && r.Method == http.MethodGet {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected GET /ws route to be registered")
	}
}

func TestHandler_RejectsMissingToken(t *testing.T) {
	handler := NewHandler(newTestHub(), newTestIssuer())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.HandleConnect(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestHandler_RejectsInvalidToken(t *testing.T) {
	handler := NewHandler(newTestHub(), newTestIssuer())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws?token=garbage", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.HandleConnect(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestHandler_AcceptsBearerHeader(t *testing.T) {
	hub := newTestHub()
	issuer := newTestIssuer()
	handler := NewHandler(hub, issuer)

	e := echo.New()
	g := e.Group("")
	handler.RegisterRoutes(g)

	server := httptest.NewServer(e)
	defer server.Close()

	token, err := issuer.IssueAccess("user-header", "HOSPITAL", "")
	if err != nil {
		t.Fatalf("IssueAccess() error = %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	dialer := gorillawebsocket.Dialer{}
	conn, resp, err := dialer.Dial(wsURL, http.Header{"Authorization": {"Bearer " + token}})
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
}

func TestHandler_FullUpgradeWithDialer(t *testing.T) {
	hub := newTestHub()
	issuer := newTestIssuer()
	handler := NewHandler(hub, issuer)

	e := echo.New()
	g := e.Group("")
	handler.RegisterRoutes(g)

	server := httptest.NewServer(e)
	defer server.Close()

	token, err := issuer.IssueAccess("user-ws", "EMERGENCY_CENTER", "")
	if err != nil {
		t.Fatalf("IssueAccess() error = %v", err)
	}

	// Convert http URL to ws URL
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token

	dialer := gorillawebsocket.Dialer{}
	conn, resp, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	// Give the goroutine a moment to register
	time.Sleep(50 * time.Millisecond)
	if hub.ClientCount() < 1 {
		t.Fatal("expected at least 1 client registered after connect")
	}

	hub.Broadcast(EventEmergency, map[string]string{"id": "req-ws"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received Event
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if received.Event != EventEmergency {
		t.Fatalf("expected %s, got %s", EventEmergency, received.Event)
	}
}
