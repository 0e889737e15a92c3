package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/fuomag9/colive-web/internal/flow"
	"github.com/fuomag9/colive-web/internal/models"
	"github.com/fuomag9/colive-web/internal/store"
)

func newTestServer(t *testing.T, delay time.Duration) (*httptest.Server, *store.Memory, chan *flow.Scheduled) {
	t.Helper()

	tickets := store.NewMemory()
	h := flow.NewHandoff("ljlcolive", "com.example.app", "auth/callback", delay)
	s := NewHandoffServer(tickets, h, []string{"http://localhost:3000"})

	settled := make(chan *flow.Scheduled, 1)
	s.observe = func(sc *flow.Scheduled) { settled <- sc }

	srv := httptest.NewServer(http.HandlerFunc(s.HandleWebSocket))
	t.Cleanup(srv.Close)
	return srv, tickets, settled
}

func issueTicket(t *testing.T, tickets *store.Memory, id string) {
	t.Helper()
	err := tickets.SaveTicket(context.Background(), &models.HandoffTicket{ID: id, ExpiresAt: time.Now().Add(time.Minute)})
	if err != nil {
		t.Fatalf("save ticket: %v", err)
	}
}

func dial(t *testing.T, srv *httptest.Server, ticket string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/?ticket="+ticket, nil)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func navigateURI(t *testing.T, msg Message) string {
	t.Helper()
	if msg.Type != TypeNavigate {
		t.Fatalf("message type = %q, want %q", msg.Type, TypeNavigate)
	}
	var payload NavigatePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return payload.URI
}

func TestHandoffSendsIntentThenDeepLink(t *testing.T) {
	srv, tickets, settled := newTestServer(t, 20*time.Millisecond)
	issueTicket(t, tickets, "ticket-1")

	conn, _, err := dial(t, srv, "ticket-1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	if got := navigateURI(t, readMessage(t, conn)); got != "intent://auth/callback?confirmed=1#Intent;scheme=ljlcolive;package=com.example.app;end;" {
		t.Fatalf("first navigation = %q", got)
	}
	if got := navigateURI(t, readMessage(t, conn)); got != "ljlcolive://auth/callback?confirmed=1" {
		t.Fatalf("second navigation = %q", got)
	}
	if msg := readMessage(t, conn); msg.Type != TypeDone {
		t.Fatalf("final message = %q, want done", msg.Type)
	}

	select {
	case sc := <-settled:
		if !sc.Fired() {
			t.Fatal("deep link should have fired")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hand-off never settled")
	}
}

func TestHandoffCancelledWhenPageCloses(t *testing.T) {
	srv, tickets, settled := newTestServer(t, 10*time.Second)
	issueTicket(t, tickets, "ticket-2")

	conn, _, err := dial(t, srv, "ticket-2")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	navigateURI(t, readMessage(t, conn))
	conn.Close(websocket.StatusGoingAway, "page hidden")

	select {
	case sc := <-settled:
		if sc.Fired() {
			t.Fatal("deep link fired after the page went away")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("closing the page did not cancel the hand-off")
	}
}

func TestHandoffTicketIsSingleUse(t *testing.T) {
	srv, tickets, _ := newTestServer(t, 10*time.Millisecond)
	issueTicket(t, tickets, "ticket-3")

	conn, _, err := dial(t, srv, "ticket-3")
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	defer conn.CloseNow()

	_, resp, err := dial(t, srv, "ticket-3")
	if err == nil {
		t.Fatal("second dial with the same ticket must fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("second dial response = %+v, want 401", resp)
	}
}

func TestHandoffRejectsMissingTicket(t *testing.T) {
	srv, _, _ := newTestServer(t, 10*time.Millisecond)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestOriginPatterns(t *testing.T) {
	got := originPatterns([]string{"https://colive.example.com", "http://localhost:3000", "not a url"})
	want := []string{"colive.example.com", "localhost:3000"}
	if len(got) != len(want) {
		t.Fatalf("originPatterns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("originPatterns = %v, want %v", got, want)
		}
	}
}
