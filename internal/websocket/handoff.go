package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"nhooyr.io/websocket"

	"github.com/fuomag9/colive-web/internal/flow"
	"github.com/fuomag9/colive-web/internal/models"
	"github.com/fuomag9/colive-web/internal/store"
)

// Message types sent to the confirmation page
const (
	TypeNavigate = "navigate"
	TypeDone     = "done"
)

// Message represents a WebSocket message
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NavigatePayload tells the page where to send the browser
type NavigatePayload struct {
	URI string `json:"uri"`
}

// TicketConsumer redeems single-use hand-off tickets
type TicketConsumer interface {
	ConsumeTicket(ctx context.Context, id string) (*models.HandoffTicket, error)
}

// Client represents a connected confirmation page
type Client struct {
	ID           string
	Conn         *websocket.Conn
	writeTimeout time.Duration
}

// HandoffServer drives the mobile hand-off of confirmed pages. The page lives
// as long as its connection: closing it cancels the pending deep link.
type HandoffServer struct {
	tickets        TicketConsumer
	handoff        flow.Handoff
	allowedOrigins []string
	writeTimeout   time.Duration

	// observe is called once the hand-off of a connection has settled
	observe func(*flow.Scheduled)
}

// NewHandoffServer creates a hand-off server accepting pages from allowedOrigins
func NewHandoffServer(tickets TicketConsumer, handoff flow.Handoff, allowedOrigins []string) *HandoffServer {
	return &HandoffServer{
		tickets:        tickets,
		handoff:        handoff,
		allowedOrigins: originPatterns(allowedOrigins),
		writeTimeout:   5 * time.Second,
	}
}

// HandleWebSocket handles WebSocket connections
func (s *HandoffServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticketID := r.URL.Query().Get("ticket")
	if ticketID == "" {
		http.Error(w, "Missing ticket", http.StatusUnauthorized)
		return
	}

	if _, err := s.tickets.ConsumeTicket(r.Context(), ticketID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("WebSocket hand-off rejected: unknown or used ticket from %s", r.RemoteAddr)
			http.Error(w, "Invalid ticket", http.StatusUnauthorized)
			return
		}
		log.Printf("WebSocket hand-off: failed to consume ticket: %v", err)
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.allowedOrigins,
	})
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.CloseNow()

	client := &Client{
		ID:           r.RemoteAddr,
		Conn:         conn,
		writeTimeout: s.writeTimeout,
	}

	// The page never sends anything; the context ends when it goes away.
	ctx := conn.CloseRead(context.Background())

	scheduled, err := s.handoff.Start(ctx, flow.NavigatorFunc(client.navigate))
	if err != nil {
		logWriteError(client.ID, err)
		return
	}
	<-scheduled.Done()

	if s.observe != nil {
		s.observe(scheduled)
	}

	if !scheduled.Fired() {
		log.Printf("WebSocket hand-off cancelled: %s went away before the deep link", client.ID)
		return
	}
	if err := scheduled.Err(); err != nil {
		logWriteError(client.ID, err)
		return
	}

	if err := client.send(ctx, TypeDone, struct{}{}); err != nil {
		logWriteError(client.ID, err)
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func (c *Client) navigate(ctx context.Context, uri string) error {
	return c.send(ctx, TypeNavigate, NavigatePayload{URI: uri})
}

func (c *Client) send(ctx context.Context, msgType string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msgJSON, err := json.Marshal(Message{
		Type:    msgType,
		Payload: payloadJSON,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return c.Conn.Write(ctx, websocket.MessageText, msgJSON)
}

// logWriteError only logs unexpected write errors
func logWriteError(clientID string, err error) {
	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure ||
		status == websocket.StatusGoingAway ||
		status == websocket.StatusNoStatusRcvd ||
		errors.Is(err, context.Canceled) {
		return
	}
	log.Printf("WebSocket unexpected write error for %s: %v", clientID, err)
}

// originPatterns turns configured origins into the host patterns Accept expects
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}
