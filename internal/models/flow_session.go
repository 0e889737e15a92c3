package models

import (
	"time"

	"github.com/fuomag9/colive-web/internal/identity"
)

// FlowSession keeps a redeemed reset link alive between the page load and the
// password submission. It is referenced by an HttpOnly cookie.
type FlowSession struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid"`
	Variant      string    `json:"variant" gorm:"not null"`
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token" gorm:"not null"`
	RefreshToken string    `json:"refresh_token"`
	TokenExpiry  int64     `json:"token_expiry"`
	Ready        bool      `json:"ready" gorm:"not null;default:false"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for FlowSession
func (FlowSession) TableName() string {
	return "flow_sessions"
}

// IsExpired checks if the flow session has expired
func (s *FlowSession) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Session rebuilds the identity session the flow session was created from
func (s *FlowSession) Session() *identity.Session {
	if s == nil || s.AccessToken == "" {
		return nil
	}
	return &identity.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.TokenExpiry,
		User:         identity.User{ID: s.UserID},
	}
}

// SetSession copies the tokens of session into the flow session
func (s *FlowSession) SetSession(session *identity.Session) {
	if session == nil {
		s.AccessToken, s.RefreshToken, s.TokenExpiry = "", "", 0
		return
	}
	s.AccessToken = session.AccessToken
	s.RefreshToken = session.RefreshToken
	s.TokenExpiry = session.ExpiresAt
	if session.User.ID != "" {
		s.UserID = session.User.ID
	}
}

// HandoffTicket authorizes exactly one hand-off websocket after a confirmation
type HandoffTicket struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for HandoffTicket
func (HandoffTicket) TableName() string {
	return "handoff_tickets"
}

// IsExpired checks if the ticket has expired
func (t *HandoffTicket) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
