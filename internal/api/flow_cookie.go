package api

import (
	"net/http"
	"time"

	"github.com/fuomag9/colive-web/internal/config"
	"github.com/fuomag9/colive-web/internal/identity"
	"github.com/fuomag9/colive-web/internal/models"
)

// FlowCookieName references the flow session between the reset GET and POST
const FlowCookieName = "colive_reset_flow"

func flowSessionFor(session *identity.Session, now time.Time, ttl time.Duration) *models.FlowSession {
	fs := &models.FlowSession{
		ID:        newID(),
		Variant:   "reset",
		Ready:     true,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	fs.SetSession(session)
	return fs
}

func handoffTicketFor(now time.Time, ttl time.Duration) *models.HandoffTicket {
	return &models.HandoffTicket{
		ID:        newID(),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

func readFlowCookie(r *http.Request) string {
	cookie, err := r.Cookie(FlowCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setFlowCookie(w http.ResponseWriter, cfg *config.Config, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlowCookieName,
		Value:    id,
		Path:     "/reset",
		MaxAge:   int(cfg.Store.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
}

func clearFlowCookie(w http.ResponseWriter, cfg *config.Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlowCookieName,
		Value:    "",
		Path:     "/reset",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
}
