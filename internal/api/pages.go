package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/language"

	"github.com/fuomag9/colive-web/internal/config"
	"github.com/fuomag9/colive-web/internal/flow"
	"github.com/fuomag9/colive-web/internal/identity"
	"github.com/fuomag9/colive-web/internal/store"
	"github.com/fuomag9/colive-web/internal/web/i18n"
	"github.com/fuomag9/colive-web/internal/web/templates"
)

// HandoffSocketPath is where confirmation pages open their hand-off websocket
const HandoffSocketPath = "/auth/callback/handoff"

var tracer = otel.Tracer("github.com/fuomag9/colive-web/internal/api")

// Identity is the identity provider as the page handlers use it
type Identity interface {
	flow.Identity
	CurrentSession(ctx context.Context, session *identity.Session) (*identity.Session, error)
}

// Deps bundles what the page handlers need
type Deps struct {
	Config   *config.Config
	Identity Identity
	Store    store.Store
	Handoff  flow.Handoff
	Now      func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) pageOptions() []flow.Option {
	return []flow.Option{flow.WithHardenedErrors(d.Config.Identity.HardenedErrors)}
}

// layout resolves the language for r, persisting an explicit ?lang= choice
func (d *Deps) layout(w http.ResponseWriter, r *http.Request) templates.Layout {
	def := i18n.NormalizeTag(d.Config.Brand.DefaultLanguage, language.Spanish)
	tag, persist := i18n.ResolveTag(r, def)
	if persist {
		i18n.SetLanguageCookie(w, tag)
	}
	return templates.Layout{
		Lang:    tag,
		Printer: i18n.Printer(tag),
		Brand:   d.Config.Brand.Name,
		Tagline: d.Config.Brand.Tagline,
	}
}

// HandleLanding renders the landing page
func HandleLanding(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, http.StatusOK, templates.Landing(templates.LandingPage{Layout: d.layout(w, r)}))
	}
}

// HandleAuthCallback redeems an account confirmation link and, on success, issues
// the ticket the page uses to open its hand-off websocket
func HandleAuthCallback(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "flow.confirmation")
		defer span.End()

		layout := d.layout(w, r)
		page := flow.NewPage(flow.Confirmation, d.Identity, d.pageOptions()...)
		snap := page.Load(ctx, r.URL)
		span.SetAttributes(
			attribute.String("flow.mode", snap.Mode.String()),
			attribute.String("flow.state", string(snap.State)),
		)

		view := templates.CallbackPage{Layout: layout, Flow: snap}
		if snap.State == flow.StateSuccess {
			view.IntentURI = d.Handoff.IntentURI()
			view.DeepLink = d.Handoff.DeepLink()
			if ticketID, err := issueHandoffTicket(ctx, d); err != nil {
				// The manual links still work without the socket.
				log.Printf("Flow: failed to issue hand-off ticket: %v", err)
			} else {
				view.SocketPath = HandoffSocketPath + "?ticket=" + url.QueryEscape(ticketID)
			}
		}

		render(w, r, statusFor(snap), templates.Callback(view))
	}
}

// HandleResetLink redeems a password reset link and keeps the session for the
// password submission in a flow session referenced by a cookie
func HandleResetLink(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "flow.reset.redeem")
		defer span.End()

		layout := d.layout(w, r)

		// A new link replaces whatever flow session the browser had.
		if previous := readFlowCookie(r); previous != "" {
			if err := d.Store.DeleteSession(ctx, previous); err != nil {
				log.Printf("Flow: failed to drop previous flow session: %v", err)
			}
			clearFlowCookie(w, d.Config)
		}

		page := flow.NewPage(flow.Reset, d.Identity, d.pageOptions()...)
		snap := page.Load(ctx, r.URL)
		span.SetAttributes(
			attribute.String("flow.mode", snap.Mode.String()),
			attribute.String("flow.state", string(snap.State)),
		)

		if snap.Ready {
			id, err := saveFlowSession(ctx, d, page.Session())
			if err != nil {
				log.Printf("Flow: failed to store flow session: %v", err)
				snap = flow.Snapshot{Variant: flow.Reset, Mode: snap.Mode, State: flow.StateError, Message: flow.MsgUnexpected}
			} else {
				setFlowCookie(w, d.Config, id)
			}
		}

		render(w, r, statusFor(snap), templates.Reset(templates.ResetPage{Layout: layout, Flow: snap}))
	}
}

// HandleResetSubmit sets the new password for the flow session in the cookie
func HandleResetSubmit(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "flow.reset.submit")
		defer span.End()

		layout := d.layout(w, r)

		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}
		password := r.PostFormValue("password")

		flowID := readFlowCookie(r)
		session := loadSession(ctx, d, flowID)

		page := flow.ResumePage(d.Identity, session, d.pageOptions()...)
		snap := page.SubmitPassword(ctx, password)
		span.SetAttributes(attribute.String("flow.state", string(snap.State)))

		if snap.State == flow.StateSuccess && flowID != "" {
			if err := d.Store.DeleteSession(ctx, flowID); err != nil {
				log.Printf("Flow: failed to delete flow session: %v", err)
			}
			clearFlowCookie(w, d.Config)
		}

		render(w, r, statusFor(snap), templates.Reset(templates.ResetPage{Layout: layout, Flow: snap}))
	}
}

// HandleHealth reports liveness
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

// loadSession returns the live identity session of a flow session, refreshing
// the access token when it expired. Missing or unusable sessions yield nil.
func loadSession(ctx context.Context, d *Deps, flowID string) *identity.Session {
	if flowID == "" {
		return nil
	}

	fs, err := d.Store.GetSession(ctx, flowID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Flow: failed to load flow session: %v", err)
		}
		return nil
	}
	if !fs.Ready {
		return nil
	}

	session := fs.Session()
	current, err := d.Identity.CurrentSession(ctx, session)
	if err != nil {
		// The update call surfaces the provider's own error for this session.
		log.Printf("Flow: failed to refresh flow session: %v", err)
		return session
	}
	if current.AccessToken != session.AccessToken {
		fs.SetSession(current)
		if err := d.Store.SaveSession(ctx, fs); err != nil {
			log.Printf("Flow: failed to store refreshed session: %v", err)
		}
	}
	return current
}

func saveFlowSession(ctx context.Context, d *Deps, session *identity.Session) (string, error) {
	now := d.now()
	fs := flowSessionFor(session, now, d.Config.Store.SessionTTL)
	if err := d.Store.SaveSession(ctx, fs); err != nil {
		return "", err
	}
	return fs.ID, nil
}

func issueHandoffTicket(ctx context.Context, d *Deps) (string, error) {
	now := d.now()
	ticket := handoffTicketFor(now, d.Config.Store.TicketTTL)
	if err := d.Store.SaveTicket(ctx, ticket); err != nil {
		return "", err
	}
	return ticket.ID, nil
}

// statusFor maps a rendered flow state onto the response status
func statusFor(s flow.Snapshot) int {
	if s.State != flow.StateError {
		return http.StatusOK
	}
	switch s.Message {
	case flow.MsgLinkInvalid, flow.MsgResetTooShort, flow.MsgResetNotReady:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Cache-Control", "no-store")
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

func newID() string {
	return uuid.NewString()
}
