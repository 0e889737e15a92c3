package flow

import (
	"context"
	"log"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/fuomag9/colive-web/internal/identity"
)

// MinPasswordLength is the shortest password accepted before calling the provider
const MinPasswordLength = 6

// State is the visible state of a page
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Variant selects what happens after a successful redemption
type Variant int

const (
	// Confirmation ends in success and a hand-off to the mobile app
	Confirmation Variant = iota
	// Reset ends ready for a new password
	Reset
)

func (v Variant) String() string {
	if v == Reset {
		return "reset"
	}
	return "confirmation"
}

// Identity is the external identity provider the flow redeems links against
type Identity interface {
	VerifyRecoveryToken(ctx context.Context, tokenHash string) (*identity.Session, error)
	ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*identity.Session, error)
	UpdateUserPassword(ctx context.Context, session *identity.Session, newPassword string) error
}

// Snapshot is what the shell renders
type Snapshot struct {
	Variant Variant
	Mode    Mode
	State   State
	Message string
	Detail  string
	Ready   bool
}

// Observer receives every state transition in order
type Observer func(Snapshot)

// Option configures a Page
type Option func(*Page)

// WithObserver registers fn to be called on every transition
func WithObserver(fn Observer) Option {
	return func(p *Page) { p.observer = fn }
}

// WithCodeVerifier supplies the PKCE verifier used for code exchange
func WithCodeVerifier(verifier string) Option {
	return func(p *Page) { p.verifier = verifier }
}

// WithHardenedErrors hides provider failure text from the rendered message
func WithHardenedErrors(enabled bool) Option {
	return func(p *Page) { p.hardened = enabled }
}

// Page is one page instance of the auth-link redemption flow.
// It is not safe for concurrent use; a page is driven by one request at a time.
type Page struct {
	variant  Variant
	identity Identity
	observer Observer
	verifier string
	hardened bool

	loaded  bool
	mode    Mode
	state   State
	message string
	detail  string
	ready   bool
	session *identity.Session
}

// NewPage creates an idle page for the given variant
func NewPage(variant Variant, id Identity, opts ...Option) *Page {
	p := &Page{
		variant:  variant,
		identity: id,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ResumePage recreates a reset page whose link was redeemed by an earlier request.
// A nil session yields a page that is not ready.
func ResumePage(id Identity, session *identity.Session, opts ...Option) *Page {
	p := NewPage(Reset, id, opts...)
	p.loaded = true
	if session != nil && session.AccessToken != "" {
		p.session = session
		p.ready = true
		p.message = MsgResetReady
	}
	return p
}

// Load redeems the link in u. It runs once; later calls return the current snapshot.
func (p *Page) Load(ctx context.Context, u *url.URL) Snapshot {
	if p.loaded {
		return p.Snapshot()
	}
	p.loaded = true

	params := ParseLinkParameters(u)
	p.mode = params.Mode()
	p.ready = false

	if p.variant == Reset {
		p.transition(StateLoading, MsgResetValidating, "")
	} else {
		p.transition(StateLoading, MsgConfirmLoading, "")
	}

	var (
		session *identity.Session
		err     error
	)
	switch p.mode {
	case ModeVerifyOTP:
		session, err = p.identity.VerifyRecoveryToken(ctx, params.TokenHash)
	case ModeCodeExchange:
		session, err = p.identity.ExchangeCodeForSession(ctx, params.Code, p.verifier)
	default:
		p.transition(StateError, MsgLinkInvalid, "")
		return p.Snapshot()
	}
	if err == nil && session == nil {
		err = identity.ErrNoSession
	}

	if err != nil {
		log.Printf("Flow: %s redemption via %s failed: %v", p.variant, p.mode, err)
		if p.variant == Reset {
			p.fail(MsgResetLinkFailed, err)
		} else {
			p.fail(MsgConfirmFailed, err)
		}
		return p.Snapshot()
	}

	p.session = session
	if p.variant == Reset {
		p.ready = true
		p.transition(StateIdle, MsgResetReady, "")
	} else {
		p.transition(StateSuccess, MsgConfirmSuccess, "")
	}
	return p.Snapshot()
}

// SubmitPassword sets a new password. It requires a redeemed link and a password of
// at least MinPasswordLength characters (surrounding spaces ignored) before any call.
func (p *Page) SubmitPassword(ctx context.Context, password string) Snapshot {
	if !p.ready || p.session == nil {
		p.transition(StateError, MsgResetNotReady, "")
		return p.Snapshot()
	}

	if utf8.RuneCountInString(strings.TrimSpace(password)) < MinPasswordLength {
		p.transition(StateError, MsgResetTooShort, "")
		return p.Snapshot()
	}

	p.transition(StateLoading, MsgResetUpdating, "")

	if err := p.identity.UpdateUserPassword(ctx, p.session, password); err != nil {
		log.Printf("Flow: password update failed: %v", err)
		p.fail(MsgResetFailed, err)
		return p.Snapshot()
	}

	p.transition(StateSuccess, MsgResetSuccess, "")
	return p.Snapshot()
}

// Snapshot returns the current visible state
func (p *Page) Snapshot() Snapshot {
	return Snapshot{
		Variant: p.variant,
		Mode:    p.mode,
		State:   p.state,
		Message: p.message,
		Detail:  p.detail,
		Ready:   p.ready,
	}
}

// Session returns the session established by Load, if any
func (p *Page) Session() *identity.Session {
	return p.session
}

func (p *Page) fail(key string, err error) {
	reason, ok := identity.Reason(err)
	if !ok {
		p.transition(StateError, MsgUnexpected, "")
		return
	}
	if p.hardened {
		reason = ""
	}
	p.transition(StateError, key, reason)
}

func (p *Page) transition(state State, message, detail string) {
	p.state = state
	p.message = message
	p.detail = detail
	if p.observer != nil {
		p.observer(p.Snapshot())
	}
}
