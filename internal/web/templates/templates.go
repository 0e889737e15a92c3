// Package templates renders the server-side pages as templ components.
package templates

import (
	"context"
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/a-h/templ"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/fuomag9/colive-web/internal/flow"
)

//go:embed html/*.html
var files embed.FS

var pages = template.Must(template.New("pages").ParseFS(files, "html/*.html"))

// Layout is shared by every page
type Layout struct {
	Lang    language.Tag
	Printer *message.Printer
	Brand   string
	Tagline string
}

// T prints the catalog message for key
func (l Layout) T(key string, args ...any) string {
	if l.Printer == nil {
		return key
	}
	return l.Printer.Sprintf(key, args...)
}

// Year is rendered in the footer
func (l Layout) Year() int {
	return time.Now().Year()
}

// StatusText renders a flow snapshot message with the provider detail appended
func (l Layout) StatusText(s flow.Snapshot) string {
	if s.Message == "" {
		return ""
	}
	text := l.T(s.Message)
	if s.Detail != "" {
		text += ": " + s.Detail
	}
	return text
}

// LandingPage describes the site
type LandingPage struct {
	Layout
}

// CallbackPage shows the confirmation outcome and carries the hand-off links
type CallbackPage struct {
	Layout
	Flow      flow.Snapshot
	IntentURI string
	DeepLink  string
	// SocketPath is the hand-off websocket; empty when there is nothing to hand off
	SocketPath string
}

// IntentHref marks the intent URI as safe for an href; html/template rejects non-http schemes
func (p CallbackPage) IntentHref() template.URL {
	return template.URL(p.IntentURI)
}

// DeepLinkHref marks the custom-scheme deep link as safe for an href
func (p CallbackPage) DeepLinkHref() template.URL {
	return template.URL(p.DeepLink)
}

// Success reports whether the confirmation went through
func (p CallbackPage) Success() bool {
	return p.Flow.State == flow.StateSuccess
}

// ResetPage shows the reset form
type ResetPage struct {
	Layout
	Flow flow.Snapshot
}

// Disabled mirrors the form controls: usable only once ready and not busy or done
func (p ResetPage) Disabled() bool {
	return !p.Flow.Ready || p.Flow.State == flow.StateLoading || p.Flow.State == flow.StateSuccess
}

// Landing renders the landing page
func Landing(p LandingPage) templ.Component {
	return render("landing", p)
}

// Callback renders the confirmation page
func Callback(p CallbackPage) templ.Component {
	return render("callback", p)
}

// Reset renders the password reset page
func Reset(p ResetPage) templ.Component {
	return render("reset", p)
}

func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return pages.ExecuteTemplate(w, name, data)
	})
}
