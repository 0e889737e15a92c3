package flow

import (
	"net/url"
	"strings"
)

// RecoveryType is the only `type` value accepted for token-hash links
const RecoveryType = "recovery"

// Mode is the redemption path chosen for a link
type Mode int

const (
	ModeNone Mode = iota
	ModeVerifyOTP
	ModeCodeExchange
)

func (m Mode) String() string {
	switch m {
	case ModeVerifyOTP:
		return "otp_verify"
	case ModeCodeExchange:
		return "code_exchange"
	default:
		return "none"
	}
}

// LinkParameters are the query parameters an auth link carries
type LinkParameters struct {
	Code      string
	TokenHash string
	Type      string
}

// ParseLinkParameters reads code, token_hash and type from u. Nothing else is interpreted.
func ParseLinkParameters(u *url.URL) LinkParameters {
	if u == nil {
		return LinkParameters{}
	}
	q := u.Query()
	return LinkParameters{
		Code:      strings.TrimSpace(q.Get("code")),
		TokenHash: strings.TrimSpace(q.Get("token_hash")),
		Type:      strings.TrimSpace(q.Get("type")),
	}
}

// Mode picks the redemption path: token hash recovery wins over code exchange.
func (p LinkParameters) Mode() Mode {
	switch {
	case p.TokenHash != "" && p.Type == RecoveryType:
		return ModeVerifyOTP
	case p.Code != "":
		return ModeCodeExchange
	default:
		return ModeNone
	}
}
