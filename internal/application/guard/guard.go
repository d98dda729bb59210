// Package guard decides, per request, whether a protected page may render.
package guard

import (
	"time"

	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/pkg/claims"
)

const (
	LoginPath   = "/login"
	LandingPath = "/dashboard"
)

// State is the outcome of evaluating the credential slot.
type State int

const (
	Unauthenticated State = iota
	Forbidden
	Unverified
	Verified
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case Unverified:
		return "unverified"
	case Verified:
		return "verified"
	}
	return "unknown"
}

// Allowed reports whether the page may be rendered, suppressed or not.
func (s State) Allowed() bool { return s == Unverified || s == Verified }

// Decision is the guard's answer for one request.
type Decision struct {
	State State
	// Redirect is set for Unauthenticated and Forbidden.
	Redirect string
	// Claims are the decoded claims, nil unless the credential decoded.
	Claims claims.Claims
	// Malformed is true when the slot held a credential that did not decode.
	Malformed bool
}

type Guard struct {
	window time.Duration
	now    func() time.Time
}

// New returns a guard treating a voice verification as fresh for window.
// A non-positive window falls back to claims.DefaultWindow.
func New(window time.Duration) *Guard {
	if window <= 0 {
		window = claims.DefaultWindow
	}
	return &Guard{window: window, now: time.Now}
}

func (g *Guard) Window() time.Duration { return g.window }

// Evaluate classifies token against the roles a page requires. An empty roles
// list admits any authenticated role.
func (g *Guard) Evaluate(token string, roles []domain.Role) Decision {
	if token == "" {
		return Decision{State: Unauthenticated, Redirect: LoginPath}
	}
	c, ok := claims.Decode(token)
	if !ok {
		return Decision{State: Unauthenticated, Redirect: LoginPath, Malformed: true}
	}
	if len(roles) > 0 && !c.Role().In(roles...) {
		return Decision{State: Forbidden, Redirect: LandingPath, Claims: c}
	}
	if c.IsVoiceVerified(g.now(), g.window) {
		return Decision{State: Verified, Claims: c}
	}
	return Decision{State: Unverified, Claims: c}
}
