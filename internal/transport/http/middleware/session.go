package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/voice-console/internal/application/session"
	"github.com/voice-console/internal/domain"
	"go.uber.org/zap"
)

type contextKey string

const (
	SessionKey  contextKey = "session"
	DecisionKey contextKey = "decision"
)

// CookieOptions describes the browser cookie carrying the session id.
type CookieOptions struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// SetCookie writes the session cookie for id.
func (o CookieOptions) SetCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    id,
		Path:     "/",
		MaxAge:   int(o.TTL.Seconds()),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ExpireCookie removes the session cookie.
func (o CookieOptions) ExpireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Session loads the caller's session from its cookie and injects it into the
// request context. A new session id is handed out when the cookie is missing
// or no longer resolves.
func Session(svc session.Service, cookie CookieOptions, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sid string
			if c, err := r.Cookie(cookie.Name); err == nil {
				sid = c.Value
			}
			sess, err := svc.Load(r.Context(), sid)
			if err != nil {
				logger.Error("load session", zap.Error(err))
				writeError(w, r, http.StatusServiceUnavailable, "session store unavailable")
				return
			}
			if sess.ID != sid {
				cookie.SetCookie(w, sess.ID)
			}
			ctx := context.WithValue(r.Context(), SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session injected by Session.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(SessionKey).(*domain.Session)
	return s, ok
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *domain.Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}
