package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/voice-console/internal/application/guard"
	"github.com/voice-console/internal/application/session"
	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/metrics"
	"go.uber.org/zap"
)

// Guard evaluates the session's credential against roles on every request.
// Unauthenticated callers are sent to the login page with a next parameter,
// callers whose role is not in roles to the landing page. Unverified callers
// pass through; pages render them suppressed under the verification overlay.
func Guard(g *guard.Guard, sessions session.Service, m *metrics.Metrics, logger *zap.Logger, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusInternalServerError, "no session")
				return
			}
			d := g.Evaluate(sess.Token, roles)
			m.ObserveGuard(d.State.String())

			switch d.State {
			case guard.Unauthenticated:
				if d.Malformed {
					logger.Info("dropping malformed credential", zap.String("session_id", sess.ID))
					if err := sessions.Clear(r.Context(), sess); err != nil {
						logger.Warn("clear session", zap.Error(err))
					}
				}
				redirect(w, r, LoginRedirect(r))
				return
			case guard.Forbidden:
				redirect(w, r, d.Redirect)
				return
			}
			ctx := context.WithValue(r.Context(), DecisionKey, d)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireVerified refuses state-changing requests until the session's voice
// verification is fresh. Reads pass so the page can render suppressed.
func RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, ok := DecisionFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		if d.State != guard.Verified && !safeMethod(r.Method) {
			writeError(w, r, http.StatusForbidden, "voice verification required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DecisionFromContext returns the guard decision for the current request.
func DecisionFromContext(ctx context.Context) (guard.Decision, bool) {
	d, ok := ctx.Value(DecisionKey).(guard.Decision)
	return d, ok
}

// WithDecision returns a copy of ctx carrying d.
func WithDecision(ctx context.Context, d guard.Decision) context.Context {
	return context.WithValue(ctx, DecisionKey, d)
}

// LoginRedirect is the login URL that returns to the current page.
func LoginRedirect(r *http.Request) string {
	next := r.URL.RequestURI()
	if !safeMethod(r.Method) {
		next = r.Header.Get("Referer")
		if u, err := url.Parse(next); err == nil && u.Host == r.Host {
			next = u.RequestURI()
		} else {
			next = guard.LandingPath
		}
	}
	return guard.LoginPath + "?next=" + url.QueryEscape(next)
}

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}
