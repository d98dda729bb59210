package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/voice-console/internal/application/auth"
	"github.com/voice-console/internal/application/guard"
	"github.com/voice-console/internal/application/session"
	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// AuthHandler serves login, logout, re-verification and registration.
type AuthHandler struct {
	Base
	svc auth.Service
}

func NewAuthHandler(base Base, svc auth.Service) *AuthHandler {
	return &AuthHandler{Base: base, svc: svc}
}

type loginData struct {
	Next        string
	Phrase      *domain.Phrase
	Attempts    int
	MaxAttempts int
	Credentials bool
	Username    string
	Feedback    string
}

func (h *AuthHandler) loginView(r *http.Request, sess *domain.Session, next string, credentials bool) (*View, *loginData) {
	data := &loginData{
		Next:        next,
		Attempts:    sess.LoginAttempts,
		MaxAttempts: session.MaxVoiceAttempts,
		Credentials: credentials || sess.LoginAttempts >= session.MaxVoiceAttempts,
	}
	if !data.Credentials {
		phrase, err := h.svc.LoginPhrase(r.Context())
		if err != nil {
			h.Logger.Warn("load login phrase", zap.Error(err))
			data.Feedback = "Failed to load voice phrases."
			data.Credentials = true
		} else {
			data.Phrase = phrase
		}
	}
	v := newView(r, "Login", "login")
	v.Data = data
	return v, data
}

// LoginPage renders the login form, voice first. A session that already holds
// a credential goes straight to next.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	next := safeNext(r.URL.Query().Get("next"), guard.LandingPath)
	if _, ok := h.Sessions.Claims(sess); ok {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	v, _ := h.loginView(r, sess, next, r.URL.Query().Get("mode") == "credentials")
	h.Pages.Render(w, http.StatusOK, "login", v)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	f, err := parseCredentialForm(w, r)
	if err == nil {
		err = h.svc.Login(r.Context(), sess, domain.LoginRequest{Username: f.Username, Password: f.Password})
	}
	next := safeNext(f.Next, guard.LandingPath)
	if err != nil {
		h.logFailure(r, err)
		if middleware.WantsJSON(r) {
			writeError(w, r, statusFor(err), loginMessage(err))
			return
		}
		v, data := h.loginView(r, sess, next, true)
		data.Username = f.Username
		v.Error = loginMessage(err)
		h.Pages.Render(w, statusFor(err), "login", v)
		return
	}
	h.Logger.Info("login", zap.String("method", "password"), zap.String("session_id", sess.ID))
	if middleware.WantsJSON(r) {
		writeJSON(w, r, http.StatusOK, VerifyEnvelope{Verified: true, Next: next, MaxAttempts: session.MaxVoiceAttempts})
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func loginMessage(err error) string {
	if errors.Is(err, domain.ErrUnauthorized) {
		return "Login failed: wrong username or password."
	}
	return messageFor(err)
}

func (h *AuthHandler) LoginVoice(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	f, err := parseVoiceForm(w, r)
	next := safeNext(f.Next, guard.LandingPath)
	var out auth.VoiceOutcome
	if err == nil {
		out, err = h.svc.LoginVoice(r.Context(), sess, f.PhraseID, f.Audio)
	}
	if err != nil {
		h.logFailure(r, err)
		feedback := voiceFeedback(err, out)
		if middleware.WantsJSON(r) {
			writeJSON(w, r, statusFor(err), verifyFailure(out, feedback))
			return
		}
		v, data := h.loginView(r, sess, next, out.Fallback)
		data.Feedback = feedback
		h.Pages.Render(w, statusFor(err), "login", v)
		return
	}
	h.Logger.Info("login", zap.String("method", "voice"), zap.String("session_id", sess.ID))
	if middleware.WantsJSON(r) {
		writeJSON(w, r, http.StatusOK, VerifyEnvelope{Verified: true, Next: next, Confidence: out.Confidence, MaxAttempts: session.MaxVoiceAttempts})
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// voiceFeedback is the message shown under the recorder after a failed attempt.
func voiceFeedback(err error, out auth.VoiceOutcome) string {
	switch {
	case out.Fallback || errors.Is(err, auth.ErrFallbackRequired):
		return "Too many failed voice attempts. Please use your username and password."
	case out.Confidence != nil && errors.Is(err, domain.ErrUnauthorized):
		return fmt.Sprintf("Confidence %.3f, try again.", *out.Confidence)
	case errors.Is(err, domain.ErrUnauthorized):
		return "Voice not recognised. Try again."
	}
	return messageFor(err)
}

func verifyFailure(out auth.VoiceOutcome, msg string) VerifyEnvelope {
	return VerifyEnvelope{
		Attempts:    out.Attempts,
		MaxAttempts: session.MaxVoiceAttempts,
		Fallback:    out.Fallback,
		Confidence:  out.Confidence,
		Error:       msg,
	}
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), h.session(r)); err != nil {
		h.Logger.Warn("logout", zap.Error(err))
	}
	h.Cookie.ExpireCookie(w)
	if middleware.WantsJSON(r) {
		writeJSON(w, r, http.StatusOK, MessageEnvelope{Message: "logged out"})
		return
	}
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

// IdentifyPage is the standalone re-verification page.
func (h *AuthHandler) IdentifyPage(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	v := newView(r, "Verify your voice", "identify")
	v.Suppressed = false
	v.Overlay = nil
	v.Data = &Overlay{
		Next:        safeNext(r.URL.Query().Get("next"), guard.LandingPath),
		Attempts:    sess.IdentifyAttempts,
		MaxAttempts: session.MaxVoiceAttempts,
		Fallback:    sess.IdentifyAttempts >= session.MaxVoiceAttempts,
	}
	h.Pages.Render(w, http.StatusOK, "identify", v)
}

// Identify re-verifies the signed-in user by voice. The overlay script gets
// JSON and un-suppresses the page itself; a plain form post is redirected
// back to next.
func (h *AuthHandler) Identify(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	f, err := parseVoiceForm(w, r)
	next := safeNext(f.Next, guard.LandingPath)
	var out auth.VoiceOutcome
	if err == nil {
		out, err = h.svc.Identify(r.Context(), sess, f.Audio)
	}
	if err != nil {
		h.identifyFailed(w, r, sess, next, err, voiceFeedback(err, out), out)
		return
	}
	h.Logger.Info("voice re-verified", zap.String("session_id", sess.ID))
	h.verified(w, r, next, out.Confidence)
}

// IdentifyCredentials is the username and password fallback of the overlay.
func (h *AuthHandler) IdentifyCredentials(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	f, err := parseCredentialForm(w, r)
	next := safeNext(f.Next, guard.LandingPath)
	if err == nil {
		err = h.svc.IdentifyCredentials(r.Context(), sess, domain.LoginRequest{Username: f.Username, Password: f.Password})
	}
	if err != nil {
		out := auth.VoiceOutcome{Attempts: sess.IdentifyAttempts, Fallback: sess.IdentifyAttempts >= session.MaxVoiceAttempts}
		h.identifyFailed(w, r, sess, next, err, loginMessage(err), out)
		return
	}
	h.Logger.Info("re-verified with credentials", zap.String("session_id", sess.ID))
	h.verified(w, r, next, nil)
}

func (h *AuthHandler) verified(w http.ResponseWriter, r *http.Request, next string, confidence *float64) {
	if middleware.WantsJSON(r) {
		writeJSON(w, r, http.StatusOK, VerifyEnvelope{Verified: true, Next: next, Confidence: confidence, MaxAttempts: session.MaxVoiceAttempts})
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *AuthHandler) identifyFailed(w http.ResponseWriter, r *http.Request, sess *domain.Session, next string, err error, msg string, out auth.VoiceOutcome) {
	h.logFailure(r, err)
	if middleware.WantsJSON(r) {
		writeJSON(w, r, statusFor(err), verifyFailure(out, msg))
		return
	}
	v := newView(r, "Verify your voice", "identify")
	v.Suppressed = false
	v.Overlay = nil
	v.Data = &Overlay{
		Next:        next,
		Attempts:    out.Attempts,
		MaxAttempts: session.MaxVoiceAttempts,
		Fallback:    out.Fallback || sess.IdentifyAttempts >= session.MaxVoiceAttempts,
		Error:       msg,
	}
	h.Pages.Render(w, statusFor(err), "identify", v)
}

type registerData struct {
	Username string
	Role     domain.Role
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	v := newView(r, "Register user", "register")
	v.Data = &registerData{Role: domain.RoleViewer}
	h.Pages.Render(w, http.StatusOK, "register", v)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, fmt.Errorf("%w: invalid form", domain.ErrBadRequest), "/register")
		return
	}
	req.Username = r.PostFormValue("username")
	req.Password = r.PostFormValue("password")
	req.Role = domain.Role(r.PostFormValue("role"))

	if err := h.svc.Register(r.Context(), h.session(r), req); err != nil {
		v := newView(r, "Register user", "register")
		v.Data = &registerData{Username: req.Username, Role: req.Role}
		h.renderError(w, r, "register", v, err)
		return
	}
	h.Logger.Info("user registered", zap.String("username", req.Username), zap.String("role", req.Role.String()))
	h.done(w, r, "/register", fmt.Sprintf("User %s created.", req.Username))
}
