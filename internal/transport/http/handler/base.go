package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/voice-console/internal/application/session"
	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/recorder"
	"github.com/voice-console/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// maxUpload caps request bodies carrying audio.
const maxUpload = 10 << 20

// Base carries what every page handler needs.
type Base struct {
	Pages    *Pages
	Sessions session.Service
	Cookie   middleware.CookieOptions
	Logger   *zap.Logger
}

func (b *Base) session(r *http.Request) *domain.Session {
	if s, ok := middleware.SessionFromContext(r.Context()); ok {
		return s
	}
	return &domain.Session{}
}

// expired handles an API 401 on a guarded page: the credential in the slot is
// no longer accepted, so it is cleared and the user sent to log in again.
func (b *Base) expired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, domain.ErrUnauthorized) {
		return false
	}
	sess := b.session(r)
	if err := b.Sessions.Clear(r.Context(), sess); err != nil {
		b.Logger.Warn("clear rejected credential", zap.Error(err))
	}
	target := middleware.LoginRedirect(r)
	if middleware.WantsJSON(r) {
		writeJSON(w, r, http.StatusUnauthorized, map[string]string{"error": "session expired", "redirect": target})
		return true
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
	return true
}

// fail answers a failed state-changing request: scripts get JSON, browsers
// are sent back to the page with the message.
func (b *Base) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	if b.expired(w, r, err) {
		return
	}
	b.logFailure(r, err)
	if middleware.WantsJSON(r) {
		writeError(w, r, statusFor(err), messageFor(err))
		return
	}
	http.Redirect(w, r, withParam(back, "err", messageFor(err)), http.StatusSeeOther)
}

// done answers a successful state-changing request.
func (b *Base) done(w http.ResponseWriter, r *http.Request, back, msg string) {
	if middleware.WantsJSON(r) {
		writeJSON(w, r, http.StatusOK, MessageEnvelope{Message: msg})
		return
	}
	http.Redirect(w, r, withParam(back, "ok", msg), http.StatusSeeOther)
}

// renderError shows page with err in place of its data.
func (b *Base) renderError(w http.ResponseWriter, r *http.Request, page string, v *View, err error) {
	if b.expired(w, r, err) {
		return
	}
	b.logFailure(r, err)
	v.Error = messageFor(err)
	b.Pages.Render(w, statusFor(err), page, v)
}

func (b *Base) logFailure(r *http.Request, err error) {
	if statusFor(err) >= http.StatusInternalServerError {
		b.Logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		return
	}
	b.Logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
}

// voiceForm is what the audio-carrying forms and the overlay script submit.
type voiceForm struct {
	Audio    string `json:"audio"`
	PhraseID int64  `json:"phrase_id"`
	Next     string `json:"next"`
}

// credentialForm carries a username and password.
type credentialForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Next     string `json:"next"`
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// parseVoiceForm reads audio from a JSON body, an uploaded audio_file or the
// audio form field, in that order.
func parseVoiceForm(w http.ResponseWriter, r *http.Request) (voiceForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	var f voiceForm
	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			return f, fmt.Errorf("%w: invalid request body", domain.ErrBadRequest)
		}
		return f, nil
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUpload); err != nil {
			return f, fmt.Errorf("%w: invalid upload", domain.ErrBadRequest)
		}
	} else if err := r.ParseForm(); err != nil {
		return f, fmt.Errorf("%w: invalid form", domain.ErrBadRequest)
	}
	f.Next = r.FormValue("next")
	if id := r.FormValue("phrase_id"); id != "" {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return f, fmt.Errorf("%w: invalid phrase", domain.ErrBadRequest)
		}
		f.PhraseID = n
	}
	if file, _, err := r.FormFile("audio_file"); err == nil {
		defer file.Close()
		audio, err := recorder.Encode(file)
		if err != nil {
			return f, err
		}
		f.Audio = audio
		return f, nil
	}
	f.Audio = r.FormValue("audio")
	return f, nil
}

func parseCredentialForm(w http.ResponseWriter, r *http.Request) (credentialForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var f credentialForm
	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			return f, fmt.Errorf("%w: invalid request body", domain.ErrBadRequest)
		}
		return f, nil
	}
	if err := r.ParseForm(); err != nil {
		return f, fmt.Errorf("%w: invalid form", domain.ErrBadRequest)
	}
	f.Username = strings.TrimSpace(r.PostFormValue("username"))
	f.Password = r.PostFormValue("password")
	f.Next = r.PostFormValue("next")
	return f, nil
}

// idParam parses the {name} URL parameter as a positive id.
func idParam(r *http.Request, name string) (int64, error) {
	n, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", domain.ErrBadRequest, name)
	}
	return n, nil
}
