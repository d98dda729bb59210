package handler

import (
	"net/http"
	"strconv"

	"github.com/voice-console/internal/application/voice"
	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// VoiceHandler serves the recordings pages and the enrollment wizard.
type VoiceHandler struct {
	Base
	svc voice.Service
}

func NewVoiceHandler(base Base, svc voice.Service) *VoiceHandler {
	return &VoiceHandler{Base: base, svc: svc}
}

type myVoicesData struct {
	Voices []domain.Voice
}

func (h *VoiceHandler) MyVoices(w http.ResponseWriter, r *http.Request) {
	v := newView(r, "My voices", "my-voices")
	data := &myVoicesData{}
	v.Data = data
	voices, err := h.svc.MyVoices(r.Context(), h.session(r))
	if err != nil {
		h.renderError(w, r, "my_voices", v, err)
		return
	}
	data.Voices = voices
	h.Pages.Render(w, http.StatusOK, "my_voices", v)
}

func (h *VoiceHandler) AddMyVoice(w http.ResponseWriter, r *http.Request) {
	f, err := parseVoiceForm(w, r)
	if err != nil {
		h.fail(w, r, err, "/my-voices")
		return
	}
	added, err := h.svc.AddVoice(r.Context(), h.session(r), f.Audio)
	if err != nil {
		h.fail(w, r, err, "/my-voices")
		return
	}
	h.Logger.Info("voice uploaded", zap.Int64("voice_id", added.ID))
	h.done(w, r, "/my-voices", "Recording saved.")
}

func (h *VoiceHandler) DeleteMyVoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err == nil {
		err = h.svc.DeleteVoice(r.Context(), h.session(r), id)
	}
	if err != nil {
		h.fail(w, r, err, "/my-voices")
		return
	}
	h.done(w, r, "/my-voices", "Recording deleted.")
}

type userVoicesData struct {
	Users    []domain.UserRef
	Selected int64
	Voices   []domain.Voice
}

// UserVoices is the admin recordings page: a user picker and the chosen
// user's recordings.
func (h *VoiceHandler) UserVoices(w http.ResponseWriter, r *http.Request) {
	v := newView(r, "Voices", "voices")
	data := &userVoicesData{}
	v.Data = data
	sess := h.session(r)

	users, err := h.svc.Users(r.Context(), sess)
	if err != nil {
		h.renderError(w, r, "voices", v, err)
		return
	}
	data.Users = users

	if raw := r.URL.Query().Get("user"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			v.Error = "Invalid user."
			h.Pages.Render(w, http.StatusBadRequest, "voices", v)
			return
		}
		data.Selected = id
		voices, err := h.svc.UserVoices(r.Context(), sess, id)
		if err != nil {
			h.renderError(w, r, "voices", v, err)
			return
		}
		data.Voices = voices
	}
	h.Pages.Render(w, http.StatusOK, "voices", v)
}

func (h *VoiceHandler) DeleteUserVoice(w http.ResponseWriter, r *http.Request) {
	back := "/voices"
	if u := r.FormValue("user"); u != "" {
		back = withParam(back, "user", u)
	}
	id, err := idParam(r, "id")
	if err == nil {
		err = h.svc.DeleteVoice(r.Context(), h.session(r), id)
	}
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	h.done(w, r, back, "Recording deleted.")
}

// --- enrollment wizard ---

func (h *VoiceHandler) renderWizard(w http.ResponseWriter, r *http.Request, status int, wiz *voice.Wizard, msg string) {
	v := newView(r, "Enroll voice", "enroll")
	v.Data = wiz
	if msg != "" {
		v.Error = msg
	}
	h.Pages.Render(w, status, "enroll", v)
}

func (h *VoiceHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	wiz, err := h.svc.Enrollment(r.Context(), h.session(r))
	if err != nil {
		h.renderError(w, r, "enroll", newView(r, "Enroll voice", "enroll"), err)
		return
	}
	h.renderWizard(w, r, http.StatusOK, wiz, "")
}

// wizardStep runs one wizard transition and re-renders, or answers JSON for
// script callers.
func (h *VoiceHandler) wizardStep(w http.ResponseWriter, r *http.Request, wiz *voice.Wizard, err error) {
	if err != nil && h.expired(w, r, err) {
		return
	}
	if middleware.WantsJSON(r) {
		if err != nil {
			writeError(w, r, statusFor(err), messageFor(err))
			return
		}
		writeJSON(w, r, http.StatusOK, wiz)
		return
	}
	if err != nil {
		h.logFailure(r, err)
		if wiz == nil {
			h.renderError(w, r, "enroll", newView(r, "Enroll voice", "enroll"), err)
			return
		}
		h.renderWizard(w, r, statusFor(err), wiz, messageFor(err))
		return
	}
	http.Redirect(w, r, "/enroll", http.StatusSeeOther)
}

func (h *VoiceHandler) EnrollVerify(w http.ResponseWriter, r *http.Request) {
	f, err := parseVoiceForm(w, r)
	if err != nil {
		h.wizardStep(w, r, nil, err)
		return
	}
	wiz, err := h.svc.VerifyStep(r.Context(), h.session(r), f.Audio)
	h.wizardStep(w, r, wiz, err)
}

func (h *VoiceHandler) EnrollNext(w http.ResponseWriter, r *http.Request) {
	wiz, err := h.svc.NextStep(r.Context(), h.session(r))
	h.wizardStep(w, r, wiz, err)
}

func (h *VoiceHandler) EnrollBack(w http.ResponseWriter, r *http.Request) {
	wiz, err := h.svc.PrevStep(r.Context(), h.session(r))
	h.wizardStep(w, r, wiz, err)
}

func (h *VoiceHandler) EnrollFinish(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.FinishEnrollment(r.Context(), h.session(r)); err != nil {
		wiz, _ := h.svc.Enrollment(r.Context(), h.session(r))
		h.wizardStep(w, r, wiz, err)
		return
	}
	h.Logger.Info("voice enrolled", zap.String("session_id", h.session(r).ID))
	h.done(w, r, "/dashboard", "Enrollment complete.")
}
