package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/render"
	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/infrastructure/voiceapi"
)

// MessageEnvelope is the generic JSON response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// VerifyEnvelope answers the verification overlay's asynchronous requests.
type VerifyEnvelope struct {
	Verified    bool     `json:"verified"`
	Next        string   `json:"next,omitempty"`
	Attempts    int      `json:"attempts"`
	MaxAttempts int      `json:"max_attempts"`
	Fallback    bool     `json:"fallback"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, MessageEnvelope{Error: msg})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// messageFor is the user-facing text for err. Remote API messages are shown
// as-is; unexpected errors are not leaked.
func messageFor(err error) string {
	if apiErr, ok := voiceapi.AsAPIError(err); ok {
		return apiErr.Message
	}
	switch statusFor(err) {
	case http.StatusInternalServerError:
		return "Something went wrong. Please try again."
	case http.StatusBadGateway:
		return "The voice service is unreachable. Please try again shortly."
	}
	msg := err.Error()
	for _, sentinel := range sentinels {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	return msg
}

var sentinels = []error{
	domain.ErrBadRequest, domain.ErrUnauthorized, domain.ErrForbidden,
	domain.ErrNotFound, domain.ErrConflict,
}

// withParam appends key=value to target's query string.
func withParam(target, key, value string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// safeNext accepts only local absolute paths as redirect targets. Control
// characters are rejected because browsers strip them, which turns "/\t/host"
// into a protocol-relative URL.
func safeNext(next, fallback string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	for i := 0; i < len(next); i++ {
		if c := next[i]; c < 0x20 || c == 0x7f {
			return fallback
		}
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
