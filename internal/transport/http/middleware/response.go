package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

// WantsJSON reports whether the caller is a script expecting JSON rather than
// a browser navigation.
func WantsJSON(r *http.Request) bool {
	if render.GetAcceptedContentType(r) == render.ContentTypeJSON {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// writeError answers with a JSON error body for scripts and plain text for
// browsers.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if WantsJSON(r) {
		render.Status(r, status)
		render.JSON(w, r, map[string]string{"error": msg})
		return
	}
	http.Error(w, msg, status)
}

// redirect sends a browser to target with 303. Scripts get 401 with the
// target in the body instead, since fetch follows redirects silently.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if WantsJSON(r) {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "unauthorized", "redirect": target})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
