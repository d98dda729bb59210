package handler

import "net/http"

// Dashboard is the landing view every signed-in role can see.
func Dashboard(pages *Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := newView(r, "Dashboard", "dashboard")
		pages.Render(w, http.StatusOK, "dashboard", v)
	}
}
