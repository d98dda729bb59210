package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/voice-console/internal/application/admin"
	"github.com/voice-console/internal/domain"
	"go.uber.org/zap"
)

// AdminHandler serves the users table and the audit log.
type AdminHandler struct {
	Base
	svc admin.Service
}

func NewAdminHandler(base Base, svc admin.Service) *AdminHandler {
	return &AdminHandler{Base: base, svc: svc}
}

// Pager is the pagination strip under a table.
type Pager struct {
	Page  int
	Pages int
	Total int
	Prev  string
	Next  string
}

func newPager(r *http.Request, page, pages, total int) Pager {
	p := Pager{Page: page, Pages: pages, Total: total}
	link := func(n int) string {
		q := r.URL.Query()
		q.Del("ok")
		q.Del("err")
		q.Set("page", strconv.Itoa(n))
		return r.URL.Path + "?" + q.Encode()
	}
	if page > 1 {
		p.Prev = link(page - 1)
	}
	if page < pages {
		p.Next = link(page + 1)
	}
	return p
}

func pageParam(q url.Values) int {
	n, err := strconv.Atoi(q.Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

type usersData struct {
	Filter domain.UserFilter
	Users  []domain.User
	Pager  Pager
	Back   string
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.UserFilter{
		Page:     pageParam(q),
		PerPage:  admin.UsersPerPage,
		ID:       q.Get("id"),
		Username: q.Get("username"),
		Role:     q.Get("role"),
	}
	v := newView(r, "Users", "admin-users")
	data := &usersData{Filter: f, Back: tableURL(r)}
	v.Data = data

	page, err := h.svc.Users(r.Context(), h.session(r), f)
	if err != nil {
		h.renderError(w, r, "admin_users", v, err)
		return
	}
	data.Users = page.Users
	data.Pager = newPager(r, page.Page, page.Pages, page.Total)
	h.Pages.Render(w, http.StatusOK, "admin_users", v)
}

// tableURL is the current table URL without flash parameters.
func tableURL(r *http.Request) string {
	q := r.URL.Query()
	q.Del("ok")
	q.Del("err")
	if len(q) == 0 {
		return r.URL.Path
	}
	return r.URL.Path + "?" + q.Encode()
}

// back returns the table URL the form was posted from.
func back(r *http.Request, fallback string) string {
	return safeNext(r.PostFormValue("back"), fallback)
}

func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	ret := back(r, "/admin/users")
	id, err := idParam(r, "id")
	if err == nil {
		err = h.svc.UpdateRole(r.Context(), h.session(r), id, r.PostFormValue("role"))
	}
	if err != nil {
		h.fail(w, r, err, ret)
		return
	}
	h.Logger.Info("role updated", zap.Int64("user_id", id), zap.String("role", r.PostFormValue("role")))
	h.done(w, r, ret, "Role updated.")
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ret := back(r, "/admin/users")
	id, err := idParam(r, "id")
	if err == nil {
		err = h.svc.DeleteUser(r.Context(), h.session(r), id)
	}
	if err != nil {
		h.fail(w, r, err, ret)
		return
	}
	h.Logger.Info("user deleted", zap.Int64("user_id", id))
	h.done(w, r, ret, "User deleted.")
}

type auditData struct {
	Filter domain.AuditLogFilter
	Logs   []domain.AuditLog
	Pager  Pager
}

func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.AuditLogFilter{
		Page:     pageParam(q),
		PerPage:  admin.AuditLogsPerPage,
		ID:       q.Get("id"),
		UserID:   q.Get("user_id"),
		Username: q.Get("username"),
		Action:   q.Get("action"),
	}
	v := newView(r, "Audit logs", "audit-logs")
	data := &auditData{Filter: f}
	v.Data = data

	page, err := h.svc.AuditLogs(r.Context(), h.session(r), f)
	if err != nil {
		h.renderError(w, r, "audit_logs", v, err)
		return
	}
	data.Logs = page.Logs
	data.Pager = newPager(r, page.Page, page.Pages, page.Total)
	h.Pages.Render(w, http.StatusOK, "audit_logs", v)
}
