package voiceapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/voice-console/internal/domain"
)

// Users returns one page of the account table.
func (c *Client) Users(ctx context.Context, token string, f domain.UserFilter) (*domain.UserPage, error) {
	q := pageQuery(f.Page, f.PerPage)
	setIf(q, "id", f.ID)
	setIf(q, "username", f.Username)
	setIf(q, "role", f.Role)

	var out domain.UserPage
	if err := c.do(ctx, call{
		endpoint: "admin_users",
		method:   http.MethodGet,
		path:     "/admin/users",
		token:    token,
		query:    q,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUserRole changes an account's role. The API answers 409 when the role
// is unchanged.
func (c *Client) UpdateUserRole(ctx context.Context, token string, userID int64, role domain.Role) error {
	return c.do(ctx, call{
		endpoint: "admin_update_role",
		method:   http.MethodPatch,
		path:     "/admin/users/" + strconv.FormatInt(userID, 10),
		token:    token,
		body:     domain.UpdateRoleRequest{Role: role},
	}, nil)
}

func (c *Client) DeleteUser(ctx context.Context, token string, userID int64) error {
	return c.do(ctx, call{
		endpoint: "admin_delete_user",
		method:   http.MethodDelete,
		path:     "/admin/users/" + strconv.FormatInt(userID, 10),
		token:    token,
	}, nil)
}

// AuditLogs returns one page of the audit trail, newest first.
func (c *Client) AuditLogs(ctx context.Context, token string, f domain.AuditLogFilter) (*domain.AuditLogPage, error) {
	q := pageQuery(f.Page, f.PerPage)
	setIf(q, "id", f.ID)
	setIf(q, "user_id", f.UserID)
	setIf(q, "username", f.Username)
	setIf(q, "action", f.Action)

	var out domain.AuditLogPage
	if err := c.do(ctx, call{
		endpoint: "admin_audit_logs",
		method:   http.MethodGet,
		path:     "/admin/audit-logs",
		token:    token,
		query:    q,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func pageQuery(page, perPage int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	return q
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
