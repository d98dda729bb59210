package domain

// AuditLog is one row of the remote audit trail.
type AuditLog struct {
	ID        int64          `json:"id"`
	UserID    *int64         `json:"user_id"`
	Username  *string        `json:"username"`
	Action    string         `json:"action"`
	Timestamp string         `json:"timestamp"`
	Details   map[string]any `json:"details"`
}

// AuditLogFilter narrows the audit table. Empty fields are not sent.
type AuditLogFilter struct {
	Page     int    `validate:"gte=1"`
	PerPage  int    `validate:"gte=1,lte=200"`
	ID       string `validate:"omitempty,numeric"`
	UserID   string `validate:"omitempty,numeric"`
	Username string `validate:"max=80"`
	Action   string `validate:"max=80"`
}

type AuditLogPage struct {
	Logs  []AuditLog `json:"logs"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Pages int        `json:"pages"`
}
