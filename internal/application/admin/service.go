package admin

import (
	"context"
	"fmt"

	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/pkg/claims"
	"github.com/voice-console/internal/pkg/validate"
)

const (
	UsersPerPage     = 50
	AuditLogsPerPage = 25
)

var ErrSelfDelete = fmt.Errorf("%w: you cannot delete your own account", domain.ErrForbidden)

// API is the admin part of the voice API.
type API interface {
	Users(ctx context.Context, token string, f domain.UserFilter) (*domain.UserPage, error)
	UpdateUserRole(ctx context.Context, token string, userID int64, role domain.Role) error
	DeleteUser(ctx context.Context, token string, userID int64) error
	AuditLogs(ctx context.Context, token string, f domain.AuditLogFilter) (*domain.AuditLogPage, error)
}

type Service interface {
	Users(ctx context.Context, sess *domain.Session, f domain.UserFilter) (*domain.UserPage, error)
	// UpdateRole changes a user's role. Setting the current role again is a
	// domain.ErrConflict.
	UpdateRole(ctx context.Context, sess *domain.Session, userID int64, role string) error
	DeleteUser(ctx context.Context, sess *domain.Session, userID int64) error
	AuditLogs(ctx context.Context, sess *domain.Session, f domain.AuditLogFilter) (*domain.AuditLogPage, error)
}

type service struct {
	api API
}

func NewService(api API) Service {
	return &service{api: api}
}

func (s *service) Users(ctx context.Context, sess *domain.Session, f domain.UserFilter) (*domain.UserPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = UsersPerPage
	}
	if f.Role != "" {
		if r, ok := domain.ParseRole(f.Role); ok {
			f.Role = r.String()
		}
	}
	if err := validate.Struct(f); err != nil {
		return nil, err
	}
	page, err := s.api.Users(ctx, sess.Token, f)
	if err != nil {
		return nil, err
	}
	clampPages(&page.Page, &page.Pages)
	return page, nil
}

func (s *service) UpdateRole(ctx context.Context, sess *domain.Session, userID int64, role string) error {
	if userID <= 0 {
		return fmt.Errorf("%w: invalid user id", domain.ErrBadRequest)
	}
	r, ok := domain.ParseRole(role)
	if !ok {
		return fmt.Errorf("%w: role must be one of admin, data analyst, business user, viewer", domain.ErrBadRequest)
	}
	return s.api.UpdateUserRole(ctx, sess.Token, userID, r)
}

func (s *service) DeleteUser(ctx context.Context, sess *domain.Session, userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("%w: invalid user id", domain.ErrBadRequest)
	}
	if c, ok := claims.Decode(sess.Token); ok && c.Subject() == fmt.Sprint(userID) {
		return ErrSelfDelete
	}
	return s.api.DeleteUser(ctx, sess.Token, userID)
}

func (s *service) AuditLogs(ctx context.Context, sess *domain.Session, f domain.AuditLogFilter) (*domain.AuditLogPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = AuditLogsPerPage
	}
	if err := validate.Struct(f); err != nil {
		return nil, err
	}
	page, err := s.api.AuditLogs(ctx, sess.Token, f)
	if err != nil {
		return nil, err
	}
	clampPages(&page.Page, &page.Pages)
	return page, nil
}

// clampPages keeps an empty result renderable as "page 1 of 1".
func clampPages(page, pages *int) {
	if *pages < 1 {
		*pages = 1
	}
	if *page < 1 {
		*page = 1
	}
}
