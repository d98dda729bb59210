package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/pkg/claims"
	"github.com/voice-console/internal/pkg/id"
)

// MaxVoiceAttempts is how many failed voice matches a session may make before
// it is switched to the credential fallback.
const MaxVoiceAttempts = 3

// Attempt selects which voice flow a failure counts against.
type Attempt int

const (
	AttemptLogin Attempt = iota
	AttemptIdentify
)

// Store persists sessions. Get wraps domain.ErrNotFound for unknown or expired ids.
type Store interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Put(ctx context.Context, s *domain.Session, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}

// Service is the explicit session context: it owns the single credential slot
// of each browser session and the counters that hang off it.
type Service interface {
	// Load returns the session for sessionID, or a fresh unsaved one when the id
	// is empty, malformed, unknown or expired.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)
	// Claims decodes the slot's credential; ok is false when the slot is empty
	// or holds a malformed credential.
	Claims(s *domain.Session) (claims.Claims, bool)
	// Update stores token in the slot, replacing any previous credential, and
	// resets the voice attempt counters.
	Update(ctx context.Context, s *domain.Session, token string) error
	// Clear empties the slot and drops per-user state.
	Clear(ctx context.Context, s *domain.Session) error
	Save(ctx context.Context, s *domain.Session) error
	// RecordVoiceFailure increments the counter for kind and reports the new
	// count and whether the credential fallback is now required.
	RecordVoiceFailure(ctx context.Context, s *domain.Session, kind Attempt) (attempts int, fallback bool, err error)
	Destroy(ctx context.Context, s *domain.Session) error
}

type service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewService(store Store, ttl time.Duration) Service {
	return &service{store: store, ttl: ttl, now: time.Now}
}

func (s *service) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID != "" && id.Valid(sessionID) {
		sess, err := s.store.Get(ctx, sessionID)
		switch {
		case err == nil:
			if sess.ExpiresAt == 0 || sess.ExpiresAt > s.now().Unix() {
				return sess, nil
			}
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("load session: %w", err)
		}
	}
	now := s.now().UTC()
	return &domain.Session{
		ID:        id.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *service) Claims(sess *domain.Session) (claims.Claims, bool) {
	if !sess.Authenticated() {
		return nil, false
	}
	return claims.Decode(sess.Token)
}

func (s *service) Update(ctx context.Context, sess *domain.Session, token string) error {
	sess.Token = token
	sess.LoginAttempts = 0
	sess.IdentifyAttempts = 0
	return s.Save(ctx, sess)
}

func (s *service) Clear(ctx context.Context, sess *domain.Session) error {
	sess.Token = ""
	sess.IdentifyAttempts = 0
	sess.Enrollment = nil
	return s.Save(ctx, sess)
}

func (s *service) Save(ctx context.Context, sess *domain.Session) error {
	now := s.now().UTC()
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(s.ttl).Unix()
	if err := s.store.Put(ctx, sess, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *service) RecordVoiceFailure(ctx context.Context, sess *domain.Session, kind Attempt) (int, bool, error) {
	var n int
	switch kind {
	case AttemptLogin:
		sess.LoginAttempts++
		n = sess.LoginAttempts
	case AttemptIdentify:
		sess.IdentifyAttempts++
		n = sess.IdentifyAttempts
	}
	if err := s.Save(ctx, sess); err != nil {
		return n, n >= MaxVoiceAttempts, err
	}
	return n, n >= MaxVoiceAttempts, nil
}

func (s *service) Destroy(ctx context.Context, sess *domain.Session) error {
	sess.Token = ""
	sess.Enrollment = nil
	if err := s.store.Delete(ctx, sess.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
