package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/voice-console/internal/application/session"
	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/infrastructure/voiceapi"
	"github.com/voice-console/internal/metrics"
	"github.com/voice-console/internal/pkg/validate"
	"github.com/voice-console/internal/recorder"
	"go.uber.org/zap"
)

var (
	// ErrFallbackRequired is returned once a session has used up its voice
	// attempts; only username and password are accepted from then on.
	ErrFallbackRequired = fmt.Errorf("%w: too many failed voice attempts, sign in with username and password", domain.ErrForbidden)
	ErrNoPhrases        = fmt.Errorf("%w: no phrases configured", domain.ErrNotFound)
	// ErrVoiceFirst refuses the credential fallback of the overlay while the
	// session still has voice attempts left.
	ErrVoiceFirst = fmt.Errorf("%w: verify by voice first, username and password are accepted after %d failed attempts",
		domain.ErrForbidden, session.MaxVoiceAttempts)
)

// API is the part of the voice API the auth flows use.
type API interface {
	Login(ctx context.Context, req domain.LoginRequest) (*voiceapi.TokenResponse, error)
	LoginVoice(ctx context.Context, rec domain.Recording) (*voiceapi.TokenResponse, error)
	Identify(ctx context.Context, token, audio string) (*voiceapi.TokenResponse, error)
	Register(ctx context.Context, token string, req domain.RegisterRequest) error
	Phrases(ctx context.Context, token string) ([]domain.Phrase, error)
}

// VoiceOutcome describes a voice attempt, successful or not.
type VoiceOutcome struct {
	Attempts   int
	Fallback   bool
	Confidence *float64
}

type Service interface {
	// LoginPhrase returns the phrase shown on the voice login form.
	LoginPhrase(ctx context.Context) (*domain.Phrase, error)
	// Login exchanges credentials for a token and stores it in the session.
	Login(ctx context.Context, sess *domain.Session, req domain.LoginRequest) error
	LoginVoice(ctx context.Context, sess *domain.Session, phraseID int64, audio string) (VoiceOutcome, error)
	// Identify re-verifies the signed-in user's voice and stores the fresh
	// credential.
	Identify(ctx context.Context, sess *domain.Session, audio string) (VoiceOutcome, error)
	// IdentifyCredentials is the fallback after session.MaxVoiceAttempts
	// failed identify attempts; earlier calls fail with ErrVoiceFirst.
	IdentifyCredentials(ctx context.Context, sess *domain.Session, req domain.LoginRequest) error
	Register(ctx context.Context, sess *domain.Session, req domain.RegisterRequest) error
	Logout(ctx context.Context, sess *domain.Session) error
}

type service struct {
	api      API
	sessions session.Service
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewService(api API, sessions session.Service, m *metrics.Metrics, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{api: api, sessions: sessions, metrics: m, logger: logger}
}

func (s *service) LoginPhrase(ctx context.Context) (*domain.Phrase, error) {
	phrases, err := s.api.Phrases(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(phrases) == 0 {
		return nil, ErrNoPhrases
	}
	return &phrases[0], nil
}

func (s *service) Login(ctx context.Context, sess *domain.Session, req domain.LoginRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	resp, err := s.api.Login(ctx, req)
	if err != nil {
		return err
	}
	return s.sessions.Update(ctx, sess, resp.AccessToken)
}

func (s *service) LoginVoice(ctx context.Context, sess *domain.Session, phraseID int64, audio string) (VoiceOutcome, error) {
	out := VoiceOutcome{Attempts: sess.LoginAttempts}
	if sess.LoginAttempts >= session.MaxVoiceAttempts {
		out.Fallback = true
		return out, ErrFallbackRequired
	}
	if phraseID <= 0 {
		return out, fmt.Errorf("%w: phrase is required", domain.ErrBadRequest)
	}
	audio, err := recorder.Normalize(audio)
	if err != nil {
		return out, err
	}

	resp, err := s.api.LoginVoice(ctx, domain.Recording{PhraseID: phraseID, Audio: audio})
	if err != nil {
		return s.voiceFailure(ctx, sess, session.AttemptLogin, out, err)
	}
	s.metrics.ObserveVoiceAttempt("login", true, false)
	out.Confidence = resp.Confidence
	out.Attempts = 0
	return out, s.sessions.Update(ctx, sess, resp.AccessToken)
}

func (s *service) Identify(ctx context.Context, sess *domain.Session, audio string) (VoiceOutcome, error) {
	out := VoiceOutcome{Attempts: sess.IdentifyAttempts}
	if !sess.Authenticated() {
		return out, domain.ErrUnauthorized
	}
	if sess.IdentifyAttempts >= session.MaxVoiceAttempts {
		out.Fallback = true
		return out, ErrFallbackRequired
	}
	audio, err := recorder.Normalize(audio)
	if err != nil {
		return out, err
	}

	resp, err := s.api.Identify(ctx, sess.Token, audio)
	if err != nil {
		return s.voiceFailure(ctx, sess, session.AttemptIdentify, out, err)
	}
	s.metrics.ObserveVoiceAttempt("identify", true, false)
	out.Confidence = resp.Confidence
	out.Attempts = 0
	return out, s.sessions.Update(ctx, sess, resp.AccessToken)
}

// voiceFailure counts a rejected sample against the session. Transport
// failures are not the speaker's fault and are not counted.
func (s *service) voiceFailure(ctx context.Context, sess *domain.Session, kind session.Attempt, out VoiceOutcome, cause error) (VoiceOutcome, error) {
	if errors.Is(cause, domain.ErrUnavailable) {
		return out, cause
	}
	if apiErr, ok := voiceapi.AsAPIError(cause); ok {
		out.Confidence = apiErr.Confidence
	}

	n, fallback, err := s.sessions.RecordVoiceFailure(ctx, sess, kind)
	out.Attempts = n
	out.Fallback = fallback

	flow := "login"
	if kind == session.AttemptIdentify {
		flow = "identify"
	}
	s.metrics.ObserveVoiceAttempt(flow, false, fallback)
	if fallback {
		s.logger.Info("voice attempts exhausted, switching to credential fallback",
			zap.String("flow", flow),
			zap.String("session_id", sess.ID),
		)
	}
	if err != nil {
		return out, errors.Join(cause, err)
	}
	return out, cause
}

func (s *service) IdentifyCredentials(ctx context.Context, sess *domain.Session, req domain.LoginRequest) error {
	if !sess.Authenticated() {
		return domain.ErrUnauthorized
	}
	if sess.IdentifyAttempts < session.MaxVoiceAttempts {
		return ErrVoiceFirst
	}
	return s.Login(ctx, sess, req)
}

func (s *service) Register(ctx context.Context, sess *domain.Session, req domain.RegisterRequest) error {
	if role, ok := domain.ParseRole(string(req.Role)); ok {
		req.Role = role
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	return s.api.Register(ctx, sess.Token, req)
}

func (s *service) Logout(ctx context.Context, sess *domain.Session) error {
	return s.sessions.Destroy(ctx, sess)
}
