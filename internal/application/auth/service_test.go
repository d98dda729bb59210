package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/voice-console/internal/application/session"
	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/infrastructure/memory"
	"github.com/voice-console/internal/infrastructure/voiceapi"
	"github.com/voice-console/internal/metrics"
)

// --- mocks ---

type mockAPI struct{ mock.Mock }

func (m *mockAPI) token(args mock.Arguments) (*voiceapi.TokenResponse, error) {
	if r, _ := args.Get(0).(*voiceapi.TokenResponse); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAPI) Login(ctx context.Context, req domain.LoginRequest) (*voiceapi.TokenResponse, error) {
	return m.token(m.Called(ctx, req))
}
func (m *mockAPI) LoginVoice(ctx context.Context, rec domain.Recording) (*voiceapi.TokenResponse, error) {
	return m.token(m.Called(ctx, rec))
}
func (m *mockAPI) Identify(ctx context.Context, token, audio string) (*voiceapi.TokenResponse, error) {
	return m.token(m.Called(ctx, token, audio))
}
func (m *mockAPI) Register(ctx context.Context, token string, req domain.RegisterRequest) error {
	return m.Called(ctx, token, req).Error(0)
}
func (m *mockAPI) Phrases(ctx context.Context, token string) ([]domain.Phrase, error) {
	args := m.Called(ctx, token)
	p, _ := args.Get(0).([]domain.Phrase)
	return p, args.Error(1)
}

const sample = "UklGRg=="

func setup(t *testing.T) (*mockAPI, session.Service, *metrics.Metrics, Service) {
	t.Helper()
	api := &mockAPI{}
	sessions := session.NewService(memory.NewSessionStore(), time.Hour)
	m := metrics.New(prometheus.NewRegistry())
	return api, sessions, m, NewService(api, sessions, m, nil)
}

func newSession(t *testing.T, sessions session.Service, token string) *domain.Session {
	t.Helper()
	s, err := sessions.Load(context.Background(), "")
	require.NoError(t, err)
	s.Token = token
	return s
}

func rejection(conf float64) error {
	return &voiceapi.APIError{Status: http.StatusUnauthorized, Message: "No matching user", Confidence: &conf}
}

// --- Login ---

func TestLogin_StoresToken(t *testing.T) {
	api, sessions, _, svc := setup(t)
	req := domain.LoginRequest{Username: "alice", Password: "secret"}
	api.On("Login", mock.Anything, req).Return(&voiceapi.TokenResponse{AccessToken: "tok"}, nil)

	sess := newSession(t, sessions, "")
	require.NoError(t, svc.Login(context.Background(), sess, req))
	assert.True(t, sess.Authenticated())
	assert.Equal(t, "tok", sess.Token)

	// persisted: a reload by id sees the same slot
	reloaded, err := sessions.Load(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok", reloaded.Token)
}

func TestLogin_Validation(t *testing.T) {
	api, sessions, _, svc := setup(t)
	err := svc.Login(context.Background(), newSession(t, sessions, ""), domain.LoginRequest{Username: "alice"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestLogin_BadCredentials(t *testing.T) {
	api, sessions, _, svc := setup(t)
	api.On("Login", mock.Anything, mock.Anything).Return(nil, &voiceapi.APIError{Status: http.StatusUnauthorized, Message: "Bad credentials"})

	sess := newSession(t, sessions, "")
	err := svc.Login(context.Background(), sess, domain.LoginRequest{Username: "alice", Password: "nope"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.False(t, sess.Authenticated())
}

// --- LoginVoice ---

func TestLoginVoice_Success(t *testing.T) {
	api, sessions, m, svc := setup(t)
	conf := 0.91
	api.On("LoginVoice", mock.Anything, domain.Recording{PhraseID: 1, Audio: sample}).
		Return(&voiceapi.TokenResponse{AccessToken: "tok", Confidence: &conf}, nil)

	sess := newSession(t, sessions, "")
	sess.LoginAttempts = 2
	out, err := svc.LoginVoice(context.Background(), sess, 1, "data:audio/webm;base64,"+sample)
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.Token)
	assert.Zero(t, sess.LoginAttempts)
	assert.Zero(t, out.Attempts)
	assert.InDelta(t, 0.91, *out.Confidence, 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VoiceAttempts.WithLabelValues("login", "success")))
}

func TestLoginVoice_ThreeFailuresEscalate(t *testing.T) {
	api, sessions, m, svc := setup(t)
	api.On("LoginVoice", mock.Anything, mock.Anything).Return(nil, rejection(0.41))

	sess := newSession(t, sessions, "")
	for i := 1; i <= session.MaxVoiceAttempts; i++ {
		out, err := svc.LoginVoice(context.Background(), sess, 1, sample)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Equal(t, i, out.Attempts)
		assert.Equal(t, i == session.MaxVoiceAttempts, out.Fallback)
		require.NotNil(t, out.Confidence)
		assert.InDelta(t, 0.41, *out.Confidence, 1e-9)
	}

	out, err := svc.LoginVoice(context.Background(), sess, 1, sample)
	assert.ErrorIs(t, err, ErrFallbackRequired)
	assert.True(t, out.Fallback)
	api.AssertNumberOfCalls(t, "LoginVoice", session.MaxVoiceAttempts)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VoiceEscalations.WithLabelValues("login")))
}

func TestLoginVoice_TransportFailureNotCounted(t *testing.T) {
	api, sessions, _, svc := setup(t)
	api.On("LoginVoice", mock.Anything, mock.Anything).Return(nil, domain.ErrUnavailable)

	sess := newSession(t, sessions, "")
	out, err := svc.LoginVoice(context.Background(), sess, 1, sample)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Zero(t, out.Attempts)
	assert.Zero(t, sess.LoginAttempts)
}

func TestLoginVoice_InvalidAudio(t *testing.T) {
	api, sessions, _, svc := setup(t)
	_, err := svc.LoginVoice(context.Background(), newSession(t, sessions, ""), 1, "%%%")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	api.AssertNotCalled(t, "LoginVoice", mock.Anything, mock.Anything)
}

func TestLoginVoice_MissingPhrase(t *testing.T) {
	_, sessions, _, svc := setup(t)
	_, err := svc.LoginVoice(context.Background(), newSession(t, sessions, ""), 0, sample)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

// --- Identify ---

func TestIdentify_ReplacesCredential(t *testing.T) {
	api, sessions, _, svc := setup(t)
	api.On("Identify", mock.Anything, "old", sample).Return(&voiceapi.TokenResponse{AccessToken: "fresh"}, nil)

	sess := newSession(t, sessions, "old")
	sess.IdentifyAttempts = 1
	_, err := svc.Identify(context.Background(), sess, sample)
	require.NoError(t, err)
	assert.Equal(t, "fresh", sess.Token)
	assert.Zero(t, sess.IdentifyAttempts)
}

func TestIdentify_RequiresSession(t *testing.T) {
	api, sessions, _, svc := setup(t)
	_, err := svc.Identify(context.Background(), newSession(t, sessions, ""), sample)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	api.AssertNotCalled(t, "Identify", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdentify_EscalatesIndependentlyOfLogin(t *testing.T) {
	api, sessions, _, svc := setup(t)
	api.On("Identify", mock.Anything, "tok", sample).Return(nil, rejection(0.2))

	sess := newSession(t, sessions, "tok")
	var out VoiceOutcome
	var err error
	for i := 0; i < session.MaxVoiceAttempts; i++ {
		out, err = svc.Identify(context.Background(), sess, sample)
		require.Error(t, err)
	}
	assert.True(t, out.Fallback)
	assert.Zero(t, sess.LoginAttempts)
	assert.Equal(t, "tok", sess.Token, "a failed identify keeps the existing credential")

	_, err = svc.Identify(context.Background(), sess, sample)
	assert.ErrorIs(t, err, ErrFallbackRequired)
}

func TestIdentifyCredentials_Fallback(t *testing.T) {
	api, sessions, _, svc := setup(t)
	req := domain.LoginRequest{Username: "alice", Password: "secret"}
	api.On("Login", mock.Anything, req).Return(&voiceapi.TokenResponse{AccessToken: "verified"}, nil)

	sess := newSession(t, sessions, "stale")
	sess.IdentifyAttempts = session.MaxVoiceAttempts
	require.NoError(t, svc.IdentifyCredentials(context.Background(), sess, req))
	assert.Equal(t, "verified", sess.Token)
	assert.Zero(t, sess.IdentifyAttempts)
}

func TestIdentifyCredentials_GatedOnVoiceAttempts(t *testing.T) {
	api, sessions, _, svc := setup(t)
	req := domain.LoginRequest{Username: "alice", Password: "secret"}

	sess := newSession(t, sessions, "stale")
	for attempts := 0; attempts < session.MaxVoiceAttempts; attempts++ {
		sess.IdentifyAttempts = attempts
		err := svc.IdentifyCredentials(context.Background(), sess, req)
		assert.ErrorIs(t, err, ErrVoiceFirst)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	}
	assert.Equal(t, "stale", sess.Token)
	api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestIdentifyCredentials_RequiresSession(t *testing.T) {
	_, sessions, _, svc := setup(t)
	err := svc.IdentifyCredentials(context.Background(), newSession(t, sessions, ""), domain.LoginRequest{Username: "a", Password: "b"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// --- Register / phrases / logout ---

func TestRegister_NormalisesRole(t *testing.T) {
	api, sessions, _, svc := setup(t)
	want := domain.RegisterRequest{Username: "bob", Password: "password1", Role: domain.RoleDataAnalyst}
	api.On("Register", mock.Anything, "admintok", want).Return(nil)

	err := svc.Register(context.Background(), newSession(t, sessions, "admintok"),
		domain.RegisterRequest{Username: "bob", Password: "password1", Role: "Data Analyst"})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestRegister_UnknownRole(t *testing.T) {
	api, sessions, _, svc := setup(t)
	err := svc.Register(context.Background(), newSession(t, sessions, "admintok"),
		domain.RegisterRequest{Username: "bob", Password: "password1", Role: "superuser"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	api.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_Conflict(t *testing.T) {
	api, sessions, _, svc := setup(t)
	api.On("Register", mock.Anything, mock.Anything, mock.Anything).
		Return(&voiceapi.APIError{Status: http.StatusConflict, Message: "User already exists"})

	err := svc.Register(context.Background(), newSession(t, sessions, "admintok"),
		domain.RegisterRequest{Username: "bob", Password: "password1", Role: domain.RoleViewer})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestLoginPhrase(t *testing.T) {
	api, _, _, svc := setup(t)
	api.On("Phrases", mock.Anything, "").Return([]domain.Phrase{{ID: 4, Text: "my voice is my passport"}, {ID: 5, Text: "other"}}, nil).Once()
	api.On("Phrases", mock.Anything, "").Return([]domain.Phrase{}, nil).Once()

	p, err := svc.LoginPhrase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.ID)

	_, err = svc.LoginPhrase(context.Background())
	assert.ErrorIs(t, err, ErrNoPhrases)
}

func TestLogout_ClearsSlot(t *testing.T) {
	_, sessions, _, svc := setup(t)
	sess := newSession(t, sessions, "tok")
	require.NoError(t, sessions.Save(context.Background(), sess))

	require.NoError(t, svc.Logout(context.Background(), sess))
	assert.False(t, sess.Authenticated())

	reloaded, err := sessions.Load(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Authenticated())
	assert.NotEqual(t, sess.ID, reloaded.ID)
}

func TestVoiceFailure_StoreErrorJoined(t *testing.T) {
	api := &mockAPI{}
	sessions := session.NewService(failingStore{}, time.Hour)
	svc := NewService(api, sessions, nil, nil)
	api.On("LoginVoice", mock.Anything, mock.Anything).Return(nil, rejection(0.1))

	_, err := svc.LoginVoice(context.Background(), &domain.Session{ID: "x"}, 1, sample)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.ErrorIs(t, err, errStoreDown)
}

var errStoreDown = errors.New("store down")

type failingStore struct{}

func (failingStore) Get(context.Context, string) (*domain.Session, error) { return nil, errStoreDown }
func (failingStore) Put(context.Context, *domain.Session, time.Duration) error {
	return errStoreDown
}
func (failingStore) Delete(context.Context, string) error { return errStoreDown }
