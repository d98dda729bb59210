package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/infrastructure/credfile"
	"github.com/voice-console/internal/infrastructure/voiceapi"
	"github.com/voice-console/internal/recorder"
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
func (m *mockAPI) Phrases(ctx context.Context, token string) ([]domain.Phrase, error) {
	args := m.Called(ctx, token)
	p, _ := args.Get(0).([]domain.Phrase)
	return p, args.Error(1)
}
func (m *mockAPI) MyVoices(ctx context.Context, token string) ([]domain.Voice, error) {
	args := m.Called(ctx, token)
	v, _ := args.Get(0).([]domain.Voice)
	return v, args.Error(1)
}
func (m *mockAPI) AddVoice(ctx context.Context, token, audio string) (*domain.Voice, error) {
	args := m.Called(ctx, token, audio)
	v, _ := args.Get(0).(*domain.Voice)
	return v, args.Error(1)
}
func (m *mockAPI) DeleteVoice(ctx context.Context, token string, voiceID int64) error {
	return m.Called(ctx, token, voiceID).Error(0)
}
func (m *mockAPI) Users(ctx context.Context, token string, f domain.UserFilter) (*domain.UserPage, error) {
	args := m.Called(ctx, token, f)
	p, _ := args.Get(0).(*domain.UserPage)
	return p, args.Error(1)
}
func (m *mockAPI) UpdateUserRole(ctx context.Context, token string, userID int64, role domain.Role) error {
	return m.Called(ctx, token, userID, role).Error(0)
}
func (m *mockAPI) DeleteUser(ctx context.Context, token string, userID int64) error {
	return m.Called(ctx, token, userID).Error(0)
}
func (m *mockAPI) AuditLogs(ctx context.Context, token string, f domain.AuditLogFilter) (*domain.AuditLogPage, error) {
	args := m.Called(ctx, token, f)
	p, _ := args.Get(0).(*domain.AuditLogPage)
	return p, args.Error(1)
}

type stubPrompter struct {
	creds   domain.LoginRequest
	confirm bool
	role    domain.Role
	asked   []string
}

func (p *stubPrompter) Credentials(username string) (domain.LoginRequest, error) {
	p.asked = append(p.asked, "credentials:"+username)
	if p.creds.Username == "" {
		return domain.LoginRequest{Username: username}, ErrNotInteractive
	}
	return p.creds, nil
}

func (p *stubPrompter) Confirm(title string) (bool, error) {
	p.asked = append(p.asked, "confirm:"+title)
	return p.confirm, nil
}

func (p *stubPrompter) Role(title string, current domain.Role) (domain.Role, error) {
	p.asked = append(p.asked, "role")
	return p.role, nil
}

// --- harness ---

var sample = base64.StdEncoding.EncodeToString([]byte("voice sample"))

type harness struct {
	api    *mockAPI
	prompt *stubPrompter
	creds  *credfile.Store
	out    *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		api:    &mockAPI{},
		prompt: &stubPrompter{},
		creds:  credfile.New(filepath.Join(t.TempDir(), "credential.json")),
		out:    &bytes.Buffer{},
	}
}

func (h *harness) run(args ...string) error {
	app := &App{
		API:    h.api,
		Creds:  h.creds,
		Source: recorder.ReaderSource{R: strings.NewReader("voice sample")},
		Prompt: h.prompt,
		In:     strings.NewReader(""),
		Out:    h.out,
	}
	root := NewRootCommand(app, Defaults{VerifyWindow: 15 * time.Minute})
	root.SetArgs(args)
	root.SetOut(h.out)
	root.SetErr(h.out)
	return root.ExecuteContext(context.Background())
}

func (h *harness) login(t *testing.T, token string) {
	t.Helper()
	require.NoError(t, h.creds.Update(token, "alice"))
}

func (h *harness) stored(t *testing.T) *credfile.Credential {
	t.Helper()
	c, err := h.creds.Load()
	require.NoError(t, err)
	return c
}

func credential(t *testing.T, role domain.Role, verifiedAt time.Time) string {
	t.Helper()
	payload := map[string]any{"sub": "1", "username": "alice", "role": string(role)}
	if !verifiedAt.IsZero() {
		payload["voice_verified_at"] = verifiedAt.UTC().Format("2006-01-02T15:04:05.000000")
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." + enc.EncodeToString(raw) + ".sig"
}

func fresh() time.Time { return time.Now().Add(-time.Minute) }
func stale() time.Time { return time.Now().Add(-time.Hour) }

func sampleFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sample.webm")
	require.NoError(t, os.WriteFile(p, []byte("voice sample"), 0o600))
	return p
}

func apiError(status int, msg string) error {
	return &voiceapi.APIError{Status: status, Message: msg}
}

func rejected(conf float64) error {
	return &voiceapi.APIError{Status: http.StatusUnauthorized, Message: "No matching user", Confidence: &conf}
}

// --- login ---

func TestLogin_Flags(t *testing.T) {
	h := newHarness(t)
	req := domain.LoginRequest{Username: "alice", Password: "secret"}
	h.api.On("Login", mock.Anything, req).
		Return(&voiceapi.TokenResponse{AccessToken: "tok", User: &domain.User{ID: 1, Username: "alice"}}, nil)

	require.NoError(t, h.run("login", "-u", "alice", "-p", "secret"))

	c := h.stored(t)
	assert.Equal(t, "tok", c.AccessToken)
	assert.Equal(t, "alice", c.Username)
	assert.Contains(t, h.out.String(), "Logged in as alice.")
	assert.Empty(t, h.prompt.asked)
}

func TestLogin_PromptsForMissingPassword(t *testing.T) {
	h := newHarness(t)
	h.prompt.creds = domain.LoginRequest{Username: "alice", Password: "secret"}
	h.api.On("Login", mock.Anything, h.prompt.creds).Return(&voiceapi.TokenResponse{AccessToken: "tok"}, nil)

	require.NoError(t, h.run("login", "--username", "alice"))

	assert.Equal(t, []string{"credentials:alice"}, h.prompt.asked)
	assert.Equal(t, "tok", h.stored(t).AccessToken)
}

func TestLogin_Rejected(t *testing.T) {
	h := newHarness(t)
	h.api.On("Login", mock.Anything, mock.Anything).Return(nil, apiError(http.StatusUnauthorized, "Invalid credentials"))

	err := h.run("login", "-u", "alice", "-p", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = h.creds.Load()
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLogin_NotInteractiveWithoutFlags(t *testing.T) {
	h := newHarness(t)
	err := h.run("login")
	assert.ErrorIs(t, err, ErrNotInteractive)
	h.api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestLogin_Voice(t *testing.T) {
	h := newHarness(t)
	conf := 0.93
	h.api.On("Phrases", mock.Anything, "").Return([]domain.Phrase{{ID: 4, Text: "my voice is my passport"}}, nil)
	h.api.On("LoginVoice", mock.Anything, domain.Recording{PhraseID: 4, Audio: sample}).
		Return(&voiceapi.TokenResponse{AccessToken: "tok", Confidence: &conf}, nil)

	require.NoError(t, h.run("login", "--voice", "--file", sampleFile(t)))

	assert.Equal(t, "tok", h.stored(t).AccessToken)
	out := h.out.String()
	assert.Contains(t, out, "my voice is my passport")
	assert.Contains(t, out, "confidence 0.930")
}

func TestLogin_VoiceFallsBackAfterThreeRejections(t *testing.T) {
	h := newHarness(t)
	h.prompt.creds = domain.LoginRequest{Username: "alice", Password: "secret"}
	h.api.On("Phrases", mock.Anything, "").Return([]domain.Phrase{{ID: 1, Text: "open sesame"}}, nil)
	h.api.On("LoginVoice", mock.Anything, mock.Anything).Return(nil, rejected(0.41))
	h.api.On("Login", mock.Anything, h.prompt.creds).Return(&voiceapi.TokenResponse{AccessToken: "tok"}, nil)

	require.NoError(t, h.run("login", "--voice", "--file", sampleFile(t)))

	h.api.AssertNumberOfCalls(t, "LoginVoice", 3)
	out := h.out.String()
	assert.Contains(t, out, "confidence 0.410")
	assert.Contains(t, out, "2 attempt(s) left")
	assert.Contains(t, out, fallbackMessage)
	assert.Equal(t, "tok", h.stored(t).AccessToken)
}

func TestLogin_VoiceUnavailableIsNotAnAttempt(t *testing.T) {
	h := newHarness(t)
	h.api.On("Phrases", mock.Anything, "").Return([]domain.Phrase{{ID: 1, Text: "open sesame"}}, nil)
	h.api.On("LoginVoice", mock.Anything, mock.Anything).Return(nil, apiError(http.StatusServiceUnavailable, "model loading"))

	err := h.run("login", "--voice", "--file", sampleFile(t))
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	h.api.AssertNumberOfCalls(t, "LoginVoice", 1)
	h.api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestLogin_VoiceWithoutPhrasesUsesCredentials(t *testing.T) {
	h := newHarness(t)
	h.prompt.creds = domain.LoginRequest{Username: "alice", Password: "secret"}
	h.api.On("Phrases", mock.Anything, "").Return([]domain.Phrase{}, nil)
	h.api.On("Login", mock.Anything, h.prompt.creds).Return(&voiceapi.TokenResponse{AccessToken: "tok"}, nil)

	require.NoError(t, h.run("login", "--voice"))

	assert.Contains(t, h.out.String(), "Voice login is unavailable")
	h.api.AssertNotCalled(t, "LoginVoice", mock.Anything, mock.Anything)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login(t, "tok")

	require.NoError(t, h.run("logout"))
	_, err := h.creds.Load()
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, h.run("logout"), "logging out twice is fine")
}

// --- whoami / identify ---

func TestWhoami(t *testing.T) {
	h := newHarness(t)
	h.login(t, credential(t, domain.RoleAdmin, fresh()))

	require.NoError(t, h.run("whoami"))

	out := h.out.String()
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "admin")
	assert.Contains(t, out, "verified")
	assert.NotContains(t, out, "unverified")
	assert.Contains(t, out, "Verified at")
}

func TestWhoami_Stale(t *testing.T) {
	h := newHarness(t)
	h.login(t, credential(t, domain.RoleViewer, stale()))

	require.NoError(t, h.run("whoami"))
	assert.Contains(t, h.out.String(), "unverified")
}

func TestWhoami_MalformedCredentialIsCleared(t *testing.T) {
	h := newHarness(t)
	h.login(t, "not-a-jwt")

	err := h.run("whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
	_, err = h.creds.Load()
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWhoami_NotLoggedIn(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.run("whoami"), errNotLoggedIn)
}

func TestIdentify_ReplacesCredential(t *testing.T) {
	h := newHarness(t)
	old := credential(t, domain.RoleViewer, stale())
	verified := credential(t, domain.RoleViewer, fresh())
	h.login(t, old)
	h.api.On("Identify", mock.Anything, old, sample).Return(&voiceapi.TokenResponse{AccessToken: verified}, nil)

	require.NoError(t, h.run("identify", "--file", sampleFile(t)))

	c := h.stored(t)
	assert.Equal(t, verified, c.AccessToken)
	assert.Equal(t, "alice", c.Username)
	assert.Contains(t, h.out.String(), "Voice verified.")
}

func TestIdentify_RecordsForDuration(t *testing.T) {
	h := newHarness(t)
	old := credential(t, domain.RoleViewer, stale())
	h.login(t, old)
	h.api.On("Identify", mock.Anything, old, sample).Return(&voiceapi.TokenResponse{AccessToken: "fresh"}, nil)

	require.NoError(t, h.run("identify", "--duration", "5s"))
	assert.Equal(t, "fresh", h.stored(t).AccessToken)
}

func TestIdentify_FallbackKeepsSlotUntilCredentialsSucceed(t *testing.T) {
	h := newHarness(t)
	old := credential(t, domain.RoleViewer, stale())
	h.login(t, old)
	h.prompt.creds = domain.LoginRequest{Username: "alice", Password: "secret"}
	h.api.On("Identify", mock.Anything, old, sample).Return(nil, rejected(0.2))
	h.api.On("Login", mock.Anything, h.prompt.creds).Return(&voiceapi.TokenResponse{AccessToken: "renewed"}, nil)

	require.NoError(t, h.run("identify", "--file", sampleFile(t)))

	h.api.AssertNumberOfCalls(t, "Identify", 3)
	assert.Equal(t, []string{"credentials:alice"}, h.prompt.asked)
	assert.Equal(t, "renewed", h.stored(t).AccessToken)
}

func TestIdentify_FallbackAbortedKeepsSlot(t *testing.T) {
	h := newHarness(t)
	old := credential(t, domain.RoleViewer, stale())
	h.login(t, old)
	h.api.On("Identify", mock.Anything, old, sample).Return(nil, rejected(0.2))

	err := h.run("identify", "--file", sampleFile(t))
	assert.ErrorIs(t, err, ErrNotInteractive)
	assert.Equal(t, old, h.stored(t).AccessToken)
}

// --- voices ---

func TestVoicesList_StaleVerificationWarns(t *testing.T) {
	h := newHarness(t)
	tok := credential(t, domain.RoleViewer, stale())
	h.login(t, tok)
	h.api.On("MyVoices", mock.Anything, tok).
		Return([]domain.Voice{{ID: 11, CreatedAt: "2024-05-01T10:00:00"}}, nil)

	require.NoError(t, h.run("voices", "list"))

	out := h.out.String()
	assert.Contains(t, out, "Voice verification is not fresh")
	assert.Contains(t, out, "11")
	assert.Contains(t, out, "2024-05-01T10:00:00")
}

func TestVoicesAdd_RequiresFreshVerification(t *testing.T) {
	h := newHarness(t)
	h.login(t, credential(t, domain.RoleViewer, stale()))

	err := h.run("voices", "add", "--file", sampleFile(t))
	assert.ErrorIs(t, err, domain.ErrForbidden)
	h.api.AssertNotCalled(t, "AddVoice", mock.Anything, mock.Anything, mock.Anything)
}

func TestVoicesAdd(t *testing.T) {
	h := newHarness(t)
	tok := credential(t, domain.RoleViewer, fresh())
	h.login(t, tok)
	h.api.On("AddVoice", mock.Anything, tok, sample).Return(&domain.Voice{ID: 12}, nil)

	require.NoError(t, h.run("voices", "add", "--file", sampleFile(t)))
	assert.Contains(t, h.out.String(), "Recording 12 saved.")
}

func TestVoicesRemove_Confirmation(t *testing.T) {
	h := newHarness(t)
	tok := credential(t, domain.RoleViewer, fresh())
	h.login(t, tok)
	h.api.On("DeleteVoice", mock.Anything, tok, int64(7)).Return(nil)

	require.NoError(t, h.run("voices", "rm", "7"))
	h.api.AssertNotCalled(t, "DeleteVoice", mock.Anything, mock.Anything, mock.Anything)
	assert.Contains(t, h.out.String(), "Cancelled.")

	require.NoError(t, h.run("voices", "rm", "7", "--yes"))
	h.api.AssertCalled(t, "DeleteVoice", mock.Anything, tok, int64(7))
}

func TestVoicesRemove_BadID(t *testing.T) {
	h := newHarness(t)
	h.login(t, credential(t, domain.RoleViewer, fresh()))
	assert.ErrorIs(t, h.run("voices", "rm", "abc"), domain.ErrBadRequest)
	assert.ErrorIs(t, h.run("voices", "rm", "0"), domain.ErrBadRequest)
}

func TestRejectedCredentialClearsSlot(t *testing.T) {
	h := newHarness(t)
	tok := credential(t, domain.RoleViewer, fresh())
	h.login(t, tok)
	h.api.On("MyVoices", mock.Anything, tok).Return(nil, apiError(http.StatusUnauthorized, "Token has expired"))

	err := h.run("voices", "list")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = h.creds.Load()
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUnavailableKeepsSlot(t *testing.T) {
	h := newHarness(t)
	tok := credential(t, domain.RoleViewer, fresh())
	h.login(t, tok)
	h.api.On("MyVoices", mock.Anything, tok).Return(nil, apiError(http.StatusBadGateway, ""))

	assert.ErrorIs(t, h.run("voices", "list"), domain.ErrUnavailable)
	assert.Equal(t, tok, h.stored(t).AccessToken)
}

func TestPhrases_Anonymous(t *testing.T) {
	h := newHarness(t)
	h.api.On("Phrases", mock.Anything, "").Return([]domain.Phrase{{ID: 1, Text: "open sesame"}, {ID: 2, Text: "hello world"}}, nil)

	require.NoError(t, h.run("phrases"))
	out := h.out.String()
	assert.Contains(t, out, "open sesame")
	assert.Contains(t, out, "hello world")
}

func TestRecord_WritesPayload(t *testing.T) {
	h := newHarness(t)
	dest := filepath.Join(t.TempDir(), "sample.b64")

	require.NoError(t, h.run("record", "--duration", "5s", "--out", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, sample, string(got))
}

func TestRecord_Stdout(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("record", "--file", sampleFile(t)))
	assert.Contains(t, h.out.String(), sample)
}

// --- admin ---

func TestAdmin_ForbiddenForNonAdmin(t *testing.T) {
	h := newHarness(t)
	h.login(t, credential(t, domain.RoleDataAnalyst, fresh()))

	assert.ErrorIs(t, h.run("admin", "users"), domain.ErrForbidden)
	h.api.AssertNotCalled(t, "Users", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminUsers(t *testing.T) {
	h := newHarness(t)
	tok := credential(t, domain.RoleAdmin, stale())
	h.login(t, tok)
	want := domain.UserFilter{Page: 2, PerPage: 50, Role: "viewer"}
	h.api.On("Users", mock.Anything, tok, want).Return(&domain.UserPage{
		Users: []domain.User{{ID: 3, Username: "carol", Role: domain.RoleViewer}},
		Total: 51, Page: 2, Pages: 2,
	}, nil)

	require.NoError(t, h.run("admin", "users", "--page", "2", "--role", "Viewer"))

	out := h.out.String()
	assert.Contains(t, out, "carol")
	assert.Contains(t, out, "Page 2 of 2, 51 user(s)")
}

func TestAdminSetRole_Prompted(t *testing.T) {
	h := newHarness(t)
	tok := credential(t, domain.RoleAdmin, fresh())
	h.login(t, tok)
	h.prompt.role = domain.RoleDataAnalyst
	h.api.On("UpdateUserRole", mock.Anything, tok, int64(2), domain.RoleDataAnalyst).Return(nil)

	require.NoError(t, h.run("admin", "set-role", "2"))
	assert.Equal(t, []string{"role"}, h.prompt.asked)
	assert.Contains(t, h.out.String(), "User 2 is now data analyst.")
}

func TestAdminSetRole_InvalidRole(t *testing.T) {
	h := newHarness(t)
	h.login(t, credential(t, domain.RoleAdmin, fresh()))

	assert.ErrorIs(t, h.run("admin", "set-role", "2", "superuser"), domain.ErrBadRequest)
	h.api.AssertNotCalled(t, "UpdateUserRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminSetRole_StaleVerificationRefused(t *testing.T) {
	h := newHarness(t)
	h.login(t, credential(t, domain.RoleAdmin, stale()))

	assert.ErrorIs(t, h.run("admin", "set-role", "2", "viewer"), domain.ErrForbidden)
	h.api.AssertNotCalled(t, "UpdateUserRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminRemoveUser_Self(t *testing.T) {
	h := newHarness(t)
	h.login(t, credential(t, domain.RoleAdmin, fresh()))

	assert.ErrorIs(t, h.run("admin", "rm-user", "1", "--yes"), domain.ErrForbidden)
	h.api.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminRemoveUser(t *testing.T) {
	h := newHarness(t)
	tok := credential(t, domain.RoleAdmin, fresh())
	h.login(t, tok)
	h.prompt.confirm = true
	h.api.On("DeleteUser", mock.Anything, tok, int64(5)).Return(nil)

	require.NoError(t, h.run("admin", "rm-user", "5"))
	assert.Equal(t, []string{"confirm:Delete user 5?"}, h.prompt.asked)
	assert.Contains(t, h.out.String(), "User 5 deleted.")
}

func TestAdminLogs(t *testing.T) {
	h := newHarness(t)
	tok := credential(t, domain.RoleAdmin, fresh())
	h.login(t, tok)
	bob := "bob"
	want := domain.AuditLogFilter{Page: 1, PerPage: 25, Action: "login"}
	h.api.On("AuditLogs", mock.Anything, tok, want).Return(&domain.AuditLogPage{
		Logs: []domain.AuditLog{
			{ID: 9, Username: &bob, Action: "login", Timestamp: "2024-05-01T10:00:00", Details: map[string]any{"method": "voice"}},
			{ID: 8, Action: "login", Timestamp: "2024-05-01T09:00:00"},
		},
		Total: 2, Pages: 0,
	}, nil)

	require.NoError(t, h.run("admin", "logs", "--action", "login"))

	out := h.out.String()
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, `{"method":"voice"}`)
	assert.Contains(t, out, "Page 1 of 1, 2 entr(ies)")
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, s := range []string{"", "-1", "0", "4x"} {
		_, err := parseID(s)
		assert.ErrorIs(t, err, domain.ErrBadRequest, s)
	}
}

func TestRejectionMessage(t *testing.T) {
	assert.Equal(t, "Voice not recognised (confidence 0.500). 1 attempt(s) left.", rejection(rejected(0.5), 2))
	assert.Equal(t, "Voice not recognised.", rejection(apiError(http.StatusUnauthorized, "No matching user"), 3))
	assert.Equal(t, "Audio too short. 2 attempt(s) left.", rejection(apiError(http.StatusBadRequest, "Audio too short"), 1))
}
