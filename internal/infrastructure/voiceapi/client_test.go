package voiceapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/metrics"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	m := metrics.New(prometheus.NewRegistry())
	return NewClient(srv.URL, 5*time.Second, nil, m), m
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin_ReturnsToken(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body domain.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body.Username)
		assert.Equal(t, "secret", body.Password)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok"})
	})

	out, err := c.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "tok", out.AccessToken)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APICalls.WithLabelValues("auth_login", "200")))
}

func TestLogin_MissingTokenIsError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	})

	_, err := c.Login(context.Background(), domain.LoginRequest{Username: "a", Password: "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoToken)
}

func TestBearerTokenSent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc.def.ghi", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []domain.Phrase{{ID: 1, Text: "open sesame"}})
	})

	phrases, err := c.Phrases(context.Background(), "abc.def.ghi")
	require.NoError(t, err)
	require.Len(t, phrases, 1)
	assert.Equal(t, "open sesame", phrases[0].Text)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    map[string]any
		want    error
		message string
	}{
		{"bad request", http.StatusBadRequest, map[string]any{"message": "audio field is required"}, domain.ErrBadRequest, "audio field is required"},
		{"unauthorized msg", http.StatusUnauthorized, map[string]any{"msg": "Token has expired"}, domain.ErrUnauthorized, "Token has expired"},
		{"forbidden error", http.StatusForbidden, map[string]any{"error": "Access denied"}, domain.ErrForbidden, "Access denied"},
		{"not found", http.StatusNotFound, nil, domain.ErrNotFound, "Not Found"},
		{"conflict", http.StatusConflict, map[string]any{"message": "Role unchanged"}, domain.ErrConflict, "Role unchanged"},
		{"server error", http.StatusInternalServerError, map[string]any{"message": "boom"}, domain.ErrUnavailable, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.body == nil {
					w.WriteHeader(tt.status)
					return
				}
				writeJSON(w, tt.status, tt.body)
			})

			err := c.DeleteVoice(context.Background(), "tok", 7)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestIdentify_RejectionCarriesConfidence(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/voice/identify", r.URL.Path)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "No matching user", "confidence": 0.42})
	})

	_, err := c.Identify(context.Background(), "tok", "QUJD")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.NotNil(t, apiErr.Confidence)
	assert.InDelta(t, 0.42, *apiErr.Confidence, 1e-9)
}

func TestTransportFailure_IsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, nil, nil)
	_, err := c.Phrases(context.Background(), "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, ok := AsAPIError(err)
	assert.False(t, ok)
}

func TestCancelledContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []domain.Phrase{})
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Phrases(ctx, "tok")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
}

func TestUsers_SendsOnlySetFilters(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/users", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "50", q.Get("per_page"))
		assert.Equal(t, "viewer", q.Get("role"))
		_, hasID := q["id"]
		assert.False(t, hasID)
		_, hasName := q["username"]
		assert.False(t, hasName)
		writeJSON(w, http.StatusOK, domain.UserPage{
			Users: []domain.User{{ID: 3, Username: "bob", Role: domain.RoleViewer}},
			Total: 51, Page: 2, Pages: 2,
		})
	})

	page, err := c.Users(context.Background(), "tok", domain.UserFilter{Page: 2, PerPage: 50, Role: "viewer"})
	require.NoError(t, err)
	assert.Equal(t, 51, page.Total)
	assert.Equal(t, 2, page.Pages)
	require.Len(t, page.Users, 1)
	assert.Equal(t, domain.RoleViewer, page.Users[0].Role)
}

func TestAuditLogs_Query(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "25", q.Get("per_page"))
		assert.Equal(t, "12", q.Get("user_id"))
		assert.Equal(t, "login", q.Get("action"))
		writeJSON(w, http.StatusOK, map[string]any{
			"logs": []map[string]any{
				{"id": 9, "user_id": nil, "username": nil, "action": "login", "timestamp": "2026-03-01T10:30:00", "details": map[string]any{"ip": "1.2.3.4"}},
			},
			"total": 1, "page": 1, "pages": 1,
		})
	})

	page, err := c.AuditLogs(context.Background(), "tok", domain.AuditLogFilter{Page: 1, PerPage: 25, UserID: "12", Action: "login"})
	require.NoError(t, err)
	require.Len(t, page.Logs, 1)
	assert.Nil(t, page.Logs[0].UserID)
	assert.Equal(t, "1.2.3.4", page.Logs[0].Details["ip"])
}

func TestUpdateUserRole_PatchBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/admin/users/4", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "data analyst", body["role"])
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.UpdateUserRole(context.Background(), "tok", 4, domain.RoleDataAnalyst))
}

func TestEnroll_WrapsRecordings(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Recordings []domain.Recording `json:"recordings"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Recordings, 3)
		writeJSON(w, http.StatusCreated, map[string]string{"message": "Enrollment complete"})
	})

	err := c.Enroll(context.Background(), "tok", []domain.Recording{
		{PhraseID: 1, Audio: "QQ=="}, {PhraseID: 2, Audio: "Qg=="}, {PhraseID: 3, Audio: "Qw=="},
	})
	require.NoError(t, err)
}

func TestDeleteVoice_NoContent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/voice/voices/11", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.DeleteVoice(context.Background(), "tok", 11))
}
