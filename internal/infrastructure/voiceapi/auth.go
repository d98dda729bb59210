package voiceapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/voice-console/internal/domain"
)

// TokenResponse is the body of every credential-issuing endpoint.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	User        *domain.User `json:"user,omitempty"`
	Confidence  *float64     `json:"confidence,omitempty"`
}

var errNoToken = errors.New("response carried no access_token")

func (r *TokenResponse) check(endpoint string) error {
	if r.AccessToken == "" {
		return fmt.Errorf("%s: %w", endpoint, errNoToken)
	}
	return nil
}

// Login exchanges a username and password for a credential.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.do(ctx, call{
		endpoint: "auth_login",
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     req,
	}, &out); err != nil {
		return nil, err
	}
	return &out, out.check("auth_login")
}

// LoginVoice exchanges a spoken phrase for a credential.
func (c *Client) LoginVoice(ctx context.Context, rec domain.Recording) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.do(ctx, call{
		endpoint: "auth_login_voice",
		method:   http.MethodPost,
		path:     "/auth/login/voice",
		body:     rec,
	}, &out); err != nil {
		return nil, err
	}
	return &out, out.check("auth_login_voice")
}

// Register creates an account. Admin only.
func (c *Client) Register(ctx context.Context, token string, req domain.RegisterRequest) error {
	return c.do(ctx, call{
		endpoint: "auth_register",
		method:   http.MethodPost,
		path:     "/auth/register",
		token:    token,
		body:     req,
	}, nil)
}

// Identify matches a free-form sample against enrolled speakers and returns a
// fresh, voice-verified credential for the best match.
func (c *Client) Identify(ctx context.Context, token, audio string) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.do(ctx, call{
		endpoint: "voice_identify",
		method:   http.MethodPost,
		path:     "/voice/identify",
		token:    token,
		body:     map[string]string{"audio": audio},
	}, &out); err != nil {
		return nil, err
	}
	return &out, out.check("voice_identify")
}
