package voiceapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/voice-console/internal/domain"
)

// Phrases lists the enrollment phrases.
func (c *Client) Phrases(ctx context.Context, token string) ([]domain.Phrase, error) {
	var out []domain.Phrase
	err := c.do(ctx, call{
		endpoint: "voice_phrases",
		method:   http.MethodGet,
		path:     "/voice/phrases",
		token:    token,
	}, &out)
	return out, err
}

// Verify scores one sample against its phrase.
func (c *Client) Verify(ctx context.Context, token string, rec domain.Recording) (*domain.VerifyResult, error) {
	var out domain.VerifyResult
	if err := c.do(ctx, call{
		endpoint: "voice_verify",
		method:   http.MethodPost,
		path:     "/voice/verify",
		token:    token,
		body:     rec,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Enroll submits the full set of verified samples for the caller.
func (c *Client) Enroll(ctx context.Context, token string, recs []domain.Recording) error {
	return c.do(ctx, call{
		endpoint: "voice_enroll",
		method:   http.MethodPost,
		path:     "/voice/enroll",
		token:    token,
		body:     map[string][]domain.Recording{"recordings": recs},
	}, nil)
}

// MyVoices lists the caller's own recordings, newest first.
func (c *Client) MyVoices(ctx context.Context, token string) ([]domain.Voice, error) {
	var out []domain.Voice
	err := c.do(ctx, call{
		endpoint: "voice_my_voices",
		method:   http.MethodGet,
		path:     "/voice/users/me/voices",
		token:    token,
	}, &out)
	return out, err
}

// AddVoice stores a free-form recording for the caller.
func (c *Client) AddVoice(ctx context.Context, token, audio string) (*domain.Voice, error) {
	var out domain.Voice
	if err := c.do(ctx, call{
		endpoint: "voice_add",
		method:   http.MethodPost,
		path:     "/voice/my-voices",
		token:    token,
		body:     map[string]string{"audio": audio},
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteVoice removes a recording.
func (c *Client) DeleteVoice(ctx context.Context, token string, voiceID int64) error {
	return c.do(ctx, call{
		endpoint: "voice_delete",
		method:   http.MethodDelete,
		path:     "/voice/voices/" + strconv.FormatInt(voiceID, 10),
		token:    token,
	}, nil)
}

// VoiceUsers lists every account for the recordings dropdown. Admin only.
func (c *Client) VoiceUsers(ctx context.Context, token string) ([]domain.UserRef, error) {
	var out []domain.UserRef
	err := c.do(ctx, call{
		endpoint: "voice_users",
		method:   http.MethodGet,
		path:     "/voice/users",
		token:    token,
	}, &out)
	return out, err
}

// UserVoices lists one account's recordings. Admin only.
func (c *Client) UserVoices(ctx context.Context, token string, userID int64) ([]domain.Voice, error) {
	var out []domain.Voice
	err := c.do(ctx, call{
		endpoint: "voice_user_voices",
		method:   http.MethodGet,
		path:     "/voice/users/" + strconv.FormatInt(userID, 10) + "/voices",
		token:    token,
	}, &out)
	return out, err
}
