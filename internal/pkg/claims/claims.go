// Package claims reads the payload of a bearer credential without verifying it.
// The console never holds the signing key; it only needs the role and the time
// of the last voice verification to decide what to render.
package claims

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/voice-console/internal/domain"
)

const (
	claimRole            = "role"
	claimUsername        = "username"
	claimVoiceVerifiedAt = "voice_verified_at"
)

// DefaultWindow is how long a voice verification stays fresh.
const DefaultWindow = 15 * time.Minute

// Claims is the decoded payload of a credential. A nil Claims is the absent
// value: every accessor is safe on it and reports nothing.
type Claims jwt.MapClaims

var segmentDecoder = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode returns the claims carried in the second segment of token. Any
// structural, base64 or JSON failure yields (nil, false).
func Decode(token string) (Claims, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, false
	}
	raw, err := segmentDecoder.DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}
	var c Claims
	if err := json.Unmarshal(raw, &c); err != nil || c == nil {
		return nil, false
	}
	return c, true
}

// Present reports whether c holds a decoded payload.
func (c Claims) Present() bool { return c != nil }

func (c Claims) str(key string) string {
	v, _ := c[key].(string)
	return v
}

// Role returns the role claim lower-cased, or "" when missing.
func (c Claims) Role() domain.Role {
	return domain.Role(strings.ToLower(c.str(claimRole)))
}

// Subject returns the sub claim, which the voice API sets to the user id.
func (c Claims) Subject() string {
	sub, err := jwt.MapClaims(c).GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

func (c Claims) Username() string { return c.str(claimUsername) }

// ExpiresAt returns the exp claim when present.
func (c Claims) ExpiresAt() (time.Time, bool) {
	exp, err := jwt.MapClaims(c).GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// naive ISO-8601 layouts as produced by the API without a zone; read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// VoiceVerifiedAt parses the voice_verified_at claim. RFC 3339, zone-less
// ISO-8601 (UTC) and numeric unix seconds are accepted.
func (c Claims) VoiceVerifiedAt() (time.Time, bool) {
	switch v := c[claimVoiceVerifiedAt].(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, true
		}
		for _, layout := range naiveLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t, true
			}
		}
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return unixFloat(secs), true
		}
	case float64:
		return unixFloat(v), true
	case json.Number:
		if secs, err := v.Float64(); err == nil {
			return unixFloat(secs), true
		}
	}
	return time.Time{}, false
}

// IsVoiceVerified is true iff a verification time exists and now-t < window.
func (c Claims) IsVoiceVerified(now time.Time, window time.Duration) bool {
	t, ok := c.VoiceVerifiedAt()
	if !ok {
		return false
	}
	return now.Sub(t) < window
}

func unixFloat(secs float64) time.Time {
	whole := int64(secs)
	return time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC()
}
