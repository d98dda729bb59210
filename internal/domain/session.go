package domain

import "time"

// Session is the server-side record behind a browser's session cookie. Token is
// the credential slot: at most one bearer credential per browser session.
type Session struct {
	ID               string      `json:"id" dynamodbav:"session_id"`
	Token            string      `json:"token,omitempty" dynamodbav:"token"`
	LoginAttempts    int         `json:"login_attempts" dynamodbav:"login_attempts"`
	IdentifyAttempts int         `json:"identify_attempts" dynamodbav:"identify_attempts"`
	Enrollment       *Enrollment `json:"enrollment,omitempty" dynamodbav:"enrollment,omitempty"`
	CreatedAt        time.Time   `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time   `json:"updated" dynamodbav:"updated_at"`
	ExpiresAt        int64       `json:"expires_at" dynamodbav:"expires_at"`
}

// Authenticated reports whether the slot currently holds a credential.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// Enrollment is the wizard progress for enrolling the default phrases.
type Enrollment struct {
	Step    int              `json:"step" dynamodbav:"step"`
	Samples []EnrollmentStep `json:"samples" dynamodbav:"samples"`
}

// EnrollmentStep holds the last recorded sample for one phrase and its verification.
type EnrollmentStep struct {
	PhraseID int64         `json:"phrase_id" dynamodbav:"phrase_id"`
	Audio    string        `json:"audio,omitempty" dynamodbav:"audio"`
	Result   *VerifyResult `json:"result,omitempty" dynamodbav:"result,omitempty"`
}

// Matched reports whether the sample passed phrase verification.
func (e EnrollmentStep) Matched() bool {
	return e.Audio != "" && e.Result != nil && e.Result.Match
}
