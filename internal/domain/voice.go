package domain

// Phrase is an enrollment / voice-login prompt.
type Phrase struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// VerifyResult is the outcome of matching a sample against a phrase.
type VerifyResult struct {
	Transcript string  `json:"transcript"`
	Score      float64 `json:"score"`
	Match      bool    `json:"match"`
}

// Recording pairs a base64 audio sample with the phrase it was spoken for.
type Recording struct {
	PhraseID int64  `json:"phrase_id"`
	Audio    string `json:"audio"`
}

// Voice is a stored free-form recording.
type Voice struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
	Audio     string `json:"audio,omitempty"`
}
