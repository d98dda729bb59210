package recorder

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/voice-console/internal/domain"
)

var ErrInvalidAudio = fmt.Errorf("%w: invalid base64 audio", domain.ErrBadRequest)

// Encode reads r to the end and returns it as standard base64.
func Encode(r io.Reader) (string, error) {
	var sb strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &sb)
	if _, err := io.Copy(enc, r); err != nil {
		return "", fmt.Errorf("encode audio: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode audio: %w", err)
	}
	return sb.String(), nil
}

// Normalize accepts either bare base64 or a data URL such as
// "data:audio/webm;base64,...", and returns the bare payload after checking
// that it decodes to something.
func Normalize(audio string) (string, error) {
	audio = strings.TrimSpace(audio)
	if rest, ok := strings.CutPrefix(audio, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return "", ErrInvalidAudio
		}
		audio = payload
	}
	if audio == "" {
		return "", fmt.Errorf("%w: empty payload", ErrInvalidAudio)
	}
	raw, err := base64.StdEncoding.DecodeString(audio)
	if err != nil || len(raw) == 0 {
		return "", ErrInvalidAudio
	}
	return audio, nil
}
