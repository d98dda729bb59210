package http

import (
	"github.com/voice-console/internal/application/admin"
	"github.com/voice-console/internal/application/auth"
	"github.com/voice-console/internal/application/session"
	"github.com/voice-console/internal/application/voice"
	"github.com/voice-console/internal/metrics"
	"github.com/voice-console/internal/transport/http/handler"
	"go.uber.org/zap"
)

// VoiceAPI is everything the console needs from the remote voice service.
// *voiceapi.Client satisfies it.
type VoiceAPI interface {
	auth.API
	voice.API
	admin.API
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	Sessions session.Store
	API      VoiceAPI
	// Archive keeps a copy of uploaded recordings; nil disables it.
	Archive voice.Archive
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	// Checks are reported by /healthz.
	Checks map[string]handler.Check
}
