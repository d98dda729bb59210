package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/voice-console/internal/application/admin"
	"github.com/voice-console/internal/application/auth"
	"github.com/voice-console/internal/application/guard"
	"github.com/voice-console/internal/application/session"
	"github.com/voice-console/internal/application/voice"
	"github.com/voice-console/internal/config"
	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/transport/http/handler"
	appmiddleware "github.com/voice-console/internal/transport/http/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the console router. ctx bounds background
// work started for the router, such as rate limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) (http.Handler, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pages, err := handler.NewPages(logger)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	cookie := appmiddleware.CookieOptions{
		Name:   cfg.SessionCookieName,
		Secure: cfg.SessionCookieSecure,
		TTL:    cfg.SessionTTL,
	}
	sessionSvc := session.NewService(deps.Sessions, cfg.SessionTTL)
	authSvc := auth.NewService(deps.API, sessionSvc, deps.Metrics, logger)
	voiceSvc := voice.NewService(deps.API, sessionSvc, deps.Archive, logger)
	adminSvc := admin.NewService(deps.API)
	g := guard.New(cfg.VerifyWindow)

	base := handler.Base{Pages: pages, Sessions: sessionSvc, Cookie: cookie, Logger: logger}
	authH := handler.NewAuthHandler(base, authSvc)
	voiceH := handler.NewVoiceHandler(base, voiceSvc)
	adminH := handler.NewAdminHandler(base, adminSvc)
	healthH := handler.NewHealthHandler(deps.Checks)

	loginRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.LoginRateLimit), cfg.LoginRateBurst)

	guarded := func(roles ...domain.Role) func(http.Handler) http.Handler {
		return appmiddleware.Guard(g, sessionSvc, deps.Metrics, logger, roles...)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.RequestLogger(logger, deps.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// ── Infrastructure (no session) ──────────────────────────────────────
	r.Get("/healthz", healthH.Healthz)
	r.Handle("/metrics", deps.Metrics.Handler())
	r.Handle("/static/*", handler.Static())

	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.Session(sessionSvc, cookie, logger))

		// ── Public pages ─────────────────────────────────────────────────
		r.Get("/", authH.LoginPage)
		r.Get("/login", authH.LoginPage)
		r.With(loginRL.Limit).Post("/login", authH.Login)
		r.With(loginRL.Limit).Post("/login/voice", authH.LoginVoice)
		r.Post("/logout", authH.Logout)

		// ── Any signed-in role ───────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(guarded())

			// Re-verification must stay reachable while unverified.
			r.Get("/identify", authH.IdentifyPage)
			r.Post("/identify", authH.Identify)
			r.Post("/identify/credentials", authH.IdentifyCredentials)

			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireVerified)

				r.Get("/dashboard", handler.Dashboard(pages))
				r.Get("/my-voices", voiceH.MyVoices)
				r.Post("/my-voices", voiceH.AddMyVoice)
				r.Post("/my-voices/{id}/delete", voiceH.DeleteMyVoice)
			})
		})

		// ── Enrollment ───────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(guarded(domain.EnrollRoles...))
			r.Use(appmiddleware.RequireVerified)

			r.Get("/enroll", voiceH.Enroll)
			r.Post("/enroll/verify", voiceH.EnrollVerify)
			r.Post("/enroll/next", voiceH.EnrollNext)
			r.Post("/enroll/back", voiceH.EnrollBack)
			r.Post("/enroll/finish", voiceH.EnrollFinish)
		})

		// ── Admin only ───────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(guarded(domain.RoleAdmin))
			r.Use(appmiddleware.RequireVerified)

			r.Get("/register", authH.RegisterPage)
			r.Post("/register", authH.Register)
			r.Get("/voices", voiceH.UserVoices)
			r.Post("/voices/{id}/delete", voiceH.DeleteUserVoice)
			r.Get("/admin/users", adminH.Users)
			r.Post("/admin/users/{id}/role", adminH.UpdateRole)
			r.Post("/admin/users/{id}/delete", adminH.DeleteUser)
			r.Get("/admin/audit-logs", adminH.AuditLogs)
		})
	})

	return r, nil
}
