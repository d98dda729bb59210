package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/voice-console/internal/application/guard"
	"github.com/voice-console/internal/application/session"
	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/infrastructure/voiceapi"
	"github.com/voice-console/internal/pkg/validate"
)

const fallbackMessage = "Too many failed voice attempts. Please use your username and password."

func newLoginCommand(app *App) *cobra.Command {
	var (
		req      domain.LoginRequest
		voice    bool
		phraseID int64
		audio    audioFlags
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the credential",
		Long: `Log in with a username and password, or by speaking the login phrase
with --voice. After three rejected voice samples the command asks for the
username and password instead.`,
		Example: `  voicectl login --username alice
  voicectl login --voice
  voicectl login --voice --file phrase.webm`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if voice {
				done, err := app.voiceLogin(ctx, phraseID, audio)
				if err != nil || done {
					return err
				}
			}
			return app.credentialLogin(ctx, req, func(resp *voiceapi.TokenResponse, username string) error {
				return app.Creds.Update(resp.AccessToken, username)
			})
		},
	}
	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "account password (prompted when omitted)")
	cmd.Flags().BoolVar(&voice, "voice", false, "log in by voice")
	cmd.Flags().Int64Var(&phraseID, "phrase", 0, "phrase id to speak (defaults to the first configured phrase)")
	audio.register(cmd)
	return cmd
}

// credentialLogin exchanges a username and password for a credential,
// prompting for whatever the flags left out.
func (a *App) credentialLogin(ctx context.Context, req domain.LoginRequest, store func(*voiceapi.TokenResponse, string) error) error {
	if req.Username == "" || req.Password == "" {
		prompted, err := a.Prompt.Credentials(req.Username)
		if err != nil {
			return err
		}
		req = prompted
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	resp, err := a.API.Login(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return fmt.Errorf("%w: invalid username or password", err)
		}
		return err
	}
	if err := store(resp, usernameOf(resp, req.Username)); err != nil {
		return err
	}
	a.success(fmt.Sprintf("Logged in as %s.", usernameOf(resp, req.Username)))
	return nil
}

// voiceLogin runs up to session.MaxVoiceAttempts voice samples. It reports
// false without an error when the caller should fall back to credentials.
func (a *App) voiceLogin(ctx context.Context, phraseID int64, af audioFlags) (bool, error) {
	phrase, err := a.loginPhrase(ctx, phraseID)
	if errors.Is(err, domain.ErrUnavailable) {
		return false, err
	}
	if err != nil {
		a.warn(fmt.Sprintf("Voice login is unavailable (%v).", err))
		return false, nil
	}
	a.printf("%s\n  %q\n", titleStyle.Render("Say the phrase:"), phrase.Text)

	for attempt := 1; attempt <= session.MaxVoiceAttempts; attempt++ {
		audio, err := a.capture(ctx, af)
		if err != nil {
			return false, err
		}
		resp, err := a.API.LoginVoice(ctx, domain.Recording{PhraseID: phrase.ID, Audio: audio})
		if err == nil {
			if err := a.Creds.Update(resp.AccessToken, usernameOf(resp, "")); err != nil {
				return false, err
			}
			a.success("Logged in by voice" + confidenceSuffix(resp.Confidence) + ".")
			return true, nil
		}
		if !countsAsAttempt(err) {
			return false, err
		}
		a.warn(rejection(err, attempt))
	}
	a.warn(fallbackMessage)
	return false, nil
}

func (a *App) loginPhrase(ctx context.Context, id int64) (*domain.Phrase, error) {
	phrases, err := a.API.Phrases(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(phrases) == 0 {
		return nil, fmt.Errorf("%w: no phrases configured", domain.ErrNotFound)
	}
	if id == 0 {
		return &phrases[0], nil
	}
	for i := range phrases {
		if phrases[i].ID == id {
			return &phrases[i], nil
		}
	}
	return nil, fmt.Errorf("%w: phrase %d", domain.ErrNotFound, id)
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Creds.Clear(); err != nil {
				return err
			}
			app.success("Logged out.")
			return nil
		},
	}
}

func newWhoamiCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored identity and its verification state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.token()
			if err != nil {
				return err
			}
			d := app.Guard.Evaluate(c.AccessToken, nil)
			if d.State == guard.Unauthenticated {
				_ = app.Creds.Clear()
				return fmt.Errorf("stored credential is unreadable and was removed: %w", errNotLoggedIn)
			}
			cl := d.Claims
			username := cl.Username()
			if username == "" {
				username = c.Username
			}
			rows := [][]string{
				{"User", username},
				{"ID", cl.Subject()},
				{"Role", cl.Role().String()},
				{"Verification", d.State.String()},
			}
			if at, ok := cl.VoiceVerifiedAt(); ok {
				rows = append(rows, []string{"Verified at", at.Local().Format(time.DateTime)})
			}
			if exp, ok := cl.ExpiresAt(); ok {
				rows = append(rows, []string{"Expires", exp.Local().Format(time.DateTime)})
			}
			app.printf("%s\n", renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}
}

func newIdentifyCommand(app *App) *cobra.Command {
	var audio audioFlags
	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Re-verify the logged-in user by voice",
		Long: `Record a sample and match it against the logged-in user's enrolled voice.
A match replaces the stored credential with the freshly verified one. After
three rejected samples the command asks for the username and password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := app.token()
			if err != nil {
				return err
			}
			for attempt := 1; attempt <= session.MaxVoiceAttempts; attempt++ {
				sample, err := app.capture(ctx, audio)
				if err != nil {
					return err
				}
				resp, err := app.API.Identify(ctx, c.AccessToken, sample)
				if err == nil {
					if err := app.Creds.Update(resp.AccessToken, ""); err != nil {
						return err
					}
					app.success("Voice verified" + confidenceSuffix(resp.Confidence) + ".")
					return nil
				}
				if !countsAsAttempt(err) {
					return err
				}
				app.warn(rejection(err, attempt))
			}
			app.warn(fallbackMessage)
			return app.credentialLogin(ctx, domain.LoginRequest{Username: c.Username}, func(resp *voiceapi.TokenResponse, _ string) error {
				return app.Creds.Update(resp.AccessToken, "")
			})
		},
	}
	audio.register(cmd)
	return cmd
}

// countsAsAttempt reports whether a failed voice call was the speaker's
// rejection rather than a transport problem.
func countsAsAttempt(err error) bool {
	return !errors.Is(err, domain.ErrUnavailable) && !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func rejection(err error, attempt int) string {
	left := session.MaxVoiceAttempts - attempt
	msg := "Voice not recognised."
	if apiErr, ok := voiceapi.AsAPIError(err); ok {
		switch {
		case apiErr.Confidence != nil:
			msg = fmt.Sprintf("Voice not recognised (confidence %.3f).", *apiErr.Confidence)
		case apiErr.Message != "" && !errors.Is(err, domain.ErrUnauthorized):
			msg = apiErr.Message + "."
		}
	}
	if left > 0 {
		return fmt.Sprintf("%s %d attempt(s) left.", msg, left)
	}
	return msg
}

func confidenceSuffix(c *float64) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf(" (confidence %.3f)", *c)
}

func usernameOf(resp *voiceapi.TokenResponse, fallback string) string {
	if resp.User != nil && resp.User.Username != "" {
		return resp.User.Username
	}
	return fallback
}
