// Package cli implements voicectl, the command-line face of the voice console.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/voice-console/internal/application/guard"
	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/infrastructure/credfile"
	"github.com/voice-console/internal/infrastructure/voiceapi"
	"github.com/voice-console/internal/recorder"
	"go.uber.org/zap"
)

// API is the part of the voice API the CLI drives. *voiceapi.Client
// satisfies it.
type API interface {
	Login(ctx context.Context, req domain.LoginRequest) (*voiceapi.TokenResponse, error)
	LoginVoice(ctx context.Context, rec domain.Recording) (*voiceapi.TokenResponse, error)
	Identify(ctx context.Context, token, audio string) (*voiceapi.TokenResponse, error)
	Phrases(ctx context.Context, token string) ([]domain.Phrase, error)
	MyVoices(ctx context.Context, token string) ([]domain.Voice, error)
	AddVoice(ctx context.Context, token, audio string) (*domain.Voice, error)
	DeleteVoice(ctx context.Context, token string, voiceID int64) error
	Users(ctx context.Context, token string, f domain.UserFilter) (*domain.UserPage, error)
	UpdateUserRole(ctx context.Context, token string, userID int64, role domain.Role) error
	DeleteUser(ctx context.Context, token string, userID int64) error
	AuditLogs(ctx context.Context, token string, f domain.AuditLogFilter) (*domain.AuditLogPage, error)
}

// App carries what every command needs. Fields left nil are filled in from
// the root flags before a command runs.
type App struct {
	API    API
	NewAPI func(baseURL string, timeout time.Duration) API
	Creds  *credfile.Store
	Source recorder.Source
	Prompt Prompter
	Guard  *guard.Guard
	Logger *zap.Logger

	In  io.Reader
	Out io.Writer

	linesOnce sync.Once
	lines     chan struct{}
	linesErr  error
}

var errNotLoggedIn = errors.New("not logged in: run 'voicectl login' first")

// token returns the credential in the slot.
func (a *App) token() (*credfile.Credential, error) {
	c, err := a.Creds.Load()
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errNotLoggedIn
	}
	return c, err
}

// authed runs fn with the stored credential. A 401 from the API means the
// credential is no longer accepted: the slot is cleared.
func (a *App) authed(fn func(token string) error) error {
	c, err := a.token()
	if err != nil {
		return err
	}
	err = fn(c.AccessToken)
	if errors.Is(err, domain.ErrUnauthorized) {
		if cerr := a.Creds.Clear(); cerr != nil {
			a.Logger.Warn("clear rejected credential", zap.Error(cerr))
		}
		return fmt.Errorf("%w: credential rejected, run 'voicectl login' again", err)
	}
	return err
}

// requireRole evaluates the stored credential like the console's route guard.
// write additionally demands a fresh voice verification.
func (a *App) requireRole(write bool, roles ...domain.Role) error {
	c, err := a.token()
	if err != nil {
		return err
	}
	d := a.Guard.Evaluate(c.AccessToken, roles)
	switch d.State {
	case guard.Unauthenticated:
		if d.Malformed {
			_ = a.Creds.Clear()
		}
		return errNotLoggedIn
	case guard.Forbidden:
		return fmt.Errorf("%w: this command needs one of the roles %v", domain.ErrForbidden, roles)
	case guard.Unverified:
		if write {
			return fmt.Errorf("%w: voice verification required, run 'voicectl identify'", domain.ErrForbidden)
		}
		a.warn("Voice verification is not fresh. Run 'voicectl identify' before making changes.")
	}
	return nil
}

// readLine waits for the user to press Enter. A single goroutine owns In; a
// cancelled wait leaves the pending line for the next call. End of input
// counts as Enter.
func (a *App) readLine(ctx context.Context) error {
	a.linesOnce.Do(a.startLines)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-a.lines:
		if !ok {
			return a.linesErr
		}
		return nil
	}
}

func (a *App) startLines() {
	a.lines = make(chan struct{})
	go func() {
		defer close(a.lines)
		br := bufio.NewReader(a.In)
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				if !errors.Is(err, io.EOF) {
					a.linesErr = err
				} else if line != "" {
					a.lines <- struct{}{}
				}
				return
			}
			a.lines <- struct{}{}
		}
	}()
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.Out, format, args...)
}

func (a *App) success(msg string) { fmt.Fprintln(a.Out, okStyle.Render("✓ "+msg)) }
func (a *App) warn(msg string)    { fmt.Fprintln(a.Out, warnStyle.Render("! "+msg)) }

// fill completes the App from the root flags.
func (a *App) fill(f *rootFlags) error {
	if a.Logger == nil {
		a.Logger = zap.NewNop()
	}
	if a.Guard == nil {
		a.Guard = guard.New(f.window)
	}
	if a.Creds == nil {
		path := f.credentialFile
		if path == "" {
			p, err := credfile.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}
		a.Creds = credfile.New(path)
	}
	if a.API == nil {
		if a.NewAPI == nil {
			return errors.New("no voice api configured")
		}
		a.API = a.NewAPI(f.apiURL, f.timeout)
	}
	if a.Source == nil {
		a.Source = recorder.DefaultCommandSource()
	}
	if a.Prompt == nil {
		a.Prompt = HuhPrompter{}
	}
	return nil
}

type rootFlags struct {
	apiURL         string
	timeout        time.Duration
	window         time.Duration
	credentialFile string
}

// Defaults seed the root flags.
type Defaults struct {
	APIURL       string
	Timeout      time.Duration
	VerifyWindow time.Duration
}

// NewRootCommand builds the voicectl command tree around app.
func NewRootCommand(app *App, d Defaults) *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:   "voicectl",
		Short: "Command-line client for the voice console",
		Long: `voicectl talks to the voice-authentication API the console fronts.

It keeps one credential in a private file, logs in by voice or password,
re-verifies by voice, manages recordings, and runs the admin tables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.fill(f)
		},
	}
	root.PersistentFlags().StringVar(&f.apiURL, "api-url", d.APIURL, "voice API base URL")
	root.PersistentFlags().DurationVar(&f.timeout, "timeout", d.Timeout, "voice API request timeout")
	root.PersistentFlags().DurationVar(&f.window, "verify-window", d.VerifyWindow, "how long a voice verification stays fresh")
	root.PersistentFlags().StringVar(&f.credentialFile, "credential-file", "", "credential file (default $XDG_CONFIG_HOME/voice-console/credential.json)")

	root.AddCommand(
		newLoginCommand(app),
		newLogoutCommand(app),
		newWhoamiCommand(app),
		newIdentifyCommand(app),
		newPhrasesCommand(app),
		newRecordCommand(app),
		newVoicesCommand(app),
		newAdminCommand(app),
	)
	return root
}
