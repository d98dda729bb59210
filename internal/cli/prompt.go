package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/voice-console/internal/domain"
)

// ErrNotInteractive is returned when a prompt is needed but stdin is not a
// terminal.
var ErrNotInteractive = errors.New("input required but stdin is not a terminal: pass the value as a flag")

// Prompter asks the user for values missing from the command line.
type Prompter interface {
	Credentials(username string) (domain.LoginRequest, error)
	Confirm(title string) (bool, error)
	Role(title string, current domain.Role) (domain.Role, error)
}

// HuhPrompter prompts with huh forms.
type HuhPrompter struct{}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func (HuhPrompter) Credentials(username string) (domain.LoginRequest, error) {
	req := domain.LoginRequest{Username: username}
	if !isInteractive() {
		return req, ErrNotInteractive
	}
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Username").
			Value(&req.Username).
			Validate(required("username")),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&req.Password).
			Validate(required("password")),
	))
	if err := form.Run(); err != nil {
		return req, fmt.Errorf("prompt failed: %w", err)
	}
	return req, nil
}

func (HuhPrompter) Confirm(title string) (bool, error) {
	if !isInteractive() {
		return false, ErrNotInteractive
	}
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Value(&ok),
	))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return ok, nil
}

func (HuhPrompter) Role(title string, current domain.Role) (domain.Role, error) {
	if !isInteractive() {
		return "", ErrNotInteractive
	}
	opts := make([]huh.Option[domain.Role], len(domain.AllowedRoles))
	for i, r := range domain.AllowedRoles {
		opts[i] = huh.NewOption(r.String(), r)
	}
	role := current
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[domain.Role]().Title(title).Options(opts...).Value(&role),
	))
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return role, nil
}

// isInteractive returns true if stdin is a terminal (not piped)
func isInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
