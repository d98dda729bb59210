package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/voice-console/internal/domain"
)

func newPhrasesCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "phrases",
		Short: "List the enrollment and login phrases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if c, err := app.token(); err == nil {
				token = c.AccessToken
			}
			phrases, err := app.API.Phrases(cmd.Context(), token)
			if err != nil {
				return err
			}
			if len(phrases) == 0 {
				app.warn("No phrases configured.")
				return nil
			}
			rows := make([][]string, len(phrases))
			for i, p := range phrases {
				rows[i] = []string{strconv.FormatInt(p.ID, 10), p.Text}
			}
			app.printf("%s\n", renderTable([]string{"ID", "Phrase"}, rows))
			return nil
		},
	}
}

func newRecordCommand(app *App) *cobra.Command {
	var (
		audio audioFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a sample and print it as base64",
		Long: `Record one sample from the microphone and print it base64-encoded, the
form every voice endpoint accepts. With --out the payload is written to a file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, err := app.capture(cmd.Context(), audio)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Fprintln(app.Out, sample)
				return nil
			}
			if err := os.WriteFile(out, []byte(sample), 0o600); err != nil {
				return fmt.Errorf("write sample: %w", err)
			}
			app.success("Sample written to " + out + ".")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the base64 payload to this file")
	audio.register(cmd)
	return cmd
}

func newVoicesCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voices",
		Short: "Manage your stored voice recordings",
	}
	cmd.AddCommand(newVoicesListCommand(app), newVoicesAddCommand(app), newVoicesRemoveCommand(app))
	return cmd
}

func newVoicesListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your recordings",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireRole(false); err != nil {
				return err
			}
			var voices []domain.Voice
			err := app.authed(func(token string) (err error) {
				voices, err = app.API.MyVoices(cmd.Context(), token)
				return err
			})
			if err != nil {
				return err
			}
			if len(voices) == 0 {
				app.printf("%s\n", mutedStyle.Render("No recordings yet."))
				return nil
			}
			rows := make([][]string, len(voices))
			for i, v := range voices {
				rows[i] = []string{strconv.FormatInt(v.ID, 10), v.CreatedAt}
			}
			app.printf("%s\n", renderTable([]string{"ID", "Created"}, rows))
			return nil
		},
	}
}

func newVoicesAddCommand(app *App) *cobra.Command {
	var audio audioFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record and store a new recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireRole(true); err != nil {
				return err
			}
			sample, err := app.capture(cmd.Context(), audio)
			if err != nil {
				return err
			}
			var v *domain.Voice
			err = app.authed(func(token string) (err error) {
				v, err = app.API.AddVoice(cmd.Context(), token, sample)
				return err
			})
			if err != nil {
				return err
			}
			if v != nil && v.ID != 0 {
				app.success(fmt.Sprintf("Recording %d saved.", v.ID))
			} else {
				app.success("Recording saved.")
			}
			return nil
		},
	}
	audio.register(cmd)
	return cmd
}

func newVoicesRemoveCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete one of your recordings",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.requireRole(true); err != nil {
				return err
			}
			if ok, err := app.confirm(yes, fmt.Sprintf("Delete recording %d?", id)); err != nil || !ok {
				return err
			}
			err = app.authed(func(token string) error {
				return app.API.DeleteVoice(cmd.Context(), token, id)
			})
			if err != nil {
				return err
			}
			app.success(fmt.Sprintf("Recording %d deleted.", id))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks before a destructive call unless yes is set.
func (a *App) confirm(yes bool, title string) (bool, error) {
	if yes {
		return true, nil
	}
	ok, err := a.Prompt.Confirm(title)
	if err != nil {
		return false, err
	}
	if !ok {
		a.printf("%s\n", mutedStyle.Render("Cancelled."))
	}
	return ok, nil
}

var errBadID = errors.New("id must be a positive integer")

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q: %w", domain.ErrBadRequest, s, errBadID)
	}
	return id, nil
}
