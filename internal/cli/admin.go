package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/voice-console/internal/application/admin"
	"github.com/voice-console/internal/domain"
)

func newAdminCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer users and read the audit trail",
		Long: `Admin commands need the admin role. Listing works with a stale voice
verification; changes require a fresh one (see 'voicectl identify').`,
	}
	cmd.AddCommand(
		newAdminUsersCommand(app),
		newAdminSetRoleCommand(app),
		newAdminRemoveUserCommand(app),
		newAdminLogsCommand(app),
	)
	return cmd
}

// adminCall runs fn through the admin service with the stored credential.
func (a *App) adminCall(write bool, fn func(svc admin.Service, sess *domain.Session) error) error {
	if err := a.requireRole(write, domain.RoleAdmin); err != nil {
		return err
	}
	svc := admin.NewService(a.API)
	return a.authed(func(token string) error {
		return fn(svc, &domain.Session{Token: token})
	})
}

func newAdminUsersCommand(app *App) *cobra.Command {
	var f domain.UserFilter
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var page *domain.UserPage
			err := app.adminCall(false, func(svc admin.Service, sess *domain.Session) (err error) {
				page, err = svc.Users(cmd.Context(), sess, f)
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, len(page.Users))
			for i, u := range page.Users {
				rows[i] = []string{strconv.FormatInt(u.ID, 10), u.Username, u.Role.String()}
			}
			app.printf("%s\n", renderTable([]string{"ID", "Username", "Role"}, rows))
			app.printf("%s\n", mutedStyle.Render(fmt.Sprintf("Page %d of %d, %d user(s)", page.Page, page.Pages, page.Total)))
			return nil
		},
	}
	cmd.Flags().IntVar(&f.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&f.PerPage, "per-page", admin.UsersPerPage, "rows per page")
	cmd.Flags().StringVar(&f.ID, "id", "", "filter by user id")
	cmd.Flags().StringVar(&f.Username, "username", "", "filter by username")
	cmd.Flags().StringVar(&f.Role, "role", "", "filter by role")
	return cmd
}

func newAdminSetRoleCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role USER_ID [ROLE]",
		Short: "Change a user's role",
		Long: `Change a user's role to one of: admin, "data analyst", "business user",
viewer. Without ROLE the command offers a selection.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var role string
			if len(args) == 2 {
				role = args[1]
			} else {
				r, err := app.Prompt.Role(fmt.Sprintf("New role for user %d", id), domain.RoleViewer)
				if err != nil {
					return err
				}
				role = r.String()
			}
			err = app.adminCall(true, func(svc admin.Service, sess *domain.Session) error {
				return svc.UpdateRole(cmd.Context(), sess, id, role)
			})
			if err != nil {
				return err
			}
			app.success(fmt.Sprintf("User %d is now %s.", id, role))
			return nil
		},
	}
}

func newAdminRemoveUserCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm-user USER_ID",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			err = app.adminCall(true, func(svc admin.Service, sess *domain.Session) error {
				ok, err := app.confirm(yes, fmt.Sprintf("Delete user %d?", id))
				if err != nil || !ok {
					return err
				}
				if err := svc.DeleteUser(cmd.Context(), sess, id); err != nil {
					return err
				}
				app.success(fmt.Sprintf("User %d deleted.", id))
				return nil
			})
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newAdminLogsCommand(app *App) *cobra.Command {
	var f domain.AuditLogFilter
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the audit trail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var page *domain.AuditLogPage
			err := app.adminCall(false, func(svc admin.Service, sess *domain.Session) (err error) {
				page, err = svc.AuditLogs(cmd.Context(), sess, f)
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, len(page.Logs))
			for i, l := range page.Logs {
				rows[i] = []string{
					strconv.FormatInt(l.ID, 10),
					l.Timestamp,
					deref(l.Username),
					l.Action,
					details(l.Details),
				}
			}
			app.printf("%s\n", renderTable([]string{"ID", "Time", "User", "Action", "Details"}, rows))
			app.printf("%s\n", mutedStyle.Render(fmt.Sprintf("Page %d of %d, %d entr(ies)", page.Page, page.Pages, page.Total)))
			return nil
		},
	}
	cmd.Flags().IntVar(&f.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&f.PerPage, "per-page", admin.AuditLogsPerPage, "rows per page")
	cmd.Flags().StringVar(&f.ID, "id", "", "filter by log id")
	cmd.Flags().StringVar(&f.UserID, "user-id", "", "filter by user id")
	cmd.Flags().StringVar(&f.Username, "username", "", "filter by username")
	cmd.Flags().StringVar(&f.Action, "action", "", "filter by action")
	return cmd
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func details(d map[string]any) string {
	if len(d) == 0 {
		return ""
	}
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprint(d)
	}
	return string(b)
}
