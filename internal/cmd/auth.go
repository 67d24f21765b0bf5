package cmd

import (
	"errors"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"staffdesk/internal/client/gate"
	"staffdesk/internal/client/services"
	"staffdesk/internal/models"
)

func newAuthCmd(a *app) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, sign out and check who you are",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	authCmd.AddCommand(newLoginCmd(a), newRegisterCmd(a), newLogoutCmd(a), newWhoamiCmd(a))
	return authCmd
}

// interactive reports whether stdin is a terminal.
func interactive() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// fieldCheck adapts a request validator to a single form field.
func fieldCheck(field string, validate func() error) func(string) error {
	return func(string) error {
		var ve *services.ValidationError
		if err := validate(); errors.As(err, &ve) {
			if msg, ok := ve.Fields[field]; ok {
				return errors.New(msg)
			}
		}
		return nil
	}
}

func loginForm(cred *services.Credentials) *huh.Form {
	// Validate runs against the live values, not a copy taken here.
	validate := func() error { return cred.Validate() }
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Email").Value(&cred.Email).
			Validate(fieldCheck("email", validate)),
		huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&cred.Password).
			Validate(fieldCheck("password", validate)),
	))
}

func newLoginCmd(a *app) *cobra.Command {
	var cred services.Credentials
	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Sign in with email and password",
		Annotations: routed(gate.Login),
		Example: `  staffctl auth login
  staffctl auth login --email jo@example.com --password secret1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (cred.Email == "" || cred.Password == "") && interactive() {
				if err := loginForm(&cred).RunWithContext(cmd.Context()); err != nil {
					return err
				}
			}
			if err := a.session.Login(cmd.Context(), cred); err != nil {
				return err
			}
			view, _ := a.nav.Navigate(gate.Dashboard)
			id, _ := a.session.Identity()
			a.log.Debugw("signed in", "user", id.Email, "view", view)
			notify(cmd.ErrOrStderr(), "Signed in as %s (%s)", id.Name, id.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&cred.Email, "email", "", "account email")
	cmd.Flags().StringVar(&cred.Password, "password", "", "account password")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var reg services.Registration
	cmd := &cobra.Command{
		Use:         "register",
		Short:       "Create an employee account and sign in",
		Annotations: routed(gate.Login),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Register(cmd.Context(), reg); err != nil {
				return err
			}
			id, _ := a.session.Identity()
			notify(cmd.ErrOrStderr(), "Welcome, %s. Your account is ready.", id.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&reg.Name, "name", "", "full name")
	f.StringVar(&reg.Email, "email", "", "account email")
	f.StringVar(&reg.Password, "password", "", "password, at least 6 characters")
	f.StringVar(&reg.Department, "department", "", "department")
	f.StringVar(&reg.Position, "position", "", "position")
	f.StringVar(&reg.PhoneNumber, "phone", "", "phone number")
	f.StringVar(&reg.Address, "address", "", "address")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Sign out and forget the session",
		Annotations: routed(gate.Login),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.session.IsAuthenticated() {
				if _, err := a.svc.Auth.Logout(cmd.Context()); err != nil {
					a.log.Warnw("server logout failed", "error", err)
				}
			}
			a.session.Logout()
			notify(cmd.ErrOrStderr(), "Signed out")
			return nil
		},
	}
}

func profileView(p models.Profile) view {
	return view{data: p, rows: [][]string{
		{"Name", p.Name},
		{"Email", p.Email},
		{"Role", p.Role},
		{"Employee ID", orDash(p.EmployeeID)},
		{"Department", orDash(p.Department)},
		{"Position", orDash(p.Position)},
		{"Phone", orDash(p.PhoneNumber)},
		{"Address", orDash(p.Address)},
	}}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "whoami",
		Short:       "Show the signed-in account",
		Annotations: routed(gate.Profile),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := a.session.Identity()
			return a.render(cmd.OutOrStdout(), profileView(id))
		},
	}
}
