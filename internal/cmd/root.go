// Package cmd is the staffctl command tree.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"staffdesk/internal/client"
	"staffdesk/internal/client/gate"
	"staffdesk/internal/client/services"
	"staffdesk/internal/client/session"
	"staffdesk/internal/client/storage"
	"staffdesk/internal/logger"
)

// routeKey annotates a command with the view it opens. The navigator decides
// whether the current session may run it.
const routeKey = "route"

// adminKey marks an admin action inside a view every role may open.
const adminKey = "admin"

var (
	errNotSignedIn = errors.New("not signed in, run `staffctl auth login` first")
	errAdminOnly   = errors.New("this command requires an admin account")
)

// app is everything a command needs once configuration is loaded.
type app struct {
	cfg     Config
	log     *zap.SugaredLogger
	store   storage.Storage
	client  *client.Client
	svc     *services.Services
	session *session.Store
	nav     *gate.Navigator
}

func (a *app) close() {
	if a.nav != nil {
		a.nav.Close()
	}
	if a.session != nil {
		a.session.Close()
	}
}

func newApp(ctx context.Context, cfg Config) (*app, error) {
	lg := logger.NewConsole(cfg.Verbose)
	st, err := storage.NewFile(cfg.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	c := client.New(cfg.APIURL, st, client.WithLogger(lg))
	svc := services.New(c)
	ss := session.New(c, svc.Auth, session.WithLogger(lg))
	nav := gate.NewNavigator(c, ss, lg)
	ss.Rehydrate(ctx)
	return &app{cfg: cfg, log: lg, store: st, client: c, svc: svc, session: ss, nav: nav}, nil
}

// enter moves the navigator to route and turns a redirect into an error.
func (a *app) enter(route string) error {
	view, d := a.nav.Navigate(route)
	a.log.Debugw("navigate", "route", route, "view", view, "decision", d)
	switch d {
	case gate.RedirectLogin:
		return errNotSignedIn
	case gate.RedirectUnauthorized:
		return errAdminOnly
	}
	return nil
}

// NewRootCmd builds a fresh command tree. Each call has its own state.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	a := &app{}
	var cfgFile string

	root := &cobra.Command{
		Use:   "staffctl",
		Short: "Staff management from the command line",
		Long: `staffctl talks to a staffdesk server: employees, documents, location
check-ins, help tickets and payroll records.

The session token is kept in ~/.staffdesk/session.json between runs. Settings
come from flags, STAFFDESK_* environment variables or ~/.staffdesk/config.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cfgFile)
			if err != nil {
				return err
			}
			built, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			*a = *built
			if route, ok := cmd.Annotations[routeKey]; ok {
				if err := a.enter(route); err != nil {
					return err
				}
			}
			if _, ok := cmd.Annotations[adminKey]; ok && !a.session.IsAdmin() {
				return errAdminOnly
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) { a.close() },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ~/.staffdesk/config.yaml)")
	pf.String("api-url", "", "staffdesk server URL")
	pf.String("session-file", "", "where the session token is kept")
	pf.StringP("output", "o", "", "output format: table, json or yaml")
	pf.BoolP("verbose", "v", false, "log debug details to stderr")
	for key, flag := range map[string]string{
		"api_url": "api-url", "session_file": "session-file", "output": "output", "verbose": "verbose",
	} {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newAuthCmd(a),
		newProfileCmd(a),
		newDashboardCmd(a),
		newEmployeesCmd(a),
		newDocumentsCmd(a),
		newLocationsCmd(a),
		newTicketsCmd(a),
		newPaymentsCmd(a),
		newMyPaymentsCmd(a),
	)
	return root
}

// ExecuteContext runs the command line with the process arguments and
// reports failures on stderr.
func ExecuteContext(ctx context.Context, stderr io.Writer) error {
	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		notifyError(stderr, err)
	}
	return err
}

func routed(route string) map[string]string { return map[string]string{routeKey: route} }

func adminAction(route string) map[string]string {
	return map[string]string{routeKey: route, adminKey: "true"}
}
