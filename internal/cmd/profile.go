package cmd

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"staffdesk/internal/client/dashboard"
	"staffdesk/internal/client/gate"
)

func newProfileCmd(a *app) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:         "profile",
		Short:       "Show your profile as the server knows it",
		Annotations: routed(gate.Profile),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Auth.Profile(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), profileView(env.Data))
		},
	}

	var all bool
	var action string
	activity := &cobra.Command{
		Use:         "activity",
		Short:       "List recent security events on your account",
		Annotations: routed(gate.Profile),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.AuditLogs.List(cmd.Context(), all, action)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(env.Data))
			for _, l := range env.Data {
				meta, _ := json.Marshal(l.Metadata)
				rows = append(rows, []string{strconv.FormatInt(l.ID, 10), ts(l.CreatedAt), l.Action, string(meta)})
			}
			return a.render(cmd.OutOrStdout(), view{data: env.Data, headers: []string{"ID", "WHEN", "ACTION", "DETAILS"}, rows: rows})
		},
	}
	activity.Flags().BoolVar(&all, "all", false, "every account's events (admins only)")
	activity.Flags().StringVar(&action, "action", "", "only this action, e.g. auth.login")
	profileCmd.AddCommand(activity)
	return profileCmd
}

func dashboardView(s *dashboard.Snapshot) view {
	rows := [][]string{}
	if s.Admin {
		rows = append(rows, []string{"Employees", strconv.Itoa(s.Stats.TotalEmployees)})
	}
	rows = append(rows,
		[]string{"Documents", strconv.Itoa(s.Stats.TotalDocuments)},
		[]string{"Pending", strconv.Itoa(s.Stats.PendingDocuments)},
		[]string{"Verified", strconv.Itoa(s.Stats.VerifiedDocuments)},
		[]string{"Rejected", strconv.Itoa(s.Stats.RejectedDocuments)},
		[]string{"Check-ins", strconv.Itoa(s.Stats.TotalLocations)},
	)
	if !s.Admin {
		status := "Checked out"
		if c := s.CurrentCheckIn; c != nil {
			status = "Checked in since " + ts(c.CheckInTime) + " at " + orDash(c.Address)
		}
		rows = append(rows, []string{"Status", status})
	}
	return view{data: s, rows: rows}
}

func newDashboardCmd(a *app) *cobra.Command {
	var watch bool
	var interval time.Duration
	cmd := &cobra.Command{
		Use:         "dashboard",
		Short:       "Summary of documents, check-ins and staff",
		Annotations: routed(gate.Dashboard),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := &dashboard.Loader{Services: a.svc}
			admin := a.session.IsAdmin()
			if !watch {
				s, err := l.Load(cmd.Context(), admin)
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), dashboardView(s))
			}
			// A lost session ends the watch; other failures are retried.
			ctx, stop := context.WithCancel(cmd.Context())
			defer stop()
			var failed error
			l.Watch(ctx, admin, interval, a.store, func(s *dashboard.Snapshot, err error) {
				if err != nil {
					if !a.session.IsAuthenticated() {
						failed = err
						stop()
						return
					}
					a.log.Warnw("dashboard refresh failed", "error", err)
					notifyError(cmd.ErrOrStderr(), err)
					return
				}
				if err := a.render(cmd.OutOrStdout(), dashboardView(s)); err != nil {
					a.log.Warnw("render dashboard", "error", err)
				}
			})
			return failed
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep refreshing until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "refresh interval with --watch")
	return cmd
}
