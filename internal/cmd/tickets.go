package cmd

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"staffdesk/internal/api"
	"staffdesk/internal/client/gate"
	"staffdesk/internal/client/services"
	"staffdesk/internal/models"
)

var ticketHeaders = []string{"ID", "SUBJECT", "FROM", "PRIORITY", "CATEGORY", "STATUS", "REPLIES", "OPENED"}

func userName(u *models.User) string {
	if u == nil {
		return "-"
	}
	return u.Name
}

func ticketRows(list []models.HelpTicket) [][]string {
	rows := make([][]string, 0, len(list))
	for _, t := range list {
		rows = append(rows, []string{t.ID, t.Subject, userName(t.User), t.Priority, t.Category, t.Status, strconv.Itoa(len(t.Replies)), ts(t.CreatedAt)})
	}
	return rows
}

func ticketView(t models.HelpTicket) view {
	rows := [][]string{
		{"ID", t.ID},
		{"Subject", t.Subject},
		{"From", userName(t.User)},
		{"Priority", t.Priority},
		{"Category", t.Category},
		{"Status", t.Status},
		{"Opened", ts(t.CreatedAt)},
		{"Message", t.Message},
	}
	for _, r := range t.Replies {
		who := userName(r.User)
		if r.IsAdmin {
			who += " (support)"
		}
		rows = append(rows, []string{"Reply " + ts(r.CreatedAt), who + ": " + r.Message})
	}
	return view{data: t, rows: rows}
}

func countRows(label string, m map[string]int) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{label + " " + k, strconv.Itoa(m[k])})
	}
	return rows
}

func ticketStatsView(s api.TicketStats) view {
	rows := [][]string{
		{"Total", strconv.Itoa(s.Total)},
		{"Open", strconv.Itoa(s.Open)},
		{"In progress", strconv.Itoa(s.InProgress)},
		{"Resolved", strconv.Itoa(s.Resolved)},
		{"Closed", strconv.Itoa(s.Closed)},
	}
	rows = append(rows, countRows("Priority", s.ByPriority)...)
	rows = append(rows, countRows("Category", s.ByCategory)...)
	return view{data: s, rows: rows}
}

func newTicketsCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:         "tickets",
		Aliases:     []string{"ticket", "help"},
		Short:       "Help center tickets",
		Annotations: routed(gate.HelpCenter),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var f services.TicketFilter
	list := &cobra.Command{
		Use:         "list",
		Short:       "List tickets",
		Annotations: routed(gate.HelpCenter),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Tickets.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), view{data: env.Data, headers: ticketHeaders, rows: ticketRows(env.Data)})
		},
	}
	list.Flags().StringVar(&f.Status, "status", "", "open, in-progress, resolved or closed")
	list.Flags().StringVar(&f.Priority, "priority", "", "low, medium, high or urgent")
	list.Flags().StringVar(&f.Category, "category", "", "technical, hr, payroll, general or other")

	get := &cobra.Command{
		Use:         "get <id>",
		Short:       "Show a ticket with its replies",
		Args:        cobra.ExactArgs(1),
		Annotations: routed(gate.HelpCenter),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Tickets.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), ticketView(env.Data))
		},
	}

	var nt services.NewTicket
	create := &cobra.Command{
		Use:         "create",
		Short:       "Open a ticket",
		Annotations: routed(gate.HelpCenter),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Tickets.Create(cmd.Context(), nt)
			if err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Ticket %s opened", env.Data.ID)
			return a.render(cmd.OutOrStdout(), ticketView(env.Data))
		},
	}
	create.Flags().StringVar(&nt.Subject, "subject", "", "short summary")
	create.Flags().StringVar(&nt.Message, "message", "", "what you need help with")
	create.Flags().StringVar(&nt.Priority, "priority", "", "low, medium, high or urgent (default medium)")
	create.Flags().StringVar(&nt.Category, "category", "", "technical, hr, payroll, general or other (default general)")

	var reply services.TicketReply
	replyCmd := &cobra.Command{
		Use:         "reply <id>",
		Short:       "Reply to a ticket",
		Args:        cobra.ExactArgs(1),
		Annotations: routed(gate.HelpCenter),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Tickets.Reply(cmd.Context(), args[0], reply)
			if err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Reply sent, ticket is %s", env.Data.Status)
			return nil
		},
	}
	replyCmd.Flags().StringVar(&reply.Message, "message", "", "reply text")

	status := &cobra.Command{
		Use:         "status <id> <status>",
		Short:       "Move a ticket to another status (admin)",
		Args:        cobra.ExactArgs(2),
		Annotations: adminAction(gate.HelpCenter),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Tickets.UpdateStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Ticket is now %s", env.Data.Status)
			return nil
		},
	}

	del := &cobra.Command{
		Use:         "delete <id>",
		Short:       "Delete a ticket",
		Args:        cobra.ExactArgs(1),
		Annotations: routed(gate.HelpCenter),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.svc.Tickets.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Ticket deleted")
			return nil
		},
	}

	stats := &cobra.Command{
		Use:         "stats",
		Short:       "Ticket counts by status, priority and category",
		Annotations: routed(gate.HelpCenter),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Tickets.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), ticketStatsView(env.Data))
		},
	}

	root.AddCommand(list, get, create, replyCmd, status, del, stats)
	return root
}
