package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"staffdesk/internal/api"
	"staffdesk/internal/client/gate"
	"staffdesk/internal/client/services"
	"staffdesk/internal/models"
)

var paymentHeaders = []string{"ID", "EMPLOYEE", "PERIOD", "GROSS", "NET", "METHOD", "STATUS"}

func paymentRows(list []models.PaymentRecord) [][]string {
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		rows = append(rows, []string{p.ID, ownerName(p.Employee), p.PayPeriod, money(p.GrossPay), money(p.NetPay), p.PaymentMethod, p.PaymentStatus})
	}
	return rows
}

func payItems(items []models.PayItem) string {
	if len(items) == 0 {
		return "-"
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.Description + " " + money(it.Amount)
	}
	return strings.Join(parts, ", ")
}

func paymentView(p models.PaymentRecord) view {
	return view{data: p, rows: [][]string{
		{"ID", p.ID},
		{"Employee", ownerName(p.Employee)},
		{"Period", p.PayPeriod},
		{"Basic salary", money(p.BasicSalary)},
		{"Overtime", fmt.Sprintf("%sh x %s = %s", money(p.Overtime.Hours), money(p.Overtime.Rate), money(p.Overtime.Amount))},
		{"Bonuses", payItems(p.Bonuses)},
		{"Deductions", payItems(p.Deductions)},
		{"Gross", money(p.GrossPay)},
		{"Net", money(p.NetPay)},
		{"Method", p.PaymentMethod},
		{"Status", p.PaymentStatus},
		{"Paid", optTS(p.PaidAt)},
		{"Notes", orDash(p.Notes)},
	}}
}

// parsePayItems reads "description=amount" pairs.
func parsePayItems(flag string, raw []string) ([]models.PayItem, error) {
	items := make([]models.PayItem, 0, len(raw))
	for _, r := range raw {
		desc, amt, ok := strings.Cut(r, "=")
		if !ok {
			return nil, fmt.Errorf("--%s %q: want description=amount", flag, r)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(amt), 64)
		if err != nil {
			return nil, fmt.Errorf("--%s %q: %w", flag, r, err)
		}
		items = append(items, models.PayItem{Description: strings.TrimSpace(desc), Amount: v})
	}
	return items, nil
}

func paymentFlags(fs *pflag.FlagSet) {
	fs.String("employee-id", "", "employee row id")
	fs.String("week-start", "", "first day of the week, "+services.DateLayout)
	fs.String("week-end", "", "last day of the week, "+services.DateLayout)
	fs.Float64("basic", 0, "basic salary")
	fs.Float64("overtime-hours", 0, "overtime hours")
	fs.Float64("overtime-rate", 0, "overtime hourly rate")
	fs.StringArray("bonus", nil, "bonus as description=amount, repeatable")
	fs.StringArray("deduction", nil, "deduction as description=amount, repeatable")
	fs.String("method", "", strings.Join(services.PaymentMethods, ", "))
	fs.String("status", "", strings.Join(services.PaymentStatuses, ", "))
	fs.String("notes", "", "free text")
}

// applyPaymentFlags overlays the flags that were set onto in.
func applyPaymentFlags(fs *pflag.FlagSet, in *services.PaymentInput) error {
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	num := func(name string, dst *float64) {
		if fs.Changed(name) {
			*dst, _ = fs.GetFloat64(name)
		}
	}
	items := func(name string, dst *[]models.PayItem) error {
		if !fs.Changed(name) {
			return nil
		}
		raw, _ := fs.GetStringArray(name)
		parsed, err := parsePayItems(name, raw)
		if err != nil {
			return err
		}
		*dst = parsed
		return nil
	}
	str("employee-id", &in.EmployeeID)
	str("week-start", &in.WeekStartDate)
	str("week-end", &in.WeekEndDate)
	num("basic", &in.BasicSalary)
	num("overtime-hours", &in.Overtime.Hours)
	num("overtime-rate", &in.Overtime.Rate)
	str("method", &in.PaymentMethod)
	str("status", &in.PaymentStatus)
	str("notes", &in.Notes)
	if err := items("bonus", &in.Bonuses); err != nil {
		return err
	}
	return items("deduction", &in.Deductions)
}

// inputOf is the editable form of an existing record.
func inputOf(p models.PaymentRecord) services.PaymentInput {
	return services.PaymentInput{
		EmployeeID:    p.EmployeeID,
		WeekStartDate: p.WeekStartDate.UTC().Format(services.DateLayout),
		WeekEndDate:   p.WeekEndDate.UTC().Format(services.DateLayout),
		BasicSalary:   p.BasicSalary,
		Overtime:      services.OvertimeInput{Hours: p.Overtime.Hours, Rate: p.Overtime.Rate},
		Bonuses:       p.Bonuses,
		Deductions:    p.Deductions,
		PaymentMethod: p.PaymentMethod,
		PaymentStatus: p.PaymentStatus,
		Notes:         p.Notes,
	}
}

func paymentStatsView(s api.PaymentStats) view {
	rows := [][]string{
		{"Records", strconv.Itoa(s.TotalRecords)},
		{"Gross", money(s.TotalGross)},
		{"Net", money(s.TotalNet)},
		{"Paid", money(s.TotalPaid)},
		{"Pending", money(s.TotalPending)},
	}
	rows = append(rows, countRows("Status", s.ByStatus)...)
	rows = append(rows, countRows("Method", s.ByPaymentMethod)...)
	return view{data: s, rows: rows}
}

func newPaymentsCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:         "payments",
		Aliases:     []string{"payment", "pay"},
		Short:       "Weekly payment records",
		Annotations: routed(gate.Payments),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var f services.PaymentFilter
	filterFlags := func(fs *pflag.FlagSet) {
		fs.StringVar(&f.Status, "status", "", strings.Join(services.PaymentStatuses, ", "))
		fs.StringVar(&f.EmployeeID, "employee-id", "", "only this employee (admin)")
		fs.StringVar(&f.StartDate, "from", "", "weeks starting on or after, "+services.DateLayout)
		fs.StringVar(&f.EndDate, "to", "", "weeks ending on or before, "+services.DateLayout)
	}

	list := &cobra.Command{
		Use:         "list",
		Short:       "List payment records",
		Annotations: routed(gate.Payments),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Payments.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), view{data: env.Data, headers: paymentHeaders, rows: paymentRows(env.Data)})
		},
	}
	filterFlags(list.Flags())

	get := &cobra.Command{
		Use:         "get <id>",
		Short:       "Show one payment record",
		Args:        cobra.ExactArgs(1),
		Annotations: routed(gate.Payments),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Payments.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), paymentView(env.Data))
		},
	}

	create := &cobra.Command{
		Use:         "create",
		Short:       "Record a week's pay (admin)",
		Annotations: adminAction(gate.Payments),
		Example: `  staffctl payments create --employee-id 5c1f... --week-start 2024-03-04 --week-end 2024-03-10 \
    --basic 500 --overtime-hours 4 --overtime-rate 20 --bonus "Night shift=50" --deduction "Loan=25"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in services.PaymentInput
			if err := applyPaymentFlags(cmd.Flags(), &in); err != nil {
				return err
			}
			env, err := a.svc.Payments.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Payment record for %s created, net %s", env.Data.PayPeriod, money(env.Data.NetPay))
			return a.render(cmd.OutOrStdout(), paymentView(env.Data))
		},
	}
	paymentFlags(create.Flags())

	update := &cobra.Command{
		Use:         "update <id>",
		Short:       "Edit a payment record; unset flags keep their values (admin)",
		Args:        cobra.ExactArgs(1),
		Annotations: adminAction(gate.Payments),
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := a.svc.Payments.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			in := inputOf(cur.Data)
			if err := applyPaymentFlags(cmd.Flags(), &in); err != nil {
				return err
			}
			env, err := a.svc.Payments.Update(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Payment record updated, net %s", money(env.Data.NetPay))
			return a.render(cmd.OutOrStdout(), paymentView(env.Data))
		},
	}
	paymentFlags(update.Flags())

	status := &cobra.Command{
		Use:         "status <id> <pending|paid|cancelled>",
		Short:       "Change a record's payment status (admin)",
		Args:        cobra.ExactArgs(2),
		Annotations: adminAction(gate.Payments),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Payments.UpdateStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Payment is now %s", env.Data.PaymentStatus)
			return nil
		},
	}

	del := &cobra.Command{
		Use:         "delete <id>",
		Short:       "Delete a payment record (admin)",
		Args:        cobra.ExactArgs(1),
		Annotations: adminAction(gate.Payments),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.svc.Payments.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Payment record deleted")
			return nil
		},
	}

	stats := &cobra.Command{
		Use:         "stats",
		Short:       "Payroll totals (admin)",
		Annotations: adminAction(gate.Payments),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Payments.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), paymentStatsView(env.Data))
		},
	}

	var outPath string
	export := &cobra.Command{
		Use:         "export",
		Short:       "Download matching records as an Excel workbook (admin)",
		Annotations: adminAction(gate.Payments),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmp := outPath + ".part"
			file, err := os.Create(tmp)
			if err != nil {
				return fmt.Errorf("create %s: %w", tmp, err)
			}
			n, err := a.svc.Payments.Export(cmd.Context(), f, file)
			if cerr := file.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(tmp)
				return err
			}
			if err := os.Rename(tmp, outPath); err != nil {
				return fmt.Errorf("save %s: %w", outPath, err)
			}
			notify(cmd.ErrOrStderr(), "Saved %s (%d bytes)", outPath, n)
			return nil
		},
	}
	filterFlags(export.Flags())
	export.Flags().StringVar(&outPath, "out", "payment-records.xlsx", "where to write the workbook")

	root.AddCommand(list, get, create, update, status, del, stats, export)
	return root
}

func newMyPaymentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "my-payments",
		Short:       "Your payroll summary and latest payments",
		Annotations: routed(gate.MyPayments),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Payments.MySummary(cmd.Context())
			if err != nil {
				return err
			}
			s := env.Data.Summary
			if a.cfg.Output != "table" {
				return a.render(cmd.OutOrStdout(), view{data: env.Data})
			}
			if err := a.render(cmd.OutOrStdout(), view{rows: [][]string{
				{"Payments", strconv.Itoa(s.TotalPayments)},
				{"Paid", fmt.Sprintf("%d (%s)", s.PaidPayments, money(s.TotalPaidAmount))},
				{"Pending", fmt.Sprintf("%d (%s)", s.PendingPayments, money(s.TotalPendingAmount))},
			}}); err != nil {
				return err
			}
			if len(env.Data.RecentPayments) == 0 {
				return nil
			}
			return a.render(cmd.OutOrStdout(), view{headers: paymentHeaders, rows: paymentRows(env.Data.RecentPayments)})
		},
	}
}
