package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"staffdesk/internal/client/gate"
	"staffdesk/internal/client/services"
	"staffdesk/internal/models"
)

func employeeRows(list []models.Employee) [][]string {
	rows := make([][]string, 0, len(list))
	for _, e := range list {
		rows = append(rows, []string{e.ID, e.EmployeeID, e.User.Name, e.User.Email, e.Department, e.Position, e.Status})
	}
	return rows
}

var employeeHeaders = []string{"ID", "CODE", "NAME", "EMAIL", "DEPARTMENT", "POSITION", "STATUS"}

func employeeView(e models.Employee) view {
	active := "no"
	if e.User.IsActive {
		active = "yes"
	}
	return view{data: e, rows: [][]string{
		{"ID", e.ID},
		{"Code", e.EmployeeID},
		{"Name", e.User.Name},
		{"Email", e.User.Email},
		{"Role", e.User.Role},
		{"Login enabled", active},
		{"Department", e.Department},
		{"Position", e.Position},
		{"Phone", e.PhoneNumber},
		{"Address", e.Address},
		{"Status", e.Status},
		{"Joined", ts(e.JoinDate)},
	}}
}

func newEmployeesCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:         "employees",
		Aliases:     []string{"employee", "emp"},
		Short:       "Manage employee accounts (admin)",
		Annotations: routed(gate.Employees),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	list := &cobra.Command{
		Use:         "list",
		Short:       "List employees",
		Annotations: routed(gate.Employees),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Employees.List(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), view{data: env.Data, headers: employeeHeaders, rows: employeeRows(env.Data)})
		},
	}

	get := &cobra.Command{
		Use:         "get <id>",
		Short:       "Show one employee",
		Args:        cobra.ExactArgs(1),
		Annotations: routed(gate.Employees),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Employees.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), employeeView(env.Data))
		},
	}

	var in services.NewEmployee
	create := &cobra.Command{
		Use:         "create",
		Short:       "Create an employee with a login",
		Annotations: routed(gate.Employees),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Employees.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Employee %s created", env.Data.EmployeeID)
			return a.render(cmd.OutOrStdout(), employeeView(env.Data))
		},
	}
	cf := create.Flags()
	cf.StringVar(&in.Name, "name", "", "full name")
	cf.StringVar(&in.Email, "email", "", "login email")
	cf.StringVar(&in.Password, "password", "", "initial password")
	cf.StringVar(&in.Department, "department", "", "department")
	cf.StringVar(&in.Position, "position", "", "position")
	cf.StringVar(&in.PhoneNumber, "phone", "", "phone number")
	cf.StringVar(&in.Address, "address", "", "address")
	cf.StringVar(&in.Role, "role", "", "admin or employee (default employee)")
	cf.StringVar(&in.Status, "status", "", "active, inactive or on-leave (default active)")

	update := &cobra.Command{
		Use:         "update <id>",
		Short:       "Change employee fields; only the flags given are sent",
		Args:        cobra.ExactArgs(1),
		Annotations: routed(gate.Employees),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := employeeChanges(cmd.Flags())
			if err != nil {
				return err
			}
			env, err := a.svc.Employees.Update(cmd.Context(), args[0], ch)
			if err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Employee %s updated", env.Data.EmployeeID)
			return a.render(cmd.OutOrStdout(), employeeView(env.Data))
		},
	}
	uf := update.Flags()
	for _, name := range []string{"name", "email", "role", "department", "position", "phone", "address", "status"} {
		uf.String(name, "", "new "+name)
	}
	uf.Bool("active", true, "whether the account may sign in")

	del := &cobra.Command{
		Use:         "delete <id>",
		Short:       "Delete an employee and everything they own",
		Args:        cobra.ExactArgs(1),
		Annotations: routed(gate.Employees),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.svc.Employees.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Employee deleted")
			return nil
		},
	}

	var newPassword string
	reset := &cobra.Command{
		Use:         "reset-password <id>",
		Short:       "Set a new password and end the employee's sessions",
		Args:        cobra.ExactArgs(1),
		Annotations: routed(gate.Employees),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.svc.Employees.ResetPassword(cmd.Context(), args[0], newPassword); err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Password reset")
			return nil
		},
	}
	reset.Flags().StringVar(&newPassword, "password", "", "new password, at least 6 characters")

	root.AddCommand(list, get, create, update, del, reset)
	return root
}

// employeeChanges turns the flags that were set into a partial update.
func employeeChanges(fs *pflag.FlagSet) (services.EmployeeChanges, error) {
	var ch services.EmployeeChanges
	str := func(name string) *string {
		if !fs.Changed(name) {
			return nil
		}
		v, _ := fs.GetString(name)
		return &v
	}
	ch.Name = str("name")
	ch.Email = str("email")
	ch.Role = str("role")
	ch.Department = str("department")
	ch.Position = str("position")
	ch.PhoneNumber = str("phone")
	ch.Address = str("address")
	ch.Status = str("status")
	if fs.Changed("active") {
		v, _ := fs.GetBool("active")
		ch.IsActive = &v
	}
	if ch == (services.EmployeeChanges{}) {
		return ch, fmt.Errorf("nothing to update, pass at least one field flag")
	}
	return ch, nil
}
