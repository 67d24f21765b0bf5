package services

import (
	"context"
	"net/http"

	"staffdesk/internal/api"
	"staffdesk/internal/client"
	"staffdesk/internal/models"
)

var (
	employeeStatuses = []string{models.EmployeeActive, models.EmployeeInactive, models.EmployeeOnLeave}
	roles            = []string{models.RoleAdmin, models.RoleEmployee}
)

type NewEmployee struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Department  string `json:"department"`
	Position    string `json:"position"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	Role        string `json:"role,omitempty"`
	Status      string `json:"status,omitempty"`
}

func (e NewEmployee) Validate() error {
	ch := checks{}
	ch.required("name", e.Name, "Name is required")
	ch.email("email", e.Email)
	ch.password("password", e.Password)
	ch.required("department", e.Department, "Department is required")
	ch.required("position", e.Position, "Position is required")
	ch.required("phoneNumber", e.PhoneNumber, "Phone number is required")
	ch.required("address", e.Address, "Address is required")
	ch.oneOf("role", e.Role, roles...)
	ch.oneOf("status", e.Status, employeeStatuses...)
	return ch.err()
}

// EmployeeChanges carries only the fields being edited.
type EmployeeChanges struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Role        *string `json:"role,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
	Department  *string `json:"department,omitempty"`
	Position    *string `json:"position,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Address     *string `json:"address,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (e EmployeeChanges) Validate() error {
	ch := checks{}
	req := func(field string, v *string, msg string) {
		if v != nil {
			ch.required(field, *v, msg)
		}
	}
	req("name", e.Name, "Name is required")
	req("department", e.Department, "Department is required")
	req("position", e.Position, "Position is required")
	req("phoneNumber", e.PhoneNumber, "Phone number is required")
	req("address", e.Address, "Address is required")
	if e.Email != nil {
		ch.email("email", *e.Email)
	}
	if e.Status != nil {
		ch.required("status", *e.Status, "Status is required")
		ch.oneOf("status", *e.Status, employeeStatuses...)
	}
	if e.Role != nil {
		ch.oneOf("role", *e.Role, roles...)
	}
	return ch.err()
}

type PasswordReset struct {
	NewPassword string `json:"newPassword"`
}

func (p PasswordReset) Validate() error {
	ch := checks{}
	ch.password("newPassword", p.NewPassword)
	return ch.err()
}

type Employees struct{ c *client.Client }

const employeesPath = "/employees"

func (s *Employees) List(ctx context.Context) (*api.Envelope[[]models.Employee], error) {
	return get[[]models.Employee](ctx, s.c, employeesPath, nil)
}

func (s *Employees) Get(ctx context.Context, id string) (*api.Envelope[models.Employee], error) {
	return get[models.Employee](ctx, s.c, idPath(employeesPath, id), nil)
}

func (s *Employees) Create(ctx context.Context, in NewEmployee) (*api.Envelope[models.Employee], error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return call[models.Employee](ctx, s.c, http.MethodPost, employeesPath, nil, in)
}

func (s *Employees) Update(ctx context.Context, id string, in EmployeeChanges) (*api.Envelope[models.Employee], error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return call[models.Employee](ctx, s.c, http.MethodPut, idPath(employeesPath, id), nil, in)
}

func (s *Employees) Delete(ctx context.Context, id string) (*api.Envelope[Deleted], error) {
	return call[Deleted](ctx, s.c, http.MethodDelete, idPath(employeesPath, id), nil, nil)
}

func (s *Employees) ResetPassword(ctx context.Context, id, newPassword string) (*api.Envelope[map[string]bool], error) {
	in := PasswordReset{NewPassword: newPassword}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return call[map[string]bool](ctx, s.c, http.MethodPut, idPath(employeesPath, id)+"/reset-password", nil, in)
}
