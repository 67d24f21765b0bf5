package models

import (
	"bytes"
	"encoding/json"
)

// Ref is an identifier that decodes from either a JSON string or a JSON number.
type Ref string

func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Ref(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = Ref(n.String())
	return nil
}

// Profile is the identity handed to clients on login and by /auth/me.
type Profile struct {
	ID          Ref    `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	EmployeeID  string `json:"employeeId,omitempty"`
	Department  string `json:"department,omitempty"`
	Position    string `json:"position,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Address     string `json:"address,omitempty"`
}

func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }

func ProfileOf(u User, e *Employee) Profile {
	p := Profile{ID: Ref(u.ID), Name: u.Name, Email: u.Email, Role: u.Role}
	if e != nil {
		p.EmployeeID = e.EmployeeID
		p.Department = e.Department
		p.Position = e.Position
		p.PhoneNumber = e.PhoneNumber
		p.Address = e.Address
	}
	return p
}
