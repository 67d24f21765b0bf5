package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staffdesk/internal/api"
	"staffdesk/internal/auth"
	"staffdesk/internal/models"
)

type registerReq struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Department  string `json:"department"`
	Position    string `json:"position"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
}

// nextEmployeeCode returns the code after the highest EMPnnnn issued so far.
// Codes are compared as numbers: EMP10000 follows EMP9999.
func nextEmployeeCode(tx *gorm.DB) (string, error) {
	var codes []string
	if err := tx.Model(&models.Employee{}).Where("employee_id LIKE ?", "EMP%").Pluck("employee_id", &codes).Error; err != nil {
		return "", err
	}
	highest := 0
	for _, c := range codes {
		n, err := strconv.Atoi(strings.TrimPrefix(c, "EMP"))
		if err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("EMP%04d", highest+1), nil
}

// createEmployeeAccount inserts the user and its employee profile in one transaction.
func createEmployeeAccount(tx *gorm.DB, req registerReq, role, status string) (models.User, models.Employee, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return models.User{}, models.Employee{}, err
	}
	u := models.User{
		Name: strings.TrimSpace(req.Name), Email: normEmail(req.Email), PasswordHash: hash,
		Role: role, IsActive: true,
	}
	var e models.Employee
	err = tx.Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).Where("email = ?", u.Email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return errEmailTaken
		}
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		code, err := nextEmployeeCode(tx)
		if err != nil {
			return err
		}
		e = models.Employee{
			UserID: u.ID, EmployeeID: code, Department: req.Department, Position: req.Position,
			PhoneNumber: req.PhoneNumber, Address: req.Address, Status: status, JoinDate: time.Now(),
		}
		return tx.Omit(clause.Associations).Create(&e).Error
	})
	e.User = u
	return u, e, err
}

var errEmailTaken = errors.New("email already registered")

// issueSession signs a token and records its session row so it can be revoked.
func (d Deps) issueSession(r *http.Request, u models.User) (string, error) {
	issued, err := d.Tokens.Sign(u)
	if err != nil {
		return "", err
	}
	sess := models.Session{JTI: issued.JTI, UserID: u.ID, ExpiresAt: issued.ExpiresAt, CreatedAt: time.Now()}
	if err := d.DB.WithContext(r.Context()).Create(&sess).Error; err != nil {
		return "", err
	}
	return issued.Token, nil
}

func Register(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" || normEmail(req.Email) == "" || req.Password == "" {
			api.WriteError(w, http.StatusBadRequest, "name, email and password required")
			return
		}
		u, e, err := createEmployeeAccount(d.DB.WithContext(r.Context()), req, models.RoleEmployee, models.EmployeeActive)
		switch {
		case errors.Is(err, errEmailTaken):
			api.WriteError(w, http.StatusConflict, err.Error())
			return
		case errors.Is(err, auth.ErrPasswordTooShort):
			api.WriteError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			dbError(w, d.Log, "user", err)
			return
		}
		tok, err := d.issueSession(r, u)
		if err != nil {
			d.Log.Errorw("issue session failed", "user", u.ID, "error", err)
			api.WriteError(w, http.StatusInternalServerError, "token error")
			return
		}
		d.audit(r, "auth.register", map[string]any{"userId": u.ID, "email": u.Email})
		api.WriteJSON(w, http.StatusCreated, api.AuthResult{Success: true, Token: tok, User: models.ProfileOf(u, &e)})
	}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login answers bad credentials with 400; 401 is reserved for dead tokens so
// a failed attempt never invalidates a session the client already holds.
func Login(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if !decodeJSON(w, r, &req) {
			return
		}
		fail := func(reason string) {
			d.Metrics.Logins.WithLabelValues("failure").Inc()
			d.Log.Infow("login rejected", "email", normEmail(req.Email), "reason", reason)
			api.WriteError(w, http.StatusBadRequest, "Invalid credentials")
		}
		var u models.User
		if err := d.DB.WithContext(r.Context()).First(&u, "email = ?", normEmail(req.Email)).Error; err != nil {
			fail("unknown email")
			return
		}
		if !u.IsActive {
			fail("inactive")
			return
		}
		if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
			fail("bad password")
			return
		}
		tok, err := d.issueSession(r, u)
		if err != nil {
			d.Log.Errorw("issue session failed", "user", u.ID, "error", err)
			api.WriteError(w, http.StatusInternalServerError, "token error")
			return
		}
		var e models.Employee
		emp := &e
		if err := d.DB.WithContext(r.Context()).First(&e, "user_id = ?", u.ID).Error; err != nil {
			emp = nil
		}
		d.Metrics.Logins.WithLabelValues("success").Inc()
		r = r.WithContext(auth.WithClaims(r.Context(), auth.Claims{Subject: u.ID, Role: u.Role}))
		d.audit(r, "auth.login", map[string]any{"email": u.Email})
		api.WriteJSON(w, http.StatusOK, api.AuthResult{Success: true, Token: tok, User: models.ProfileOf(u, emp)})
	}
}

func Me(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.Subject(r.Context())
		var u models.User
		if err := d.DB.WithContext(r.Context()).First(&u, "id = ?", sub).Error; err != nil {
			dbError(w, d.Log, "user", err)
			return
		}
		if !u.IsActive {
			api.WriteError(w, http.StatusUnauthorized, "account disabled")
			return
		}
		var e models.Employee
		emp := &e
		if err := d.DB.WithContext(r.Context()).First(&e, "user_id = ?", u.ID).Error; err != nil {
			emp = nil
		}
		api.WriteData(w, http.StatusOK, models.ProfileOf(u, emp))
	}
}

// Logout revokes the session behind the presented token.
func Logout(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.FromContext(r.Context())
		now := time.Now()
		if err := d.DB.WithContext(r.Context()).Model(&models.Session{}).
			Where("jti = ?", claims.JWTID).Update("revoked_at", &now).Error; err != nil {
			dbError(w, d.Log, "session", err)
			return
		}
		d.Metrics.Revocations.WithLabelValues("logout").Inc()
		d.audit(r, "auth.logout", nil)
		api.WriteData(w, http.StatusOK, map[string]any{"loggedOut": true})
	}
}
