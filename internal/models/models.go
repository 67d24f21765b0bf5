package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

const (
	EmployeeActive   = "active"
	EmployeeInactive = "inactive"
	EmployeeOnLeave  = "on-leave"
)

const (
	DocumentPending  = "pending"
	DocumentVerified = "verified"
	DocumentRejected = "rejected"
)

const (
	CheckedIn  = "checked-in"
	CheckedOut = "checked-out"
)

const (
	TicketOpen       = "open"
	TicketInProgress = "in-progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

const (
	PaymentPending   = "pending"
	PaymentPaid      = "paid"
	PaymentCancelled = "cancelled"
)

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"not null;default:employee" json:"role"`
	IsActive     bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error { newID(&u.ID); return nil }

type Employee struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string    `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	User        User      `json:"user"`
	EmployeeID  string    `gorm:"uniqueIndex;not null" json:"employeeId"`
	Department  string    `json:"department"`
	Position    string    `json:"position"`
	PhoneNumber string    `json:"phoneNumber"`
	Address     string    `json:"address"`
	Status      string    `gorm:"not null;default:active" json:"status"`
	JoinDate    time.Time `json:"joinDate"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (e *Employee) BeforeCreate(*gorm.DB) error { newID(&e.ID); return nil }

type Document struct {
	ID                 string     `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID         string     `gorm:"type:uuid;index;not null" json:"employeeId"`
	Employee           *Employee  `json:"employee,omitempty"`
	Name               string     `gorm:"not null" json:"name"`
	Type               string     `gorm:"not null" json:"type"`
	FileName           string     `json:"fileName"`
	FileURL            string     `json:"fileUrl"`
	StorageKey         string     `json:"-"`
	MimeType           string     `json:"mimeType"`
	Size               int64      `json:"size"`
	VerificationStatus string     `gorm:"not null;default:pending" json:"verificationStatus"`
	VerifiedBy         *string    `gorm:"type:uuid" json:"verifiedBy,omitempty"`
	VerifiedAt         *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func (d *Document) BeforeCreate(*gorm.DB) error { newID(&d.ID); return nil }

type LocationCheckIn struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID    string     `gorm:"type:uuid;index;not null" json:"employeeId"`
	Employee      *Employee  `json:"employee,omitempty"`
	Latitude      float64    `json:"latitude"`
	Longitude     float64    `json:"longitude"`
	Accuracy      float64    `json:"accuracy"`
	Address       string     `json:"address"`
	Device        string     `json:"device"`
	CheckInTime   time.Time  `gorm:"index" json:"checkInTime"`
	CheckOutTime  *time.Time `json:"checkOutTime"`
	Status        string     `gorm:"not null;index" json:"status"`
	LastLatitude  *float64   `json:"lastLatitude,omitempty"`
	LastLongitude *float64   `json:"lastLongitude,omitempty"`
	LastAccuracy  *float64   `json:"lastAccuracy,omitempty"`
	LastUpdateAt  *time.Time `json:"lastUpdateAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (l *LocationCheckIn) BeforeCreate(*gorm.DB) error { newID(&l.ID); return nil }

type HelpTicket struct {
	ID        string        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string        `gorm:"type:uuid;index;not null" json:"userId"`
	User      *User         `json:"user,omitempty"`
	Subject   string        `gorm:"not null" json:"subject"`
	Message   string        `gorm:"not null" json:"message"`
	Priority  string        `gorm:"not null;default:medium" json:"priority"`
	Category  string        `gorm:"not null;default:general" json:"category"`
	Status    string        `gorm:"not null;default:open;index" json:"status"`
	Replies   []TicketReply `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE" json:"replies"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (h *HelpTicket) BeforeCreate(*gorm.DB) error { newID(&h.ID); return nil }

type TicketReply struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	TicketID  string    `gorm:"type:uuid;index;not null" json:"ticketId"`
	UserID    string    `gorm:"type:uuid;not null" json:"userId"`
	User      *User     `json:"user,omitempty"`
	Message   string    `gorm:"not null" json:"message"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *TicketReply) BeforeCreate(*gorm.DB) error { newID(&r.ID); return nil }

type PayItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type Overtime struct {
	Hours  float64 `json:"hours"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

type PaymentRecord struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID    string     `gorm:"type:uuid;index;not null" json:"employeeId"`
	Employee      *Employee  `json:"employee,omitempty"`
	WeekStartDate time.Time  `gorm:"index" json:"weekStartDate"`
	WeekEndDate   time.Time  `json:"weekEndDate"`
	PayPeriod     string     `json:"payPeriod"`
	BasicSalary   float64    `json:"basicSalary"`
	Overtime      Overtime   `gorm:"embedded;embeddedPrefix:overtime_" json:"overtime"`
	Bonuses       []PayItem  `gorm:"serializer:json;type:text" json:"bonuses"`
	Deductions    []PayItem  `gorm:"serializer:json;type:text" json:"deductions"`
	GrossPay      float64    `json:"grossPay"`
	NetPay        float64    `json:"netPay"`
	PaymentMethod string     `gorm:"not null;default:bank_transfer" json:"paymentMethod"`
	PaymentStatus string     `gorm:"not null;default:pending;index" json:"paymentStatus"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	Notes         string     `json:"notes"`
	CreatedBy     string     `gorm:"type:uuid" json:"createdBy"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (p *PaymentRecord) BeforeCreate(*gorm.DB) error { newID(&p.ID); return nil }

// Recalculate fills the derived pay fields from the entered components.
func (p *PaymentRecord) Recalculate() {
	p.Overtime.Amount = p.Overtime.Hours * p.Overtime.Rate
	gross := p.BasicSalary + p.Overtime.Amount
	for _, b := range p.Bonuses {
		gross += b.Amount
	}
	net := gross
	for _, d := range p.Deductions {
		net -= d.Amount
	}
	p.GrossPay = gross
	p.NetPay = net
	p.PayPeriod = p.WeekStartDate.Format("2006-01-02") + " - " + p.WeekEndDate.Format("2006-01-02")
}

type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *string   `gorm:"type:uuid;index" json:"userId,omitempty"`
	Action    string    `gorm:"not null" json:"action"`
	Metadata  JSONB     `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time `json:"createdAt"`
}

type Session struct {
	JTI       string     `gorm:"primaryKey;size:64" json:"jti"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"userId"`
	ExpiresAt time.Time  `gorm:"not null" json:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// All lists every model for AutoMigrate, parents first.
func All() []any {
	return []any{
		&User{}, &Employee{}, &Document{}, &LocationCheckIn{},
		&HelpTicket{}, &TicketReply{}, &PaymentRecord{}, &AuditLog{}, &Session{},
	}
}

// OpenCheckInIndex keeps at most one checked-in record per employee.
const OpenCheckInIndex = "idx_location_open_checkin"

// Migrate brings the schema up to date, including the partial indexes gorm
// tags cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS " + OpenCheckInIndex +
		" ON location_check_ins (employee_id) WHERE status = '" + CheckedIn + "'").Error
	if err != nil {
		return fmt.Errorf("create %s: %w", OpenCheckInIndex, err)
	}
	return nil
}
