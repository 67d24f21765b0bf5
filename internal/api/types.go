package api

import "staffdesk/internal/models"

type TicketStats struct {
	Total      int            `json:"total"`
	Open       int            `json:"open"`
	InProgress int            `json:"inProgress"`
	Resolved   int            `json:"resolved"`
	Closed     int            `json:"closed"`
	ByPriority map[string]int `json:"byPriority"`
	ByCategory map[string]int `json:"byCategory"`
}

type PaymentStats struct {
	TotalRecords    int            `json:"totalRecords"`
	TotalGross      float64        `json:"totalGross"`
	TotalNet        float64        `json:"totalNet"`
	TotalPaid       float64        `json:"totalPaid"`
	TotalPending    float64        `json:"totalPending"`
	ByStatus        map[string]int `json:"byStatus"`
	ByPaymentMethod map[string]int `json:"byPaymentMethod"`
}

type PaymentSummary struct {
	TotalPayments      int     `json:"totalPayments"`
	PaidPayments       int     `json:"paidPayments"`
	PendingPayments    int     `json:"pendingPayments"`
	TotalPaidAmount    float64 `json:"totalPaidAmount"`
	TotalPendingAmount float64 `json:"totalPendingAmount"`
}

// MySummary is the employee-facing payroll overview.
type MySummary struct {
	Summary        PaymentSummary         `json:"summary"`
	RecentPayments []models.PaymentRecord `json:"recentPayments"`
}
