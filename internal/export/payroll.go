// Package export renders payroll records as an Excel workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"staffdesk/internal/models"
)

const PayrollSheet = "Payroll"

var payrollHeader = []interface{}{
	"Employee ID", "Employee", "Pay Period", "Basic Salary", "Overtime Hours", "Overtime Amount",
	"Bonuses", "Deductions", "Gross Pay", "Net Pay", "Method", "Status", "Paid At",
}

func sum(items []models.PayItem) float64 {
	var t float64
	for _, it := range items {
		t += it.Amount
	}
	return t
}

// WritePayroll writes one row per record, in the order given, after a bold header row.
func WritePayroll(w io.Writer, records []models.PaymentRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PayrollSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(PayrollSheet, "A1", &payrollHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(payrollHeader), 1)
	if err := f.SetCellStyle(PayrollSheet, "A1", last, bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, r := range records {
		var code, name string
		if r.Employee != nil {
			code = r.Employee.EmployeeID
			name = r.Employee.User.Name
		}
		paidAt := ""
		if r.PaidAt != nil {
			paidAt = r.PaidAt.Format("2006-01-02")
		}
		row := []interface{}{
			code, name, r.PayPeriod, r.BasicSalary, r.Overtime.Hours, r.Overtime.Amount,
			sum(r.Bonuses), sum(r.Deductions), r.GrossPay, r.NetPay, r.PaymentMethod, r.PaymentStatus, paidAt,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(PayrollSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f.Write(w)
}
