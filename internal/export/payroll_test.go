package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"staffdesk/internal/models"
)

func TestWritePayroll(t *testing.T) {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	paid := start.AddDate(0, 0, 8)
	rec := models.PaymentRecord{
		Employee:      &models.Employee{EmployeeID: "EMP0007", User: models.User{Name: "Rosa"}},
		WeekStartDate: start,
		WeekEndDate:   start.AddDate(0, 0, 6),
		BasicSalary:   800,
		Overtime:      models.Overtime{Hours: 2, Rate: 20},
		Bonuses:       []models.PayItem{{Description: "b", Amount: 10}, {Description: "c", Amount: 5}},
		Deductions:    []models.PayItem{{Description: "tax", Amount: 100}},
		PaymentMethod: "cash",
		PaymentStatus: models.PaymentPaid,
		PaidAt:        &paid,
	}
	rec.Recalculate()

	var buf bytes.Buffer
	require.NoError(t, WritePayroll(&buf, []models.PaymentRecord{rec, {PaymentStatus: models.PaymentPending}}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(PayrollSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Employee ID", rows[0][0])
	assert.Equal(t, "EMP0007", rows[1][0])
	assert.Equal(t, "Rosa", rows[1][1])
	assert.Equal(t, "2025-01-06 - 2025-01-12", rows[1][2])
	assert.Equal(t, "15", rows[1][6])
	assert.Equal(t, "855", rows[1][8])
	assert.Equal(t, "755", rows[1][9])
	assert.Equal(t, "2025-01-14", rows[1][12])
	assert.Equal(t, "pending", rows[2][11])
}
