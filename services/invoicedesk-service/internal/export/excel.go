package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
)

// AppointmentsXLSX writes the appointment set to a single-sheet workbook.
// Cancellation columns are blank for appointments that were not cancelled.
func AppointmentsXLSX(appointments []model.Appointment) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Appointments"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	_ = f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	header := []string{
		"ID", "Client ID", "Person", "Service", "Start Time", "Duration (min)", "Rate",
		"Status", "Company", "Professional", "Specialty", "Location",
		"Cancelled At", "Hours Before", "Refund Status", "Cancelled By", "Reviewed",
	}
	for c, v := range header {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		_ = f.SetCellValue(sheet, cell, v)
	}

	for r, appt := range appointments {
		row := r + 2
		values := []any{
			appt.ID,
			appt.ClientID,
			appt.PersonName,
			appt.Service,
			appt.StartTime.Format("2006-01-02 15:04"),
			appt.DurationMins,
			appt.Rate,
			string(appt.Status),
			appt.Company,
			appt.ProfessionalName,
			appt.Specialty,
			appt.Location,
		}
		if c := appt.Cancellation; c != nil {
			values = append(values,
				c.Timestamp.Format("2006-01-02 15:04"),
				c.HoursBefore,
				string(c.RefundStatus),
				string(c.CancelledBy),
				c.Reviewed,
			)
		} else {
			values = append(values, "", "", "", "", "")
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
