// Package export writes attendance records as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/huyquangvevo/chamcong-web/internal/models"
)

const (
	SheetName   = "Attendance"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout  = "2006-01-02 15:04:05"
)

var header = []interface{}{"Kind", "Check-in", "Check-out", "Leave start", "Reason", "Hours"}

// WriteRecords writes one sheet with a header row and one row per record,
// times shown in loc.
func WriteRecords(w io.Writer, records []models.AttendanceRecord, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		kind := "Session"
		if rec.IsLeave() {
			kind = "Leave"
		}
		reason := ""
		if rec.LeaveReason != nil {
			reason = *rec.LeaveReason
		}
		hours := ""
		if worked := rec.Worked(); worked > 0 {
			hours = fmt.Sprintf("%.2f", worked.Hours())
		}
		row := []interface{}{
			kind,
			format(rec.CheckinTime, loc),
			format(rec.CheckoutTime, loc),
			format(rec.LeaveStartTime, loc),
			reason,
			hours,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "F", 20); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func format(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(timeLayout)
}
