package spreadsheet

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"schoolattend/internal/student"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	SheetName   = "Students"
)

var exportHeader = []interface{}{
	"Admission No", "StudentSeqNo", "Class", "Section", "Student Name", "Contact No", "RFID No",
	"Status", "Created", "Created By", "Father Name", "Father Email", "Address",
}

// ExportFilename names an export taken at now.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("students_export_%d.xlsx", now.UnixMilli())
}

// ExportStudents writes students to a single-sheet workbook.
func ExportStudents(students []student.Student) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, errors.Wrap(err, "name sheet")
	}
	if err := f.SetSheetRow(SheetName, "A1", &exportHeader); err != nil {
		return nil, errors.Wrap(err, "write header")
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(SheetName, "A1", "M1", bold)
	}

	for i, s := range students {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			str(s.AdmissionNo), s.ID, str(s.ClassName), str(s.Section), s.FullName, str(s.Phone), str(s.TagID),
			s.Status, s.CreateDate, str(s.CreatedBy), str(s.FatherName), str(s.FatherEmail), str(s.Address),
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, errors.Wrapf(err, "write row %d", i+2)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "encode workbook")
	}
	return buf.Bytes(), nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
