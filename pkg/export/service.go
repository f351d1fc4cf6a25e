package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/evoclabs/crm/pkg/models"
	"github.com/evoclabs/crm/pkg/views"
)

// Service handles lead export business logic. Exports always cover the
// full filtered projection, never a single page.
type Service struct {
	now func() time.Time
}

// NewService creates a new export service.
func NewService() *Service {
	return &Service{now: time.Now}
}

// Filename returns the download name for a view's export, e.g.
// "dashboard-leads-2026-08-31.csv".
func (s *Service) Filename(view views.View, ext string) string {
	return fmt.Sprintf("%s-leads-%s.%s", view, s.now().UTC().Format("2006-01-02"), ext)
}

// Columns returns the header row for a view.
func Columns(view views.View) []string {
	if view == views.ViewCompanion {
		return []string{"#", "Name", "Email", "Company", "Platform", "Goal", "Budget/Day", "Submitted"}
	}
	return []string{"Name", "Email", "Form Type", "Status", "Budget/Revenue"}
}

// Row renders one lead as a row of the view's columns. idx is the
// 1-based position in the projection.
func Row(view views.View, idx int, l models.Lead) []string {
	if view == views.ViewCompanion {
		return []string{
			strconv.Itoa(idx),
			l.Name,
			l.ContactEmail(),
			l.Company,
			models.PlatformLabel(l.Platform),
			models.GoalLabel(l.Target),
			l.Budget,
			submittedDate(l),
		}
	}
	return []string{
		l.Name,
		l.ContactEmail(),
		models.FormTypeLabel(l.FormType),
		l.Status.Label(),
		l.BudgetOrRevenue(),
	}
}

func submittedDate(l models.Lead) string {
	if l.SubmittedAt == 0 {
		return ""
	}
	return l.SubmittedTime().Format("2006-01-02")
}

// WriteCSV streams the projection as CSV. Every field is quoted
// regardless of content, with embedded quotes doubled; encoding/csv
// only quotes on demand, so quoting is done by hand here.
func (s *Service) WriteCSV(w io.Writer, view views.View, leads []models.Lead) error {
	if err := writeCSVRow(w, Columns(view)); err != nil {
		return err
	}
	for i, l := range leads {
		if err := writeCSVRow(w, Row(view, i+1, l)); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVRow(w io.Writer, fields []string) error {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteExcel streams the projection as an xlsx workbook with a single
// styled "Leads" sheet.
func (s *Service) WriteExcel(w io.Writer, view views.View, leads []models.Lead) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Leads"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	headers := Columns(view)
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to resolve cell: %w", err)
		}
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, l := range leads {
		for colIdx, value := range Row(view, rowIdx+1, l) {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("failed to resolve cell: %w", err)
			}
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to resolve column: %w", err)
		}
		f.SetColWidth(sheetName, col, col, 18)
	}

	f.SetActiveSheet(index)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
