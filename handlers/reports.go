package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	"atclicenses.app/server/internal/expiry"
	"atclicenses.app/server/internal/report"
	"atclicenses.app/server/models"
)

// Fill colors for status highlighting, the classic conditional-format
// palette: red, amber, green.
var statusFills = map[expiry.Status]string{
	expiry.StatusExpired:      "FFC7CE",
	expiry.StatusExpiringSoon: "FFEB9C",
	expiry.StatusActive:       "C6EFCE",
}

func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	controllers, err := s.Storage.ListControllers(r.Context(), r.URL.Query().Get("workplace"))
	if err != nil {
		s.Logger.Errorw("list controllers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load controllers")
		return
	}
	writeJSON(w, http.StatusOK, report.Stats(controllers, s.Now()))
}

func (s *Server) Report(w http.ResponseWriter, r *http.Request) {
	status, ok := report.ParseStatus(chi.URLParam(r, "status"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown report status")
		return
	}
	controllers, err := s.Storage.ListControllers(r.Context(), r.URL.Query().Get("workplace"))
	if err != nil {
		s.Logger.Errorw("list controllers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load controllers")
		return
	}
	writeJSON(w, http.StatusOK, report.Flatten(controllers, status, s.Now()))
}

func (s *Server) ExportReport(w http.ResponseWriter, r *http.Request) {
	statusName := chi.URLParam(r, "status")
	status, ok := report.ParseStatus(statusName)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown report status")
		return
	}
	controllers, err := s.Storage.ListControllers(r.Context(), r.URL.Query().Get("workplace"))
	if err != nil {
		s.Logger.Errorw("list controllers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load controllers")
		return
	}
	rows := report.Flatten(controllers, status, s.Now())

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := "Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}

	headers := []string{"Full Name", "License Type", "Expiry"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	fill, err := statusStyle(f, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	for i, row := range rows {
		nameCell, _ := excelize.CoordinatesToCellName(1, i+2)
		typeCell, _ := excelize.CoordinatesToCellName(2, i+2)
		expiryCell, _ := excelize.CoordinatesToCellName(3, i+2)
		_ = f.SetCellValue(sheet, nameCell, row.FullName)
		_ = f.SetCellValue(sheet, typeCell, row.LicenseType)
		_ = f.SetCellValue(sheet, expiryCell, renderExpiry(row.Expiry))
		// The report is pre-filtered, so the whole expiry column takes
		// the requested status color.
		_ = f.SetCellStyle(sheet, expiryCell, expiryCell, fill)
	}

	writeWorkbook(w, f, fmt.Sprintf("report-%s.xlsx", statusName))
}

func (s *Server) ExportControllers(w http.ResponseWriter, r *http.Request) {
	controllers, err := s.Storage.ListControllers(r.Context(), r.URL.Query().Get("workplace"))
	if err != nil {
		s.Logger.Errorw("list controllers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load controllers")
		return
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := "Controllers"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}

	headers := []string{"Full Name", "Date of Birth", "License Number", "Eligibility", "Workplace"}
	for _, field := range models.ExpiryFields {
		headers = append(headers, field.Label+" Expiry")
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	styles := map[expiry.Status]int{}
	for status := range statusFills {
		style, err := statusStyle(f, status)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to build workbook")
			return
		}
		styles[status] = style
	}

	today := s.Now()
	for i := range controllers {
		c := &controllers[i]
		rowNum := i + 2
		text := []string{c.FullName, c.DateOfBirth, c.LicenseNumber, c.Eligibility, c.Workplace}
		for col, v := range text {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			_ = f.SetCellValue(sheet, cell, v)
		}
		for j, cs := range report.CellStatuses(c, today) {
			value := models.ExpiryFields[j].Value(c)
			cell, _ := excelize.CoordinatesToCellName(len(text)+j+1, rowNum)
			_ = f.SetCellValue(sheet, cell, renderExpiry(value))
			// Mixed text-and-date cells stay uncolored to keep the
			// grid readable.
			if cs.Pure && cs.Status != expiry.StatusUndated {
				_ = f.SetCellStyle(sheet, cell, cell, styles[cs.Status])
			}
		}
	}

	writeWorkbook(w, f, "controllers.xlsx")
}

// renderExpiry shows a normalizable value as a calendar date and leaves
// anything else as raw text, same as the grid renderer.
func renderExpiry(value models.CellValue) string {
	if date, ok := expiry.Normalize(value.Raw()); ok {
		return expiry.FormatDate(date)
	}
	return value.String()
}

func statusStyle(f *excelize.File, status expiry.Status) (int, error) {
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{statusFills[status]}},
	})
}

func writeWorkbook(w http.ResponseWriter, f *excelize.File, filename string) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_ = f.Write(w)
}
