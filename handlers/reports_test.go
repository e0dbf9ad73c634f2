package handlers_test

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"atclicenses.app/server/internal/expiry"
	"atclicenses.app/server/internal/report"
	"atclicenses.app/server/internal/testutil"
	"atclicenses.app/server/models"
	"atclicenses.app/server/storage"
)

var reportToday = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

func reportSerial(offsetDays int) models.CellValue {
	return models.NumberCell(expiry.Serial(reportToday.AddDate(0, 0, offsetDays)))
}

func seedReportData(t *testing.T, store storage.Storage) {
	t.Helper()
	testutil.SeedController(t, store, &models.ControllerPatch{
		FullName:              testutil.Str("Ali Hassan"),
		LicenseNumber:         testutil.Str("ATC-100"),
		Workplace:             testutil.Str("Tripoli International"),
		ATCOLicenseExpiry:     testutil.Cell(reportSerial(-10)),
		UnitEndorsementExpiry: testutil.Cell(reportSerial(10)),
		ELPExpiry:             testutil.Cell(models.TextCell("LEVEL 4")),
		MedicalExpiry:         testutil.Cell(reportSerial(90)),
	})
	testutil.SeedController(t, store, &models.ControllerPatch{
		FullName:          testutil.Str("Sara Omar"),
		LicenseNumber:     testutil.Str("ATC-200"),
		Workplace:         testutil.Str("Benina International"),
		ATCOLicenseExpiry: testutil.Cell(reportSerial(-1)),
	})
}

func TestStatsEndpoint(t *testing.T) {
	store := storage.NewMemoryStorage()
	server := testutil.NewTestServer(store)
	server.Now = func() time.Time { return reportToday }
	token := testutil.AuthToken(t, "admin", true)
	seedReportData(t, store)

	w := testutil.DoJSON(t, server, http.MethodGet, "/api/stats", nil, token)
	testutil.AssertStatus(t, w, http.StatusOK)

	var totals report.Totals
	testutil.DecodeJSON(t, w, &totals)
	if totals.Controllers != 2 {
		t.Errorf("Controllers = %d, want 2", totals.Controllers)
	}
	if totals.Expired != 2 || totals.ExpiringSoon != 1 || totals.Active != 1 {
		t.Errorf("Totals = %+v", totals)
	}
}

func TestReportEndpoint(t *testing.T) {
	store := storage.NewMemoryStorage()
	server := testutil.NewTestServer(store)
	server.Now = func() time.Time { return reportToday }
	token := testutil.AuthToken(t, "admin", true)
	seedReportData(t, store)

	w := testutil.DoJSON(t, server, http.MethodGet, "/api/reports/expired", nil, token)
	testutil.AssertStatus(t, w, http.StatusOK)

	var rows []report.Row
	testutil.DecodeJSON(t, w, &rows)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 expired rows, got %d: %+v", len(rows), rows)
	}
	if rows[0].FullName != "Ali Hassan" || rows[0].LicenseType != "ATCO License" {
		t.Errorf("First row = %+v", rows[0])
	}

	w = testutil.DoJSON(t, server, http.MethodGet, "/api/reports/nonsense", nil, token)
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, "unknown report status")
}

func TestReportEndpointEmptyResult(t *testing.T) {
	store := storage.NewMemoryStorage()
	server := testutil.NewTestServer(store)
	token := testutil.AuthToken(t, "admin", true)

	w := testutil.DoJSON(t, server, http.MethodGet, "/api/reports/active", nil, token)
	testutil.AssertStatus(t, w, http.StatusOK)
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("Expected an empty JSON array, got %q", body)
	}
}

func TestExportReport(t *testing.T) {
	store := storage.NewMemoryStorage()
	server := testutil.NewTestServer(store)
	server.Now = func() time.Time { return reportToday }
	token := testutil.AuthToken(t, "admin", true)
	seedReportData(t, store)

	w := testutil.DoJSON(t, server, http.MethodGet, "/api/reports/expired/export", nil, token)
	testutil.AssertStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="report-expired.xlsx"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("Failed to open exported workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Report")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Full Name" || rows[0][2] != "Expiry" {
		t.Errorf("Header = %v", rows[0])
	}
	if rows[1][0] != "Ali Hassan" || rows[1][1] != "ATCO License" {
		t.Errorf("First data row = %v", rows[1])
	}
	// A date serial renders as a calendar date.
	want := expiry.FormatDate(reportToday.AddDate(0, 0, -10))
	if rows[1][2] != want {
		t.Errorf("Expiry cell = %q, want %q", rows[1][2], want)
	}
}

func TestExportControllers(t *testing.T) {
	store := storage.NewMemoryStorage()
	server := testutil.NewTestServer(store)
	server.Now = func() time.Time { return reportToday }
	token := testutil.AuthToken(t, "admin", true)
	seedReportData(t, store)

	w := testutil.DoJSON(t, server, http.MethodGet, "/api/controllers/export", nil, token)
	testutil.AssertStatus(t, w, http.StatusOK)
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="controllers.xlsx"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("Failed to open exported workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Controllers")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][5] != "ATCO License Expiry" {
		t.Errorf("Header = %v", rows[0])
	}
	// Free text stays as typed while serials render as dates.
	if rows[1][7] != "LEVEL 4" {
		t.Errorf("ELP cell = %q", rows[1][7])
	}
	want := expiry.FormatDate(reportToday.AddDate(0, 0, -10))
	if rows[1][5] != want {
		t.Errorf("ATCO cell = %q, want %q", rows[1][5], want)
	}
}
