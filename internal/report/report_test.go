package report

import (
	"testing"
	"time"

	"atclicenses.app/server/internal/expiry"
	"atclicenses.app/server/models"
)

var today = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

// serialFor encodes today+offset days as a spreadsheet serial.
func serialFor(offsetDays int) models.CellValue {
	return models.NumberCell(expiry.Serial(today.AddDate(0, 0, offsetDays)))
}

func TestStats_CountsPerLicenseNotPerController(t *testing.T) {
	controllers := []models.Controller{
		{
			FullName:              "Ali Hassan",
			ATCOLicenseExpiry:     serialFor(-10), // expired
			UnitEndorsementExpiry: serialFor(-1),  // expired
			ELPExpiry:             serialFor(10),  // expiring soon
			MedicalExpiry:         serialFor(90),  // active
		},
		{
			FullName:      "Sara Omar",
			ELPExpiry:     models.TextCell("LEVEL 4"), // undated, skipped
			MedicalExpiry: models.TextCell("LEVEL 4 25/12/2023"),
		},
	}

	totals := Stats(controllers, today)

	if totals.Controllers != 2 {
		t.Errorf("Controllers = %d, want 2", totals.Controllers)
	}
	if totals.Expired != 3 {
		t.Errorf("Expired = %d, want 3", totals.Expired)
	}
	if totals.ExpiringSoon != 1 {
		t.Errorf("ExpiringSoon = %d, want 1", totals.ExpiringSoon)
	}
	if totals.Active != 1 {
		t.Errorf("Active = %d, want 1", totals.Active)
	}
}

func TestFlatten_FiltersByStatusAndKeepsRawValue(t *testing.T) {
	controllers := []models.Controller{
		{
			FullName:          "Ali Hassan",
			ATCOLicenseExpiry: serialFor(-10),
			ELPExpiry:         models.TextCell("LEVEL 4 25/12/2023"),
			MedicalExpiry:     serialFor(60),
		},
	}

	rows := Flatten(controllers, expiry.StatusExpired, today)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	if rows[0].LicenseType != "ATCO License" {
		t.Errorf("rows[0].LicenseType = %q", rows[0].LicenseType)
	}
	if rows[1].LicenseType != "Language Proficiency" {
		t.Errorf("rows[1].LicenseType = %q", rows[1].LicenseType)
	}
	// The raw cell value travels unmodified for display rendering.
	if rows[1].Expiry != models.TextCell("LEVEL 4 25/12/2023") {
		t.Errorf("rows[1].Expiry = %v", rows[1].Expiry)
	}

	if rows := Flatten(controllers, expiry.StatusActive, today); len(rows) != 1 {
		t.Errorf("active rows = %d, want 1", len(rows))
	}
	if rows := Flatten(controllers, expiry.StatusExpiringSoon, today); len(rows) != 0 {
		t.Errorf("expiring rows = %d, want 0", len(rows))
	}
}

func TestCellStatuses(t *testing.T) {
	c := models.Controller{
		ATCOLicenseExpiry: serialFor(-1),
		ELPExpiry:         models.TextCell("LEVEL 4 25/12/2030"),
		MedicalExpiry:     models.TextCell("LEVEL 4"),
	}

	statuses := CellStatuses(&c, today)
	if len(statuses) != 4 {
		t.Fatalf("got %d statuses", len(statuses))
	}

	if statuses[0].Status != expiry.StatusExpired || !statuses[0].Pure {
		t.Errorf("atco cell = %+v, want pure expired", statuses[0])
	}
	if statuses[1].Status != expiry.StatusUndated {
		t.Errorf("empty cell = %+v, want undated", statuses[1])
	}
	// Mixed text-and-date cells classify but are not color-eligible.
	if statuses[2].Status != expiry.StatusActive || statuses[2].Pure {
		t.Errorf("elp cell = %+v, want impure active", statuses[2])
	}
	if statuses[3].Status != expiry.StatusUndated {
		t.Errorf("med cell = %+v, want undated", statuses[3])
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   expiry.Status
		wantOk bool
	}{
		{"expired", expiry.StatusExpired, true},
		{"expiring-soon", expiry.StatusExpiringSoon, true},
		{"expiringSoon", expiry.StatusExpiringSoon, true},
		{"active", expiry.StatusActive, true},
		{"undated", "", false},
		{"bogus", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		if ok != tt.wantOk || got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, %v", tt.in, got, ok)
		}
	}
}
