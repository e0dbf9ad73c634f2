// Package report derives dashboard statistics and flattened license
// reports from controller records.
package report

import (
	"time"

	"atclicenses.app/server/internal/expiry"
	"atclicenses.app/server/models"
)

// Totals are the dashboard counters. Counts are per LICENSE, not per
// controller: a controller with two expired licenses contributes two to
// the expired count. Cells without a recognizable date are skipped.
type Totals struct {
	Controllers  int `json:"total_controllers"`
	Active       int `json:"active_licenses"`
	ExpiringSoon int `json:"expiring_soon_licenses"`
	Expired      int `json:"expired_licenses"`
}

// Stats walks every record and every expiry column and accumulates the
// per-license totals using the dashboard (ceiling) classifier.
func Stats(controllers []models.Controller, today time.Time) Totals {
	t := Totals{Controllers: len(controllers)}
	for i := range controllers {
		for _, f := range models.ExpiryFields {
			date, ok := expiry.Normalize(f.Value(&controllers[i]).Raw())
			if !ok {
				continue
			}
			switch expiry.Classify(date, today) {
			case expiry.StatusExpired:
				t.Expired++
			case expiry.StatusExpiringSoon:
				t.ExpiringSoon++
			default:
				t.Active++
			}
		}
	}
	return t
}

// Row is one line of a filtered license report: one controller/license
// pair. Expiry carries the raw cell value so the renderer can show it
// the same way the grid does.
type Row struct {
	FullName    string           `json:"full_name"`
	LicenseType string           `json:"license_type"`
	Expiry      models.CellValue `json:"expiry"`
}

// Flatten produces one row per (controller, license type) whose status
// matches the request. Reports use the floor classifier.
func Flatten(controllers []models.Controller, status expiry.Status, today time.Time) []Row {
	rows := []Row{}
	for i := range controllers {
		c := &controllers[i]
		for _, f := range models.ExpiryFields {
			value := f.Value(c)
			date, ok := expiry.Normalize(value.Raw())
			if !ok {
				continue
			}
			if expiry.ClassifyReport(date, today) == status {
				rows = append(rows, Row{
					FullName:    c.FullName,
					LicenseType: f.Label,
					Expiry:      value,
				})
			}
		}
	}
	return rows
}

// CellStatus is the derived state of one expiry cell, plus whether the
// raw value is pure enough to be color-highlighted in the grid.
type CellStatus struct {
	Column string        `json:"column"`
	Status expiry.Status `json:"status"`
	Pure   bool          `json:"pure"`
}

// CellStatuses computes per-column statuses for one record. Cells with
// no recognizable date come back as undated.
func CellStatuses(c *models.Controller, today time.Time) []CellStatus {
	statuses := make([]CellStatus, 0, len(models.ExpiryFields))
	for _, f := range models.ExpiryFields {
		raw := f.Value(c).Raw()
		cs := CellStatus{Column: f.Column, Status: expiry.StatusUndated}
		if date, ok := expiry.Normalize(raw); ok {
			cs.Status = expiry.Classify(date, today)
			cs.Pure = expiry.IsPureDateValue(raw)
		}
		statuses = append(statuses, cs)
	}
	return statuses
}

// ParseStatus maps a report route segment to a status. The camel-case
// spelling is accepted because older export links used it.
func ParseStatus(s string) (expiry.Status, bool) {
	switch s {
	case "expired":
		return expiry.StatusExpired, true
	case "expiring-soon", "expiringSoon":
		return expiry.StatusExpiringSoon, true
	case "active":
		return expiry.StatusActive, true
	}
	return "", false
}
