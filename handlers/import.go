package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"atclicenses.app/server/models"
	"atclicenses.app/server/storage"
)

const maxImportSize = 10 << 20 // 10 MiB

var allowedImportTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-excel": true,
	"application/octet-stream": true,
}

// headerColumns maps normalized sheet headers to record fields. The
// Arabic spellings match the headers of the workbooks this data has
// historically been kept in.
var headerColumns = map[string]string{
	"full name":               "full_name",
	"الاسم الكامل":            "full_name",
	"date of birth":           "date_of_birth",
	"تاريخ الميلاد":           "date_of_birth",
	"license number":          "license_number",
	"رقم الرخصة":              "license_number",
	"eligibility":             "eligibility",
	"الأهلية":                 "eligibility",
	"workplace":               "workplace",
	"مكان العمل":              "workplace",
	"atco lic expiry":         "atco_license_expiry",
	"atco license expiry":     "atco_license_expiry",
	"unit endorsement expiry": "unit_endorsement_expiry",
	"elp expiry":              "elp_expiry",
	"med expiry":              "med_expiry",
	"medical expiry":          "med_expiry",
}

type importResult struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// ImportControllers ingests an Excel workbook. Rows carrying a license
// number that already exists update the matching record; everything
// else inserts.
func (s *Server) ImportControllers(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		writeError(w, http.StatusBadRequest, "file must be an Excel workbook (.xlsx or .xls)")
		return
	}
	if ct := header.Header.Get("Content-Type"); ct != "" && !allowedImportTypes[ct] {
		writeError(w, http.StatusBadRequest, "file must be an Excel workbook (.xlsx or .xls)")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImportSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) > maxImportSize {
		writeError(w, http.StatusBadRequest, "file too large")
		return
	}

	rows, err := readWorkbookRows(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	columns := mapHeaderRow(rows[0])
	if len(columns) == 0 {
		writeError(w, http.StatusBadRequest, "no recognizable columns in header row")
		return
	}

	result := importResult{}
	for _, row := range rows[1:] {
		patch := rowPatch(columns, row)
		if patch.IsEmpty() {
			result.Skipped++
			continue
		}
		updated, err := s.upsertByLicense(r, patch)
		if err != nil {
			s.Logger.Errorw("import row", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save imported rows")
			return
		}
		if updated {
			result.Updated++
		} else {
			result.Imported++
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func readWorkbookRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not read workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("no worksheet found")
	}
	// Raw values keep date serials as numbers instead of the sheet's
	// display format.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("could not read worksheet: %v", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("worksheet is empty")
	}
	return rows, nil
}

// mapHeaderRow resolves each recognized header to its column index.
// Unknown headers are skipped so extra sheet columns do not break the
// import.
func mapHeaderRow(header []string) map[int]string {
	columns := map[int]string{}
	for i, h := range header {
		if field, ok := headerColumns[strings.ToLower(strings.TrimSpace(h))]; ok {
			columns[i] = field
		}
	}
	return columns
}

func rowPatch(columns map[int]string, row []string) *models.ControllerPatch {
	patch := &models.ControllerPatch{}
	for idx, field := range columns {
		if idx >= len(row) {
			continue
		}
		raw := strings.TrimSpace(row[idx])
		if raw == "" {
			continue
		}
		switch field {
		case "full_name":
			patch.FullName = &raw
		case "date_of_birth":
			patch.DateOfBirth = &raw
		case "license_number":
			patch.LicenseNumber = &raw
		case "eligibility":
			patch.Eligibility = &raw
		case "workplace":
			patch.Workplace = &raw
		case "atco_license_expiry":
			v := cellFromRaw(raw)
			patch.ATCOLicenseExpiry = &v
		case "unit_endorsement_expiry":
			v := cellFromRaw(raw)
			patch.UnitEndorsementExpiry = &v
		case "elp_expiry":
			v := cellFromRaw(raw)
			patch.ELPExpiry = &v
		case "med_expiry":
			v := cellFromRaw(raw)
			patch.MedicalExpiry = &v
		}
	}
	return patch
}

// cellFromRaw keeps numeric sheet values (date serials included)
// numeric.
func cellFromRaw(raw string) models.CellValue {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return models.NumberCell(n)
	}
	return models.TextCell(raw)
}

func (s *Server) upsertByLicense(r *http.Request, patch *models.ControllerPatch) (updated bool, err error) {
	if patch.LicenseNumber != nil && *patch.LicenseNumber != "" {
		existing, err := s.Storage.FindControllerByLicense(r.Context(), *patch.LicenseNumber)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return false, err
		}
		if existing != nil {
			_, err := s.Storage.UpdateController(r.Context(), existing.ID, patch)
			return true, err
		}
	}
	_, err = s.Storage.InsertController(r.Context(), patch)
	return false, err
}
